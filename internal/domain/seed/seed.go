// Package seed provides seed resolution and deterministic derivation for
// scenario generation. A seed of 0 is a legitimate, reproducible seed;
// "no seed supplied" is a distinct state resolved from system entropy.
package seed

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/tabletoptools/scenoforge/internal/domain"
)

// Max is the largest valid seed (fits in a signed 32-bit int).
const Max = int64(1<<31 - 1)

// New draws a fresh seed from crypto/rand in [0, Max].
func New() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])) & Max, nil
}

// Normalize validates a caller-supplied seed, clamping it to [0, Max].
func Normalize(raw int64) (int64, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: seed must be >= 0, got %d", domain.ErrValidation, raw)
	}
	if raw > Max {
		return Max, nil
	}
	return raw, nil
}

// Resolve returns the seed to generate with. A nil seed draws a fresh one;
// the returned value is always recorded so the run can be replayed.
func Resolve(raw *int64) (int64, error) {
	if raw == nil {
		return New()
	}
	return Normalize(*raw)
}

// DeriveAttempt derives a deterministic retry seed from a base seed and a
// 0-based attempt index via SHA-256. Attempt 0 returns the base seed so
// the happy path consumes the caller's stream unchanged; later attempts
// are uniformly distributed and uncorrelated.
func DeriveAttempt(base int64, attempt int) int64 {
	if attempt == 0 {
		return base
	}
	var data [12]byte
	binary.BigEndian.PutUint64(data[:8], uint64(base))
	binary.BigEndian.PutUint32(data[8:], uint32(attempt))
	digest := sha256.Sum256(data[:])
	return int64(binary.BigEndian.Uint32(digest[:4])) & Max
}

package scenario

import (
	"fmt"
	"log"
)

// AssertionMode controls how expect steps treat mismatches.
type AssertionMode int

const (
	// AssertionStrict stops the run on the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly reports mismatches without failing the run.
	AssertionLogOnly
)

// Assertions evaluates expectation failures according to the mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger
}

// Failf reports an unconditional failure. Setup problems (missing card,
// bad arguments) fail the run in every mode.
func (a Assertions) Failf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Assertf reports an expectation mismatch. In log-only mode it is
// downgraded to a log line.
func (a Assertions) Assertf(format string, args ...any) error {
	if a.Mode == AssertionLogOnly {
		if a.Logger != nil {
			a.Logger.Printf("assertion: "+format, args...)
		}
		return nil
	}
	return fmt.Errorf(format, args...)
}

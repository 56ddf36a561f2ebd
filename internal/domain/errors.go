// Package domain holds error categories shared by the scenario domain
// packages. Callers classify failures with errors.Is; the specific
// packages wrap these sentinels with field-level detail.
package domain

import "errors"

var (
	// ErrValidation indicates malformed or out-of-bounds input. Never
	// recovered automatically; the offending field is named in the message.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")
)

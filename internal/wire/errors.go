package wire

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid_input")
	ErrInvalidProof = errors.New("invalid_proof")
	ErrVrfFailed    = errors.New("vrf_failed")
)

// Error carries a detail message on top of one of the sentinel kinds so
// callers can branch with errors.Is while logs keep the specifics.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func InvalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Msg: msg}
}

func InvalidProof(msg string) error {
	return &Error{Kind: ErrInvalidProof, Msg: msg}
}

func VrfFailed(msg string) error {
	return &Error{Kind: ErrVrfFailed, Msg: msg}
}

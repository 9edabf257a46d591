package actions

import (
	"errors"
	"fmt"

	"github.com/baiirun/yepdone/internal/db"
)

// Code classifies a boundary failure. Callers branch on the code, not
// the message: the message is for humans, the code is the contract.
type Code string

const (
	CodeAuth       Code = "AUTH_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION_ERROR"
	CodeOwnership  Code = "OWNERSHIP_ERROR"
	CodeDB         Code = "DB_ERROR"
	CodeUnknown    Code = "UNKNOWN_ERROR"
)

// Error is the only error type that escapes the action boundary. Every
// operation either succeeds or returns one of these; nothing panics
// through and no raw storage error leaks out.
type Error struct {
	Code    Code
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the boundary code from err, or CodeUnknown when err
// did not come through the boundary.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

func authErr(message string) *Error {
	return &Error{Code: CodeAuth, Message: message}
}

func notFoundErr(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func validationErr(message string, err error) *Error {
	return &Error{Code: CodeValidation, Message: message, Err: err}
}

func ownershipErr(message string) *Error {
	return &Error{Code: CodeOwnership, Message: message}
}

// classify maps a storage error onto the boundary taxonomy. Sentinels
// from the db package carry meaning; anything else is a DB_ERROR.
func classify(err error, message string) *Error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: message, Err: err}
	case errors.Is(err, db.ErrInviteExpired):
		return &Error{Code: CodeValidation, Message: "invite code has expired", Err: err}
	case errors.Is(err, db.ErrAlreadyMember):
		return &Error{Code: CodeValidation, Message: "already a member of this workspace", Err: err}
	default:
		return &Error{Code: CodeDB, Message: message, Err: err}
	}
}

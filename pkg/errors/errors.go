package errors

import (
	goerrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goerrors.New(msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// WithContext annotates err with a short description of the operation that
// failed. The description should be a verb phrase, e.g. "read profile".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return withContext{err: err, context: context}
}

type withContext struct {
	err     error
	context string
}

func (err withContext) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err withContext) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the chain of contexts that led to it.
type FriendlyError struct {
	msg string
}

// NewFriendlyError formats a FriendlyError.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

type friendly interface {
	FriendlyMessage() string
}

// GetPrintableMessage returns the friendliest message available for err. If a
// friendly error is wrapped anywhere in the chain, its message is returned.
// Otherwise, the full error string is returned.
func GetPrintableMessage(err error) string {
	for curr := err; curr != nil; curr = goerrors.Unwrap(curr) {
		if f, ok := curr.(friendly); ok {
			return f.FriendlyMessage()
		}
	}
	return err.Error()
}

// RootCause returns the innermost error in err's chain.
func RootCause(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

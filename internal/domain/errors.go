package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrDocumentNotFound      = fmt.Errorf("document %w", ErrNotFound)
	ErrDocumentAlreadyExists = errors.New("document already registered for this blob")
	ErrIllegalTransition     = errors.New("illegal status transition")
	ErrRunConflict           = errors.New("document is not in a runnable state")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnsupportedDocument   = errors.New("unsupported document")
)

// TransitionError reports an event that is not allowed from the current status.
type TransitionError struct {
	From  DocumentStatus
	Event LifecycleEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", ErrIllegalTransition, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

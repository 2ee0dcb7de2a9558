package scroll

import (
	"errors"
	"fmt"
)

// ErrHubClosed is returned by operations on a closed Hub.
var ErrHubClosed = errors.New("scroll: hub closed")

// CallbackError wraps a panic raised by a subscriber callback.
// The dispatcher recovers it, reports it and keeps servicing the tick.
type CallbackError struct {
	SubscriberID string
	Panic        any
	Stack        []byte
}

// Error returns the error message.
func (e *CallbackError) Error() string {
	return fmt.Sprintf("scroll: subscriber %q panicked: %v", e.SubscriberID, e.Panic)
}

// Unwrap returns the panic value when it is an error.
func (e *CallbackError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// NewCallbackError creates a new CallbackError.
func NewCallbackError(id string, panicVal any, stack []byte) *CallbackError {
	return &CallbackError{
		SubscriberID: id,
		Panic:        panicVal,
		Stack:        stack,
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPersistence            = errors.New("cart storage failure")
	ErrDataIntegrity          = errors.New("stored cart data is malformed")
	ErrDuplicateEntry         = errors.New("entry already in cart")
	ErrEntryNotFound          = errors.New("entry not found in cart")
	ErrLineNotFound           = errors.New("line not found in entry")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrNoItemsSelected        = errors.New("no items selected for checkout")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrCheckoutInProgress     = errors.New("checkout already in progress")
	ErrIllegalTransition      = errors.New("illegal transition of checkout state")
	ErrUpstream               = errors.New("upstream request failed")
)

// DefaultUpstreamMessage is relayed when the backend gave no message of its own.
const DefaultUpstreamMessage = "Checkout failed"

type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

func NewUpstreamError(status int, message string) *UpstreamError {
	if message == "" {
		message = DefaultUpstreamMessage
	}
	return &UpstreamError{Status: status, Message: message}
}

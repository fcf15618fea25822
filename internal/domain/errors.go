package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrLocationNotFound     = errors.New("location not found")
	ErrQuoteNotFound        = errors.New("quote not found")
)

// FailureReason classifies a failed outbound message.
type FailureReason string

const (
	// FailureUnreachable means the recipient blocked the bot or no longer exists.
	FailureUnreachable FailureReason = "unreachable"
	// FailureTransient covers network errors, rate limits and anything unknown.
	FailureTransient FailureReason = "transient"
)

// DeliveryError is returned by dispatchers when a message could not be sent.
type DeliveryError struct {
	Reason FailureReason
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("delivery failed (%s)", e.Reason)
	}
	return fmt.Sprintf("delivery failed (%s): %v", e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// FailureReasonOf extracts the classification of a dispatch error. Errors that
// are not DeliveryErrors are treated as transient.
func FailureReasonOf(err error) FailureReason {
	var de *DeliveryError
	if errors.As(err, &de) && de.Reason == FailureUnreachable {
		return FailureUnreachable
	}
	return FailureTransient
}

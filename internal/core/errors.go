package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAmount means no plain-text part carried a numeric payload.
	ErrNoAmount = errors.New("no price found")
	// ErrMissingHeader means the ledger file has no usable header row.
	ErrMissingHeader = errors.New("ledger header missing")
)

// FilterError reports an inbound event that violates the upstream contract,
// such as a missing verdict or sender. A normal rejection is not an error.
type FilterError struct {
	MessageID string
	Field     string
}

func (e *FilterError) Error() string {
	if e.MessageID == "" {
		return fmt.Sprintf("filter event: missing %s", e.Field)
	}
	return fmt.Sprintf("filter event %s: missing %s", e.MessageID, e.Field)
}

// ExtractionError reports a failure to build a LedgerEntry from one event.
type ExtractionError struct {
	MessageID string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract message %s: %v", e.MessageID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StoreError reports a ledger storage failure.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotifyError reports a failure to publish on the notification channel.
type NotifyError struct {
	Topic string
	Err   error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

package ledger

import (
	"errors"
	"fmt"
)

type RejectReason string

const (
	RejectInsufficientFunds RejectReason = "insufficient-funds"
	RejectAccountExists     RejectReason = "account-exists"
	RejectAccountNotFound   RejectReason = "account-not-found"
	RejectStaleAccount      RejectReason = "stale-account"
	RejectMissingSignature  RejectReason = "missing-signature"
	RejectInvalidSignature  RejectReason = "invalid-signature"
	RejectUnauthorizedWrite RejectReason = "unauthorized-write"
	RejectInvalidMutation   RejectReason = "invalid-mutation"
)

var ErrClosed = errors.New("ledger closed")

// Rejection is the definitive refusal of a mutation. Nothing of the
// mutation was applied.
type Rejection struct {
	TraceId string
	Reason  RejectReason
	Detail  string
}

func NewRejection(traceId string, reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{
		TraceId: traceId,
		Reason:  reason,
		Detail:  fmt.Sprintf(format, args...),
	}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("mutation %s rejected: %s %s", r.TraceId, r.Reason, r.Detail)
}

// PendingError reports that the caller stopped waiting for the outcome.
// The mutation may still be applied; resolve it with ReadMutation.
type PendingError struct {
	TraceId string
	Err     error
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("mutation %s outcome unknown: %v", e.TraceId, e.Err)
}

func (e *PendingError) Unwrap() error {
	return e.Err
}

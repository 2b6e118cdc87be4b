package nft

import (
	"errors"
	"fmt"

	"github.com/MixinNetwork/nfcore/ledger"
)

// Error categories. Every error returned by this package matches exactly
// one of them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthorized     = errors.New("authorization error")
	ErrRuleSetViolation = errors.New("rule set violation")
	ErrLedgerRejection  = errors.New("ledger rejection")
	ErrTransientFailure = errors.New("transient failure")
)

var (
	ErrInvalidPluginConfig      = errors.New("invalid plugin config")
	ErrUnauthorizedMint         = errors.New("unauthorized mint")
	ErrUnauthorizedTransfer     = errors.New("unauthorized transfer")
	ErrCollectionCreationFailed = errors.New("collection creation failed")
	ErrAssetCreationFailed      = errors.New("asset creation failed")
	ErrTransferFailed           = errors.New("transfer failed")
	ErrNotFound                 = errors.New("not found")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type InvalidPluginConfigError struct {
	Index  int
	Type   PluginType
	Field  string
	Reason string
}

func (e *InvalidPluginConfigError) Error() string {
	return fmt.Sprintf("invalid plugin config [%d] %s.%s: %s", e.Index, e.Type, e.Field, e.Reason)
}

func (e *InvalidPluginConfigError) Is(target error) bool {
	return target == ErrInvalidPluginConfig || target == ErrValidation
}

type AuthorizationError struct {
	Kind     error
	Expected ledger.Address
	Actual   ledger.Address
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%v: expected %s got %s", e.Kind, e.Expected, e.Actual)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == e.Kind || target == ErrUnauthorized
}

type RuleSetViolationError struct {
	Asset   ledger.Address
	Program ledger.Address
	RuleSet RuleSetKind
}

func (e *RuleSetViolationError) Error() string {
	return fmt.Sprintf("rule set %s forbids program %s for asset %s", e.RuleSet, e.Program, e.Asset)
}

func (e *RuleSetViolationError) Is(target error) bool {
	return target == ErrRuleSetViolation
}

// OperationError reports a mutating operation that did not complete. Kind
// names the operation, Err is the ledger outcome. A transient failure
// means the outcome is unknown: re-read the ledger before any retry.
type OperationError struct {
	Kind    error
	TraceId string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%v (%s): %v", e.Kind, e.TraceId, e.Err)
}

func (e *OperationError) Unwrap() []error {
	return []error{e.Kind, classify(e.Err), e.Err}
}

func (e *OperationError) Transient() bool {
	return classify(e.Err) == ErrTransientFailure
}

func classify(err error) error {
	var rej *ledger.Rejection
	switch {
	case errors.As(err, &rej):
		return ErrLedgerRejection
	case errors.Is(err, ErrNotFound):
		return ErrLedgerRejection
	}
	return ErrTransientFailure
}

func operationFailed(kind error, traceId string, err error) error {
	return &OperationError{Kind: kind, TraceId: traceId, Err: err}
}

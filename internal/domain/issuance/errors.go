// internal/domain/issuance/errors.go
package issuance

import (
	"errors"
	"fmt"
)

// Kind classifies why a run stopped (or, for RecordingFailed, why it warned).
type Kind string

const (
	KindInvalidInput        Kind = "InvalidInput"
	KindAmountOverflow      Kind = "AmountOverflow"
	KindWalletUnavailable   Kind = "WalletUnavailable"
	KindUserRejected        Kind = "UserRejected"
	KindStaleFreshnessToken Kind = "StaleFreshnessToken"
	KindBroadcastRejected   Kind = "BroadcastRejected"
	KindExecutionRejected   Kind = "ExecutionRejected"
	KindConfirmationTimeout Kind = "ConfirmationTimeout"
	KindRecordingFailed     Kind = "RecordingFailed"
	KindNetwork             Kind = "Network"
	KindCancelled           Kind = "Cancelled"
)

// Errors
var (
	ErrInvalidInput    = errors.New("issuance: invalid input")
	ErrInvalidName     = errors.New("issuance: invalid name")
	ErrInvalidSymbol   = errors.New("issuance: invalid symbol")
	ErrInvalidSupply   = errors.New("issuance: invalid supply")
	ErrInvalidDecimals = errors.New("issuance: invalid decimals")
	ErrPrecisionLoss   = errors.New("issuance: supply not representable at decimals")
	ErrAmountOverflow  = errors.New("issuance: amount overflow")

	ErrWalletUnavailable   = errors.New("issuance: wallet unavailable")
	ErrUserRejected        = errors.New("issuance: user rejected")
	ErrStaleFreshnessToken = errors.New("issuance: stale freshness token")
	ErrBroadcastRejected   = errors.New("issuance: broadcast rejected")
	ErrExecutionRejected   = errors.New("issuance: execution rejected")
	ErrConfirmationTimeout = errors.New("issuance: confirmation timeout")
	ErrRecordingFailed     = errors.New("issuance: recording failed")
	ErrNetwork             = errors.New("issuance: network error")
	ErrCancelled           = errors.New("issuance: cancelled")

	ErrNotFullySigned = errors.New("issuance: envelope is not fully signed")
)

var kindSentinels = map[Kind]error{
	KindInvalidInput:        ErrInvalidInput,
	KindAmountOverflow:      ErrAmountOverflow,
	KindWalletUnavailable:   ErrWalletUnavailable,
	KindUserRejected:        ErrUserRejected,
	KindStaleFreshnessToken: ErrStaleFreshnessToken,
	KindBroadcastRejected:   ErrBroadcastRejected,
	KindExecutionRejected:   ErrExecutionRejected,
	KindConfirmationTimeout: ErrConfirmationTimeout,
	KindRecordingFailed:     ErrRecordingFailed,
	KindNetwork:             ErrNetwork,
	KindCancelled:           ErrCancelled,
}

// Fatal reports whether the kind aborts the pipeline.
func (k Kind) Fatal() bool {
	return k != KindRecordingFailed
}

// PipelineError is the single error type returned by a failed run.
type PipelineError struct {
	Kind  Kind
	Stage Stage
	// Reference is set once a transaction signature exists, so a caller can
	// look the transaction up later instead of resubmitting.
	Reference string
	Err       error
}

func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("issuance failed at %s (%s)", e.Stage, e.Kind)
	if e.Reference != "" {
		msg += " reference=" + e.Reference
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUserRejected) match on Kind even when the
// wrapped cause is some adapter specific error.
func (e *PipelineError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Fail builds a PipelineError.
func Fail(stage Stage, kind Kind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// KindOf classifies any error produced by this package or its adapters.
// Unknown errors are reported as Network.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	switch {
	case errors.Is(err, ErrAmountOverflow):
		return KindAmountOverflow
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidName),
		errors.Is(err, ErrInvalidSymbol),
		errors.Is(err, ErrInvalidSupply),
		errors.Is(err, ErrInvalidDecimals),
		errors.Is(err, ErrPrecisionLoss):
		return KindInvalidInput
	}
	for k, s := range kindSentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return KindNetwork
}

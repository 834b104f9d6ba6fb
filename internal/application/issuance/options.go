// internal/application/issuance/options.go
package issuance

import (
	"fmt"
	"strings"
	"time"
)

// FreezePolicy decides where freeze authority revocation happens.
type FreezePolicy string

const (
	// FreezeOmitAtInit never grants the freeze authority: InitializeMint is
	// emitted with no freeze authority when RevokeFreeze is requested.
	FreezeOmitAtInit FreezePolicy = "omit-at-init"
	// FreezeRevokeAfter grants it at InitializeMint and appends an explicit
	// SetAuthority(FreezeAccount -> none) with the other revocations.
	FreezeRevokeAfter FreezePolicy = "revoke-after"
)

// ParseFreezePolicy accepts the config spelling; empty means the default.
func ParseFreezePolicy(s string) (FreezePolicy, error) {
	switch FreezePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FreezeOmitAtInit:
		return FreezeOmitAtInit, nil
	case FreezeRevokeAfter:
		return FreezeRevokeAfter, nil
	}
	return "", fmt.Errorf("issuance: unknown freeze policy %q", s)
}

// Options tunes a Pipeline.
type Options struct {
	FreezePolicy FreezePolicy
	// Commitment the confirmation wait targets.
	Commitment Commitment
	// ConfirmTimeout bounds the confirmation wait.
	ConfirmTimeout time.Duration
	// PollInterval between signature status polls.
	PollInterval time.Duration
	// FreshnessWindow is how long a blockhash is trusted without asking the
	// network for the current block height.
	FreshnessWindow time.Duration
	// RecordTimeout bounds the best-effort recorder call.
	RecordTimeout time.Duration
}

const (
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultPollInterval    = 2 * time.Second
	DefaultFreshnessWindow = 60 * time.Second
	DefaultRecordTimeout   = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.FreezePolicy == "" {
		o.FreezePolicy = FreezeOmitAtInit
	}
	if o.Commitment == "" {
		o.Commitment = CommitmentConfirmed
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = DefaultConfirmTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.FreshnessWindow <= 0 {
		o.FreshnessWindow = DefaultFreshnessWindow
	}
	if o.RecordTimeout <= 0 {
		o.RecordTimeout = DefaultRecordTimeout
	}
	return o
}

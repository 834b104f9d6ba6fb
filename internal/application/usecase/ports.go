// internal/application/usecase/ports.go
package usecase

import (
	"context"
	"errors"
	"time"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// ============================================================
// Serialization lock
// ============================================================

// UnlockFunc releases a lock obtained from Locker.TryLock.
type UnlockFunc func(ctx context.Context) error

// Locker serializes issuance runs per wallet. TryLock never waits: a held
// key returns ErrLockHeld immediately.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

var ErrLockHeld = errors.New("lock: already held")

// ============================================================
// Metadata upload
// ============================================================

// MetadataUploader stores token metadata JSON and returns its public URI.
type MetadataUploader interface {
	UploadMetadata(ctx context.Context, data []byte) (string, error)
}

// ============================================================
// Submission journal
// ============================================================

// JournalStatus is the last known on-chain state of a journaled submission.
type JournalStatus string

const (
	JournalPending   JournalStatus = "pending"
	JournalConfirmed JournalStatus = "confirmed"
	JournalRejected  JournalStatus = "rejected"
	JournalUnknown   JournalStatus = "unknown" // timed out; poll again
)

func (s JournalStatus) Final() bool {
	return s == JournalConfirmed || s == JournalRejected
}

// JournalEntry remembers one broadcast so a timed-out run can be looked up later.
type JournalEntry struct {
	Reference   string
	Fingerprint string
	MintAddress string
	Owner       string
	Name        string
	Symbol      string
	Stage       dom.Stage
	Status      JournalStatus
	Kind        dom.Kind
	Slot        uint64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Journal persists JournalEntry values keyed by transaction reference.
type Journal interface {
	Put(ctx context.Context, e JournalEntry) error
	Get(ctx context.Context, reference string) (JournalEntry, error)
	List(ctx context.Context, onlyOpen bool) ([]JournalEntry, error)
}

var ErrJournalNotFound = errors.New("journal: entry not found")

// ============================================================
// Network / wallet factories
// ============================================================

// WalletProvider yields the wallet for one run.
type WalletProvider func(ctx context.Context) (app.Wallet, error)

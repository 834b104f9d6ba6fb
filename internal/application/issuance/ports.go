// internal/application/issuance/ports.go
package issuance

import (
	"context"
	"errors"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	dom "splforge/internal/domain/issuance"
)

// ============================================================
// Wallet
// ============================================================

// Wallet is the user's signing collaborator. The pipeline never sees the
// private key; it hands over the serialized message and gets back a detached
// ed25519 signature for the wallet's slot.
//
// Implementations should return an error wrapping dom.ErrUserRejected when
// the user declines, and dom.ErrWalletUnavailable when the wallet cannot be
// reached at all.
type Wallet interface {
	Connect(ctx context.Context) (common.PublicKey, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// ============================================================
// Network
// ============================================================

// Freshness is the recent blockhash a transaction must cite.
type Freshness struct {
	Blockhash            string
	LastValidBlockHeight uint64
	FetchedAt            time.Time
}

// Commitment mirrors the Solana RPC commitment levels.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

func (c Commitment) rank() int {
	switch c {
	case CommitmentProcessed:
		return 1
	case CommitmentConfirmed:
		return 2
	case CommitmentFinalized:
		return 3
	}
	return 0
}

// Reaches reports whether c is at least as strong as target.
func (c Commitment) Reaches(target Commitment) bool {
	return c.rank() > 0 && c.rank() >= target.rank()
}

// SignatureStatus is what the network knows about a broadcast signature.
type SignatureStatus struct {
	Slot       uint64
	Commitment Commitment
	// ExecErr is non-empty when the transaction landed but its instructions failed.
	ExecErr string
}

// Network is the ledger RPC collaborator.
//
// SignatureStatus returns (nil, nil) while the signature is unknown to the cluster.
// Broadcast should wrap dom.ErrStaleFreshnessToken when the node reports an
// unknown/expired blockhash and dom.ErrBroadcastRejected when the node answered
// with any other error. Failures where no answer came back (transport errors,
// ctx cancelled mid-call) must not claim a rejection; wrap
// ErrBroadcastUnacknowledged or return them as is.
type Network interface {
	RentExemptMinimum(ctx context.Context, size uint64) (uint64, error)
	LatestBlockhash(ctx context.Context) (Freshness, error)
	BlockHeight(ctx context.Context) (uint64, error)
	Broadcast(ctx context.Context, tx types.Transaction) (string, error)
	SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
}

// ErrBroadcastUnacknowledged means the transaction may have reached the node
// but no answer came back. The reference is polled instead of resubmitted.
var ErrBroadcastUnacknowledged = errors.New("issuance: broadcast not acknowledged")

// ============================================================
// Recorder
// ============================================================

// Recorder reports a confirmed issuance to the off-chain record-keeping service.
type Recorder interface {
	Record(ctx context.Context, rec dom.Record) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec dom.Record) error

func (f RecorderFunc) Record(ctx context.Context, rec dom.Record) error { return f(ctx, rec) }

// Deps are the collaborators handed to a single run.
type Deps struct {
	Wallet   Wallet
	Network  Network
	Recorder Recorder
	// Observer receives this run's events in addition to the pipeline-wide observers.
	Observer Observer
}

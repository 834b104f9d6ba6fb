// internal/application/issuance/tracker.go
package issuance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	dom "splforge/internal/domain/issuance"
)

// Outcome is a confirmed transaction.
type Outcome struct {
	Reference  string
	Slot       uint64
	Commitment Commitment
}

// Tracker broadcasts a fully signed envelope once and waits for confirmation.
// It never resubmits.
type Tracker struct {
	net        Network
	commitment Commitment
	timeout    time.Duration
	poll       time.Duration
}

func NewTracker(net Network, opts Options) *Tracker {
	opts = opts.withDefaults()
	return &Tracker{
		net:        net,
		commitment: opts.Commitment,
		timeout:    opts.ConfirmTimeout,
		poll:       opts.PollInterval,
	}
}

// Submit broadcasts env and returns its reference. The envelope is sealed
// before the call, so a second Submit fails even if the first one errored.
// Only an answer from the node is reported as a rejection; any other failure
// wraps ErrBroadcastUnacknowledged together with the reference.
func (t *Tracker) Submit(ctx context.Context, env *Envelope) (string, error) {
	switch env.State() {
	case EnvelopeSubmitted, EnvelopeConfirmed, EnvelopeRejected:
		return env.Reference(), ErrEnvelopeSealed
	}
	tx, err := env.Transaction()
	if err != nil {
		return "", err
	}
	ref := env.Reference()
	env.markSubmitted()

	sig, err := t.net.Broadcast(ctx, tx)
	if err != nil {
		switch {
		case errors.Is(err, dom.ErrStaleFreshnessToken), errors.Is(err, dom.ErrBroadcastRejected):
			env.markRejected()
			return ref, err
		case errors.Is(err, ErrBroadcastUnacknowledged):
			return ref, err
		default:
			// no answer from the node: the envelope stays Submitted and ref must be polled
			return ref, fmt.Errorf("%w: %v", ErrBroadcastUnacknowledged, err)
		}
	}
	if sig != "" && sig != ref {
		log.Printf("[issuance] WARN broadcast returned unexpected signature got=%s want=%s", sig, ref)
	}
	return ref, nil
}

// Await polls the signature status until the target commitment is reached,
// the transaction is reported failed, the blockhash expires unobserved, or
// the timeout elapses. Cancellation of ctx is reported as a timeout: the
// transaction may still land.
func (t *Tracker) Await(ctx context.Context, ref string, lastValidHeight uint64) (*Outcome, error) {
	wctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ticker := time.NewTicker(t.poll)
	defer ticker.Stop()

	var lastErr error
	for {
		st, err := t.net.SignatureStatus(wctx, ref)
		switch {
		case err != nil:
			lastErr = err
			log.Printf("[issuance] signature status error ref=%s err=%v", ref, err)
		case st != nil && st.ExecErr != "":
			return nil, fmt.Errorf("%w: %s", dom.ErrExecutionRejected, st.ExecErr)
		case st != nil && st.Commitment.Reaches(t.commitment):
			return &Outcome{Reference: ref, Slot: st.Slot, Commitment: st.Commitment}, nil
		case st == nil && lastValidHeight > 0:
			if h, herr := t.net.BlockHeight(wctx); herr == nil && h > lastValidHeight {
				return nil, fmt.Errorf("%w: blockhash expired at height %d without the transaction being observed",
					dom.ErrConfirmationTimeout, lastValidHeight)
			}
		}

		select {
		case <-wctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %v (last poll error: %v)", dom.ErrConfirmationTimeout, wctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("%w: %v", dom.ErrConfirmationTimeout, wctx.Err())
		case <-ticker.C:
		}
	}
}

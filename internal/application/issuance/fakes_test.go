package issuance

import (
	"context"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	dom "splforge/internal/domain/issuance"
)

const testBlockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"

// fakeNetwork records every call; behaviour is overridden through the func fields.
type fakeNetwork struct {
	mu sync.Mutex

	height    uint64
	lastValid uint64

	broadcasts []types.Transaction
	polls      int

	BroadcastFn func(tx types.Transaction) (string, error)
	StatusFn    func(sig string, poll int) (*SignatureStatus, error)
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{height: 100, lastValid: 250}
}

func (n *fakeNetwork) RentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	return 1461600, nil
}

func (n *fakeNetwork) LatestBlockhash(ctx context.Context) (Freshness, error) {
	return Freshness{Blockhash: testBlockhash, LastValidBlockHeight: n.lastValid}, nil
}

func (n *fakeNetwork) BlockHeight(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height, nil
}

func (n *fakeNetwork) Broadcast(ctx context.Context, tx types.Transaction) (string, error) {
	n.mu.Lock()
	n.broadcasts = append(n.broadcasts, tx)
	fn := n.BroadcastFn
	n.mu.Unlock()
	if fn != nil {
		return fn(tx)
	}
	return base58.Encode(tx.Signatures[0]), nil
}

func (n *fakeNetwork) SignatureStatus(ctx context.Context, sig string) (*SignatureStatus, error) {
	n.mu.Lock()
	n.polls++
	poll := n.polls
	fn := n.StatusFn
	n.mu.Unlock()
	if fn != nil {
		return fn(sig, poll)
	}
	return &SignatureStatus{Slot: 42, Commitment: CommitmentConfirmed}, nil
}

func (n *fakeNetwork) broadcastCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.broadcasts)
}

// fakeWallet signs with a local account unless SignFn overrides it.
type fakeWallet struct {
	acct  types.Account
	calls int

	ConnectErr error
	SignFn     func(ctx context.Context, msg []byte) ([]byte, error)
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{acct: types.NewAccount()}
}

func (w *fakeWallet) Connect(ctx context.Context) (common.PublicKey, error) {
	if w.ConnectErr != nil {
		return common.PublicKey{}, w.ConnectErr
	}
	return w.acct.PublicKey, nil
}

func (w *fakeWallet) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	w.calls++
	if w.SignFn != nil {
		return w.SignFn(ctx, msg)
	}
	return w.acct.Sign(msg), nil
}

// recorderSpy captures records and can be told to fail.
type recorderSpy struct {
	records []dom.Record
	err     error
}

func (r *recorderSpy) Record(ctx context.Context, rec dom.Record) error {
	r.records = append(r.records, rec)
	return r.err
}

// eventLog collects observer events in order.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnStage(ctx context.Context, ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) stages() []dom.Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]dom.Stage, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Stage)
	}
	return out
}

func fastOptions() Options {
	return Options{
		ConfirmTimeout: 200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}
}

func doge2(t interface {
	Helper()
	Fatalf(string, ...any)
}) dom.Request {
	t.Helper()
	req, err := dom.NewRequest(dom.RequestInput{
		Name:        "Doge2",
		Symbol:      "DOGE2",
		Supply:      "1000000",
		Decimals:    9,
		Authorities: dom.AuthorityFlags{RevokeMint: true},
	})
	if err != nil {
		t.Fatalf("doge2 request: %v", err)
	}
	return req
}

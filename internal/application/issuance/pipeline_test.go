package issuance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "splforge/internal/domain/issuance"
)

func TestIssue_Doge2HappyPath(t *testing.T) {
	net := newFakeNetwork()
	wallet := newFakeWallet()
	rec := &recorderSpy{}
	events := &eventLog{}

	res, err := New(fastOptions(), events).Issue(context.Background(), Deps{
		Wallet: wallet, Network: net, Recorder: rec,
	}, doge2(t))
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000_000_000_000), res.BaseUnits)
	assert.Equal(t, dom.AuthorityFlags{RevokeMint: true}, res.Authorities)
	assert.Equal(t, wallet.acct.PublicKey.ToBase58(), res.Owner)
	assert.NotEmpty(t, res.MintAddress)
	assert.NotEmpty(t, res.HoldingAccount)
	assert.NotEmpty(t, res.Reference)
	assert.True(t, res.Acknowledged)
	assert.Empty(t, res.Warnings)

	require.Equal(t, 1, net.broadcastCount())
	tx := net.broadcasts[0]
	assert.Len(t, tx.Message.Instructions, 5)
	assert.Len(t, tx.Signatures, 2)

	require.Len(t, rec.records, 1)
	assert.Equal(t, res.MintAddress, rec.records[0].MintAddress)
	assert.Equal(t, res.Reference, rec.records[0].Signature)
	assert.Equal(t, "1000000", rec.records[0].Supply)

	assert.Equal(t, dom.Stages[1:], events.stages())
}

func TestIssue_UserRejectedNeverBroadcasts(t *testing.T) {
	net := newFakeNetwork()
	wallet := newFakeWallet()
	wallet.SignFn = func(ctx context.Context, msg []byte) ([]byte, error) {
		return nil, errors.Join(dom.ErrUserRejected, errors.New("code 4001"))
	}

	p := New(fastOptions())
	var mint *MintIdentity
	p.newMint = func() *MintIdentity {
		mint = NewMintIdentity()
		return mint
	}

	_, err := p.Issue(context.Background(), Deps{Wallet: wallet, Network: net}, doge2(t))
	require.Error(t, err)

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindUserRejected, pe.Kind)
	assert.Equal(t, dom.StageSigning, pe.Stage)
	assert.Empty(t, pe.Reference)
	assert.Equal(t, 0, net.broadcastCount())
	assert.True(t, mint.Discarded(), "mint key must be wiped on failure")
}

func TestIssue_ConfirmationTimeoutCarriesReferenceAndNeverResubmits(t *testing.T) {
	net := newFakeNetwork()
	net.StatusFn = func(sig string, poll int) (*SignatureStatus, error) {
		return &SignatureStatus{Slot: 7, Commitment: CommitmentProcessed}, nil
	}

	opts := fastOptions()
	opts.ConfirmTimeout = 50 * time.Millisecond
	_, err := New(opts).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindConfirmationTimeout, pe.Kind)
	assert.Equal(t, dom.StageConfirming, pe.Stage)
	assert.NotEmpty(t, pe.Reference)
	assert.ErrorIs(t, err, dom.ErrConfirmationTimeout)
	assert.Equal(t, 1, net.broadcastCount())
	assert.Greater(t, net.polls, 1)
}

func TestIssue_CancelAfterBroadcastIsTimeout(t *testing.T) {
	net := newFakeNetwork()
	ctx, cancel := context.WithCancel(context.Background())
	net.StatusFn = func(sig string, poll int) (*SignatureStatus, error) {
		cancel()
		return nil, nil
	}

	_, err := New(fastOptions()).Issue(ctx, Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindConfirmationTimeout, pe.Kind)
	assert.NotEmpty(t, pe.Reference)
}

func TestIssue_ExpiredBlockhashEndsWait(t *testing.T) {
	net := newFakeNetwork()
	net.StatusFn = func(sig string, poll int) (*SignatureStatus, error) {
		net.mu.Lock()
		net.height = 1000
		net.mu.Unlock()
		return nil, nil
	}

	opts := fastOptions()
	opts.ConfirmTimeout = 5 * time.Second
	start := time.Now()
	_, err := New(opts).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	assert.ErrorIs(t, err, dom.ErrConfirmationTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, net.broadcastCount())
}

func TestIssue_ExecutionRejected(t *testing.T) {
	net := newFakeNetwork()
	net.StatusFn = func(sig string, poll int) (*SignatureStatus, error) {
		return &SignatureStatus{Slot: 9, Commitment: CommitmentConfirmed, ExecErr: `{"InstructionError":[3,"Custom"]}`}, nil
	}

	rec := &recorderSpy{}
	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net, Recorder: rec}, doge2(t))

	assert.ErrorIs(t, err, dom.ErrExecutionRejected)
	assert.Empty(t, rec.records)
}

func TestIssue_RecordingFailureIsWarning(t *testing.T) {
	net := newFakeNetwork()
	ok, err := New(fastOptions()).Issue(context.Background(), Deps{
		Wallet: newFakeWallet(), Network: net, Recorder: &recorderSpy{},
	}, doge2(t))
	require.NoError(t, err)

	failing := &recorderSpy{err: errors.New("503 service unavailable")}
	p := New(fastOptions())
	res, err := p.Issue(context.Background(), Deps{
		Wallet: newFakeWallet(), Network: newFakeNetwork(), Recorder: failing,
	}, doge2(t))
	require.NoError(t, err)

	assert.False(t, res.Acknowledged)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, dom.KindRecordingFailed, res.Warnings[0].Kind)
	require.Len(t, failing.records, 1)
	assert.Equal(t, failing.records[0].MintAddress, res.MintAddress)
	assert.Equal(t, failing.records[0].Signature, res.Reference)
	assert.NotEmpty(t, ok.MintAddress)
}

func TestIssue_NoRecorderWarns(t *testing.T) {
	res, err := New(fastOptions()).Issue(context.Background(), Deps{
		Wallet: newFakeWallet(), Network: newFakeNetwork(),
	}, doge2(t))
	require.NoError(t, err)
	assert.False(t, res.Acknowledged)
	assert.Len(t, res.Warnings, 1)
}

func TestIssue_InvalidInputBeforeNetwork(t *testing.T) {
	req := doge2(t)
	req.Decimals = 12

	net := newFakeNetwork()
	wallet := newFakeWallet()
	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: wallet, Network: net}, req)

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindInvalidInput, pe.Kind)
	assert.Equal(t, dom.StageValidating, pe.Stage)
	assert.Equal(t, 0, wallet.calls)
}

func TestIssue_CancelledWhileWaitingForWallet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wallet := newFakeWallet()
	wallet.SignFn = func(wctx context.Context, msg []byte) ([]byte, error) {
		cancel()
		<-wctx.Done()
		return nil, wctx.Err()
	}
	net := newFakeNetwork()

	_, err := New(fastOptions()).Issue(ctx, Deps{Wallet: wallet, Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindCancelled, pe.Kind)
	assert.Equal(t, 0, net.broadcastCount())
}

func TestIssue_ConnectRejected(t *testing.T) {
	wallet := newFakeWallet()
	wallet.ConnectErr = dom.ErrUserRejected

	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: wallet, Network: newFakeNetwork()}, doge2(t))
	assert.ErrorIs(t, err, dom.ErrUserRejected)
}

func TestIssue_StaleBroadcastKeepsKind(t *testing.T) {
	net := newFakeNetwork()
	net.BroadcastFn = func(tx types.Transaction) (string, error) {
		return "", fmt.Errorf("%w: Blockhash not found", dom.ErrStaleFreshnessToken)
	}

	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindStaleFreshnessToken, pe.Kind)
	assert.Equal(t, dom.StageSubmitting, pe.Stage)
	assert.Equal(t, 1, net.broadcastCount())
	assert.Zero(t, net.polls)
}

func TestIssue_StaleAfterSlowSignature(t *testing.T) {
	net := newFakeNetwork()
	wallet := newFakeWallet()

	p := New(fastOptions())
	clock := time.Now()
	p.now = func() time.Time { return clock }
	wallet.SignFn = func(ctx context.Context, msg []byte) ([]byte, error) {
		clock = clock.Add(5 * time.Minute)
		net.mu.Lock()
		net.height = net.lastValid + 1
		net.mu.Unlock()
		return wallet.acct.Sign(msg), nil
	}

	_, err := p.Issue(context.Background(), Deps{Wallet: wallet, Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindStaleFreshnessToken, pe.Kind)
	assert.Equal(t, dom.StageSigning, pe.Stage)
	assert.Equal(t, 0, net.broadcastCount())
}

func TestIssue_LostBroadcastResponsePollsReference(t *testing.T) {
	net := newFakeNetwork()
	net.BroadcastFn = func(tx types.Transaction) (string, error) {
		return "", errors.New("solana rpc: http do: read tcp: i/o timeout")
	}
	events := &eventLog{}

	res, err := New(fastOptions(), events).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reference)
	assert.Equal(t, 1, net.broadcastCount())
	assert.Positive(t, net.polls)
	assert.Equal(t, dom.Stages[1:], events.stages())
}

func TestIssue_LostBroadcastResponseUnseenIsTimeout(t *testing.T) {
	net := newFakeNetwork()
	net.BroadcastFn = func(tx types.Transaction) (string, error) {
		return "", fmt.Errorf("%w: connection reset by peer", ErrBroadcastUnacknowledged)
	}
	net.StatusFn = func(sig string, poll int) (*SignatureStatus, error) { return nil, nil }

	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindConfirmationTimeout, pe.Kind)
	assert.Equal(t, dom.StageConfirming, pe.Stage)
	assert.NotEmpty(t, pe.Reference)
	assert.NotErrorIs(t, err, dom.ErrBroadcastRejected)
	assert.Equal(t, 1, net.broadcastCount())
}

func TestIssue_NodeRejectionStopsAtSubmitting(t *testing.T) {
	net := newFakeNetwork()
	net.BroadcastFn = func(tx types.Transaction) (string, error) {
		return "", fmt.Errorf("%w: insufficient lamports", dom.ErrBroadcastRejected)
	}

	_, err := New(fastOptions()).Issue(context.Background(), Deps{Wallet: newFakeWallet(), Network: net}, doge2(t))

	var pe *dom.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, dom.KindBroadcastRejected, pe.Kind)
	assert.Equal(t, dom.StageSubmitting, pe.Stage)
	assert.Zero(t, net.polls)
}

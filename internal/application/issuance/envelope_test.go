package issuance

import (
	"context"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "splforge/internal/domain/issuance"
)

type envFixture struct {
	env   *Envelope
	net   *fakeNetwork
	payer types.Account
	mint  types.Account
}

func newEnvFixture(t *testing.T) envFixture {
	t.Helper()
	net := newFakeNetwork()
	payer := types.NewAccount()
	mint := types.NewAccount()

	req := doge2(t)
	amount, err := req.BaseUnits()
	require.NoError(t, err)
	set, err := NewBuilder(net, FreezeOmitAtInit).Build(context.Background(), Plan{
		Request: req, Amount: amount, Payer: payer.PublicKey, Mint: mint.PublicKey,
	})
	require.NoError(t, err)

	env, err := NewAssembler(net).Assemble(context.Background(), set, payer.PublicKey)
	require.NoError(t, err)
	return envFixture{env: env, net: net, payer: payer, mint: mint}
}

func TestEnvelope_SignerSlots(t *testing.T) {
	f := newEnvFixture(t)

	signers := f.env.Signers()
	require.Len(t, signers, 2)
	assert.Equal(t, f.payer.PublicKey, signers[0], "fee payer is slot 0")
	assert.Contains(t, signers, f.mint.PublicKey)
	assert.Equal(t, EnvelopeUnsigned, f.env.State())
	assert.Empty(t, f.env.Reference())
	assert.Equal(t, testBlockhash, f.env.Freshness().Blockhash)
	assert.False(t, f.env.Freshness().FetchedAt.IsZero())
}

func TestEnvelope_SubmitRequiresBothSignatures(t *testing.T) {
	orders := map[string]func(f envFixture) types.Account{
		"mint only":  func(f envFixture) types.Account { return f.mint },
		"payer only": func(f envFixture) types.Account { return f.payer },
	}
	for name, pick := range orders {
		t.Run(name, func(t *testing.T) {
			f := newEnvFixture(t)
			acct := pick(f)
			require.NoError(t, f.env.AddSignature(acct.PublicKey, acct.Sign(f.env.Message())))
			assert.Equal(t, EnvelopePartiallySigned, f.env.State())

			_, err := f.env.Transaction()
			assert.ErrorIs(t, err, dom.ErrNotFullySigned)

			_, err = NewTracker(f.net, fastOptions()).Submit(context.Background(), f.env)
			assert.ErrorIs(t, err, dom.ErrNotFullySigned)
			assert.Equal(t, 0, f.net.broadcastCount())
		})
	}
}

func TestEnvelope_FullySignedInEitherOrder(t *testing.T) {
	for _, payerFirst := range []bool{true, false} {
		f := newEnvFixture(t)
		msg := f.env.Message()
		first, second := f.mint, f.payer
		if payerFirst {
			first, second = f.payer, f.mint
		}
		require.NoError(t, f.env.AddSignature(first.PublicKey, first.Sign(msg)))
		require.NoError(t, f.env.AddSignature(second.PublicKey, second.Sign(msg)))

		assert.True(t, f.env.FullySigned())
		assert.Equal(t, EnvelopeFullySigned, f.env.State())
		tx, err := f.env.Transaction()
		require.NoError(t, err)
		assert.Len(t, tx.Signatures, 2)
		assert.NotEmpty(t, f.env.Reference())
	}
}

func TestEnvelope_RejectsBadSignatures(t *testing.T) {
	f := newEnvFixture(t)
	stranger := types.NewAccount()

	err := f.env.AddSignature(stranger.PublicKey, stranger.Sign(f.env.Message()))
	assert.ErrorIs(t, err, ErrUnknownSigner)

	err = f.env.AddSignature(f.payer.PublicKey, f.payer.Sign([]byte("something else")))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	err = f.env.AddSignature(f.payer.PublicKey, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, EnvelopeUnsigned, f.env.State())
}

func TestTracker_SubmitOnlyOnce(t *testing.T) {
	f := newEnvFixture(t)
	msg := f.env.Message()
	require.NoError(t, f.env.AddSignature(f.payer.PublicKey, f.payer.Sign(msg)))
	require.NoError(t, f.env.AddSignature(f.mint.PublicKey, f.mint.Sign(msg)))

	tr := NewTracker(f.net, fastOptions())
	ref, err := tr.Submit(context.Background(), f.env)
	require.NoError(t, err)
	assert.Equal(t, f.env.Reference(), ref)

	again, err := tr.Submit(context.Background(), f.env)
	assert.ErrorIs(t, err, ErrEnvelopeSealed)
	assert.Equal(t, ref, again)
	assert.Equal(t, 1, f.net.broadcastCount())
}

func TestEnvelope_CheckFresh(t *testing.T) {
	f := newEnvFixture(t)
	assert.NoError(t, f.env.CheckFresh(context.Background(), f.net))

	f.net.height = f.net.lastValid + 1
	assert.ErrorIs(t, f.env.CheckFresh(context.Background(), f.net), dom.ErrStaleFreshnessToken)
}

func TestSigner_DiscardsMintKey(t *testing.T) {
	f := newEnvFixture(t)
	mint := &MintIdentity{account: f.mint}
	wallet := &fakeWallet{acct: f.payer}

	require.NoError(t, Signer{}.Sign(context.Background(), f.env, mint, wallet))
	assert.True(t, f.env.FullySigned())
	assert.True(t, mint.Discarded())

	_, err := mint.sign([]byte("again"))
	assert.ErrorIs(t, err, ErrMintIdentityUsed)
}

func TestSigner_WalletErrorsClassified(t *testing.T) {
	f := newEnvFixture(t)
	wallet := &fakeWallet{acct: f.payer}
	wallet.SignFn = func(ctx context.Context, msg []byte) ([]byte, error) {
		return nil, assert.AnError
	}

	err := Signer{}.Sign(context.Background(), f.env, &MintIdentity{account: f.mint}, wallet)
	assert.ErrorIs(t, err, dom.ErrWalletUnavailable)
	assert.Equal(t, EnvelopePartiallySigned, f.env.State())
}

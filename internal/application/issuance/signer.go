// internal/application/issuance/signer.go
package issuance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	dom "splforge/internal/domain/issuance"
)

// ============================================================
// MintIdentity
// ============================================================

// MintIdentity is the ephemeral keypair whose public half becomes the mint
// address. It signs exactly once and is then discarded.
type MintIdentity struct {
	mu      sync.Mutex
	account types.Account
	used    bool
	gone    bool
}

var ErrMintIdentityUsed = errors.New("issuance: mint identity already used")

// NewMintIdentity generates a fresh keypair.
func NewMintIdentity() *MintIdentity {
	return &MintIdentity{account: types.NewAccount()}
}

func (m *MintIdentity) PublicKey() common.PublicKey {
	return m.account.PublicKey
}

func (m *MintIdentity) sign(message []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used || m.gone {
		return nil, ErrMintIdentityUsed
	}
	m.used = true
	return m.account.Sign(message), nil
}

// Discard zeroes the private key. Safe to call more than once.
func (m *MintIdentity) Discard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.account.PrivateKey {
		m.account.PrivateKey[i] = 0
	}
	m.account.PrivateKey = nil
	m.gone = true
}

// Discarded reports whether the private key has been wiped.
func (m *MintIdentity) Discarded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gone
}

// ============================================================
// Signer (dual-signer coordinator)
// ============================================================

// Signer collects the mint identity's signature and then the wallet's.
type Signer struct{}

// Sign fills both signature slots of env. The mint identity is discarded on
// return regardless of outcome.
func (Signer) Sign(ctx context.Context, env *Envelope, mint *MintIdentity, w Wallet) error {
	defer mint.Discard()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", dom.ErrCancelled, err)
	}
	if w == nil {
		return fmt.Errorf("%w: no wallet", dom.ErrWalletUnavailable)
	}

	msg := env.Message()

	// (a) ephemeral mint key signs locally
	sig, err := mint.sign(msg)
	if err != nil {
		return err
	}
	if err := env.AddSignature(mint.PublicKey(), sig); err != nil {
		return fmt.Errorf("issuance: mint signature: %w", err)
	}

	// (b) wallet signs; may block on the user so it must honour cancellation
	type reply struct {
		sig []byte
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		s, err := w.SignMessage(ctx, msg)
		ch <- reply{s, err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for wallet: %v", dom.ErrCancelled, ctx.Err())
	case r = <-ch:
	}

	if r.err != nil {
		switch {
		case errors.Is(r.err, dom.ErrUserRejected):
			return r.err
		case errors.Is(r.err, context.Canceled), errors.Is(r.err, context.DeadlineExceeded):
			return fmt.Errorf("%w: %v", dom.ErrCancelled, r.err)
		case errors.Is(r.err, dom.ErrWalletUnavailable):
			return r.err
		default:
			return fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, r.err)
		}
	}

	if err := env.AddSignature(env.FeePayer(), r.sig); err != nil {
		return fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, err)
	}
	if !env.FullySigned() {
		return fmt.Errorf("%w: %w", dom.ErrWalletUnavailable, dom.ErrNotFullySigned)
	}
	return nil
}

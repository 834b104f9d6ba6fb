// internal/infra/solana/wallet_keypair.go
package solana

import (
	"context"
	"fmt"
	"log"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// ApproveFunc asks the human behind the wallet whether to sign. Returning
// false is a user rejection.
type ApproveFunc func(ctx context.Context, signer common.PublicKey, message []byte) (bool, error)

// KeypairWallet signs with a locally held keypair, optionally gated by an
// approval prompt.
type KeypairWallet struct {
	acct    types.Account
	Approve ApproveFunc
}

func NewKeypairWallet(acct types.Account, approve ApproveFunc) *KeypairWallet {
	return &KeypairWallet{acct: acct, Approve: approve}
}

// NewKeypairFileWallet loads a solana-keygen keypair file.
func NewKeypairFileWallet(path string, approve ApproveFunc) (*KeypairWallet, error) {
	acct, err := LoadKeypairFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, err)
	}
	log.Printf("[wallet] loaded keypair file owner=%s", maskShort(acct.PublicKey.ToBase58()))
	return NewKeypairWallet(acct, approve), nil
}

var _ app.Wallet = (*KeypairWallet)(nil)

func (w *KeypairWallet) Connect(ctx context.Context) (common.PublicKey, error) {
	if w == nil || len(w.acct.PrivateKey) == 0 {
		return common.PublicKey{}, dom.ErrWalletUnavailable
	}
	return w.acct.PublicKey, nil
}

func (w *KeypairWallet) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if w == nil || len(w.acct.PrivateKey) == 0 {
		return nil, dom.ErrWalletUnavailable
	}
	if w.Approve != nil {
		ok, err := w.Approve(ctx, w.acct.PublicKey, message)
		if err != nil {
			return nil, fmt.Errorf("%w: approval prompt: %v", dom.ErrWalletUnavailable, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: signature request declined", dom.ErrUserRejected)
		}
	}
	return w.acct.Sign(message), nil
}

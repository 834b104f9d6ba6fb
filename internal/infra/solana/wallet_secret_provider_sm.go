// internal/infra/solana/wallet_secret_provider_sm.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	dom "splforge/internal/domain/issuance"
)

var (
	ErrWalletSecretNotConfigured = errors.New("wallet_secret_provider: not configured")
	ErrWalletSecretNotFound      = errors.New("wallet_secret_provider: secret not found")
)

// WalletSecretProviderSM loads an issuer keypair ([int,...] JSON) from
// GCP Secret Manager.
type WalletSecretProviderSM struct {
	Client    *secretmanager.Client
	ProjectID string
}

// NewWalletSecretProviderSM resolves the project from the argument, then
// GOOGLE_CLOUD_PROJECT, then GCP_PROJECT.
func NewWalletSecretProviderSM(ctx context.Context, projectID string, opts ...option.ClientOption) (*WalletSecretProviderSM, error) {
	pid := strings.TrimSpace(projectID)
	if pid == "" {
		pid = strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
	}
	if pid == "" {
		pid = strings.TrimSpace(os.Getenv("GCP_PROJECT"))
	}
	if pid == "" {
		return nil, fmt.Errorf("%w: projectID is empty", ErrWalletSecretNotConfigured)
	}

	c, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager.NewClient: %w", err)
	}
	return &WalletSecretProviderSM{Client: c, ProjectID: pid}, nil
}

func (p *WalletSecretProviderSM) Close() error {
	if p == nil || p.Client == nil {
		return nil
	}
	return p.Client.Close()
}

// Wallet reads secretID (latest version) and returns a KeypairWallet for it.
func (p *WalletSecretProviderSM) Wallet(ctx context.Context, secretID string, approve ApproveFunc) (*KeypairWallet, error) {
	if p == nil || p.Client == nil {
		return nil, fmt.Errorf("%w: %w", dom.ErrWalletUnavailable, ErrWalletSecretNotConfigured)
	}
	sid := strings.TrimSpace(secretID)
	if sid == "" {
		return nil, fmt.Errorf("%w: %w: secretID is empty", dom.ErrWalletUnavailable, ErrWalletSecretNotConfigured)
	}

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", p.ProjectID, sid)
	res, err := p.Client.AccessSecretVersion(ctx, &smpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %w: %s", dom.ErrWalletUnavailable, ErrWalletSecretNotFound, name)
		}
		return nil, fmt.Errorf("%w: access secret version %s: %v", dom.ErrWalletUnavailable, name, err)
	}
	if res == nil || res.Payload == nil {
		return nil, fmt.Errorf("%w: %w", dom.ErrWalletUnavailable, ErrWalletSecretNotFound)
	}

	acct, err := DecodeKeypairJSON(res.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, err)
	}
	log.Printf("[wallet] loaded keypair from secret manager secret=%s owner=%s", sid, maskShort(acct.PublicKey.ToBase58()))
	return NewKeypairWallet(acct, approve), nil
}

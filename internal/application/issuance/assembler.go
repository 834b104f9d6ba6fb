// internal/application/issuance/assembler.go
package issuance

import (
	"context"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"

	dom "splforge/internal/domain/issuance"
)

type blockhashSource interface {
	LatestBlockhash(ctx context.Context) (Freshness, error)
}

// Assembler packages an InstructionSet into an Envelope.
type Assembler struct {
	net blockhashSource
	now func() time.Time
}

func NewAssembler(net blockhashSource) *Assembler {
	return &Assembler{net: net, now: time.Now}
}

// Assemble fetches the freshness token and compiles the envelope with payer
// as fee payer. Call it right before signing: the token expires quickly.
func (a *Assembler) Assemble(ctx context.Context, set InstructionSet, payer common.PublicKey) (*Envelope, error) {
	if err := set.ValidateOrder(); err != nil {
		return nil, err
	}
	fr, err := a.net.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: latest blockhash: %v", dom.ErrNetwork, err)
	}
	if fr.FetchedAt.IsZero() {
		fr.FetchedAt = a.now()
	}
	return NewEnvelope(payer, set, fr)
}

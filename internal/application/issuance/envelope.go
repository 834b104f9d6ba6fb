// internal/application/issuance/envelope.go
package issuance

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"

	dom "splforge/internal/domain/issuance"
)

// EnvelopeState is the lifecycle of a signed envelope.
type EnvelopeState string

const (
	EnvelopeUnsigned        EnvelopeState = "Unsigned"
	EnvelopePartiallySigned EnvelopeState = "PartiallySigned"
	EnvelopeFullySigned     EnvelopeState = "FullySigned"
	EnvelopeSubmitted       EnvelopeState = "Submitted"
	EnvelopeConfirmed       EnvelopeState = "Confirmed"
	EnvelopeRejected        EnvelopeState = "Rejected"
)

var (
	ErrUnknownSigner    = errors.New("issuance: signer is not required by this envelope")
	ErrInvalidSignature = errors.New("issuance: signature does not verify")
	ErrEnvelopeSealed   = errors.New("issuance: envelope already submitted")
)

// Envelope is the compiled message plus its freshness token, fee payer and
// signature slots. Slot 0 always belongs to the fee payer, so the fee payer's
// signature doubles as the transaction reference.
type Envelope struct {
	message   types.Message
	raw       []byte
	signers   []common.PublicKey
	sigs      [][]byte
	freshness Freshness
	set       InstructionSet
	state     EnvelopeState
}

// NewEnvelope compiles set into a message citing fr with payer as fee payer.
func NewEnvelope(payer common.PublicKey, set InstructionSet, fr Freshness) (*Envelope, error) {
	if fr.Blockhash == "" {
		return nil, fmt.Errorf("%w: empty blockhash", dom.ErrStaleFreshnessToken)
	}
	msg := types.NewMessage(types.NewMessageParam{
		FeePayer:        payer,
		RecentBlockhash: fr.Blockhash,
		Instructions:    set.Instructions(),
	})
	raw, err := msg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("issuance: serialize message: %w", err)
	}

	n := int(msg.Header.NumRequireSignatures)
	if n == 0 || n > len(msg.Accounts) {
		return nil, fmt.Errorf("issuance: message requires %d signatures", n)
	}
	signers := make([]common.PublicKey, n)
	copy(signers, msg.Accounts[:n])
	if signers[0] != payer {
		return nil, fmt.Errorf("issuance: fee payer is not the first signer")
	}

	return &Envelope{
		message:   msg,
		raw:       raw,
		signers:   signers,
		sigs:      make([][]byte, n),
		freshness: fr,
		set:       set,
		state:     EnvelopeUnsigned,
	}, nil
}

func (e *Envelope) State() EnvelopeState { return e.state }
func (e *Envelope) Freshness() Freshness { return e.freshness }
func (e *Envelope) Set() InstructionSet { return e.set }
func (e *Envelope) FeePayer() common.PublicKey { return e.signers[0] }

// Message returns the bytes every signer signs.
func (e *Envelope) Message() []byte {
	out := make([]byte, len(e.raw))
	copy(out, e.raw)
	return out
}

// Signers lists the required signer keys in slot order.
func (e *Envelope) Signers() []common.PublicKey {
	out := make([]common.PublicKey, len(e.signers))
	copy(out, e.signers)
	return out
}

// AddSignature verifies sig against the message and stores it in signer's slot.
func (e *Envelope) AddSignature(signer common.PublicKey, sig []byte) error {
	if e.state != EnvelopeUnsigned && e.state != EnvelopePartiallySigned && e.state != EnvelopeFullySigned {
		return ErrEnvelopeSealed
	}
	idx := -1
	for i, s := range e.signers {
		if s == signer {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSigner, signer.ToBase58())
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(signer.Bytes()), e.raw, sig) {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, signer.ToBase58())
	}

	cp := make([]byte, len(sig))
	copy(cp, sig)
	e.sigs[idx] = cp

	if len(e.Missing()) == 0 {
		e.state = EnvelopeFullySigned
	} else {
		e.state = EnvelopePartiallySigned
	}
	return nil
}

// Missing lists signers whose slot is still empty.
func (e *Envelope) Missing() []common.PublicKey {
	var out []common.PublicKey
	for i, s := range e.sigs {
		if s == nil {
			out = append(out, e.signers[i])
		}
	}
	return out
}

func (e *Envelope) FullySigned() bool {
	return len(e.Missing()) == 0
}

// Transaction returns the wire transaction. It refuses unless every slot is filled.
func (e *Envelope) Transaction() (types.Transaction, error) {
	if !e.FullySigned() {
		return types.Transaction{}, fmt.Errorf("%w: %d missing", dom.ErrNotFullySigned, len(e.Missing()))
	}
	sigs := make([]types.Signature, len(e.sigs))
	for i, s := range e.sigs {
		sigs[i] = types.Signature(s)
	}
	return types.Transaction{Signatures: sigs, Message: e.message}, nil
}

// Reference is the base58 fee payer signature, or "" before the wallet signed.
func (e *Envelope) Reference() string {
	if len(e.sigs) == 0 || e.sigs[0] == nil {
		return ""
	}
	return base58.Encode(e.sigs[0])
}

func (e *Envelope) markSubmitted() { e.state = EnvelopeSubmitted }
func (e *Envelope) markConfirmed() { e.state = EnvelopeConfirmed }
func (e *Envelope) markRejected() { e.state = EnvelopeRejected }

type heightSource interface {
	BlockHeight(ctx context.Context) (uint64, error)
}

// CheckFresh fails with StaleFreshnessToken once the cluster has moved past the
// blockhash's last valid block height.
func (e *Envelope) CheckFresh(ctx context.Context, net heightSource) error {
	if e.freshness.LastValidBlockHeight == 0 {
		return nil
	}
	h, err := net.BlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("%w: block height: %v", dom.ErrNetwork, err)
	}
	if h > e.freshness.LastValidBlockHeight {
		return fmt.Errorf("%w: height=%d lastValid=%d", dom.ErrStaleFreshnessToken, h, e.freshness.LastValidBlockHeight)
	}
	return nil
}

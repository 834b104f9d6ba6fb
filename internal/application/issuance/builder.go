// internal/application/issuance/builder.go
package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"

	dom "splforge/internal/domain/issuance"
)

// Metaplex Token Metadata program
var metadataProgramID = common.PublicKeyFromString("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// StepKind names one instruction of the issuance transaction.
type StepKind string

const (
	StepCreateAccount        StepKind = "create-account"
	StepInitializeMint       StepKind = "initialize-mint"
	StepCreateHoldingAccount StepKind = "create-holding-account"
	StepMintTo               StepKind = "mint-to"
	StepCreateMetadata       StepKind = "create-metadata"
	StepRevokeMint           StepKind = "revoke-mint-authority"
	StepRevokeUpdate         StepKind = "revoke-update-authority"
	StepRevokeFreeze         StepKind = "revoke-freeze-authority"
)

func (k StepKind) revocation() bool {
	return k == StepRevokeMint || k == StepRevokeUpdate || k == StepRevokeFreeze
}

// Step is one ordered operation.
type Step struct {
	Kind        StepKind
	Instruction types.Instruction
}

// InstructionSet is the ordered list of operations. Order is part of its meaning.
type InstructionSet struct {
	Steps          []Step
	Mint           common.PublicKey
	HoldingAccount common.PublicKey
	Amount         uint64
	// Authorities is what the set actually does to authorities on-chain.
	Authorities dom.AuthorityFlags
}

func (s InstructionSet) Instructions() []types.Instruction {
	out := make([]types.Instruction, 0, len(s.Steps))
	for _, st := range s.Steps {
		out = append(out, st.Instruction)
	}
	return out
}

func (s InstructionSet) Kinds() []StepKind {
	out := make([]StepKind, 0, len(s.Steps))
	for _, st := range s.Steps {
		out = append(out, st.Kind)
	}
	return out
}

var ErrInstructionOrder = errors.New("issuance: instruction order violated")

var requiredPrefix = []StepKind{
	StepCreateAccount,
	StepInitializeMint,
	StepCreateHoldingAccount,
	StepMintTo,
}

// ValidateOrder checks the dependency order: account before init, init before
// holding account and mint-to, optional metadata next, revocations strictly last.
func (s InstructionSet) ValidateOrder() error {
	kinds := s.Kinds()
	if len(kinds) < len(requiredPrefix) {
		return fmt.Errorf("%w: %d steps", ErrInstructionOrder, len(kinds))
	}
	for i, want := range requiredPrefix {
		if kinds[i] != want {
			return fmt.Errorf("%w: step %d is %s, want %s", ErrInstructionOrder, i, kinds[i], want)
		}
	}

	rest := kinds[len(requiredPrefix):]
	if len(rest) > 0 && rest[0] == StepCreateMetadata {
		rest = rest[1:]
	}
	seen := map[StepKind]bool{}
	for _, k := range rest {
		if !k.revocation() {
			return fmt.Errorf("%w: %s after mint-to", ErrInstructionOrder, k)
		}
		if seen[k] {
			return fmt.Errorf("%w: duplicate %s", ErrInstructionOrder, k)
		}
		seen[k] = true
	}
	if seen[StepRevokeUpdate] && !contains(kinds, StepCreateMetadata) {
		return fmt.Errorf("%w: update authority revoked without metadata", ErrInstructionOrder)
	}
	return nil
}

func contains(ks []StepKind, k StepKind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

// Plan is the input of Builder.Build.
type Plan struct {
	Request dom.Request
	Amount  uint64
	Payer   common.PublicKey
	Mint    common.PublicKey
}

type rentSource interface {
	RentExemptMinimum(ctx context.Context, size uint64) (uint64, error)
}

// Builder produces the InstructionSet for a Plan.
type Builder struct {
	rent   rentSource
	freeze FreezePolicy
}

func NewBuilder(rent rentSource, freeze FreezePolicy) *Builder {
	if freeze == "" {
		freeze = FreezeOmitAtInit
	}
	return &Builder{rent: rent, freeze: freeze}
}

// Build fetches the rent-exempt minimum for the mint record and emits the steps.
func (b *Builder) Build(ctx context.Context, p Plan) (InstructionSet, error) {
	if b == nil || b.rent == nil {
		return InstructionSet{}, errors.New("issuance: builder is not configured")
	}
	if p.Amount == 0 {
		return InstructionSet{}, fmt.Errorf("%w: amount is zero", dom.ErrInvalidInput)
	}

	lamports, err := b.rent.RentExemptMinimum(ctx, token.MintAccountSize)
	if err != nil {
		return InstructionSet{}, fmt.Errorf("%w: rent exempt minimum: %v", dom.ErrNetwork, err)
	}

	ata, _, err := common.FindAssociatedTokenAddress(p.Payer, p.Mint)
	if err != nil {
		return InstructionSet{}, fmt.Errorf("issuance: derive holding account: %w", err)
	}

	flags := p.Request.Authorities
	var freezeAuth *common.PublicKey
	if !(flags.RevokeFreeze && b.freeze == FreezeOmitAtInit) {
		payer := p.Payer
		freezeAuth = &payer
	}

	steps := make([]Step, 0, 8)

	// 1) Mint アカウント作成
	steps = append(steps, Step{StepCreateAccount, system.CreateAccount(system.CreateAccountParam{
		From:     p.Payer,
		New:      p.Mint,
		Owner:    common.TokenProgramID,
		Lamports: lamports,
		Space:    token.MintAccountSize,
	})})

	// 2) Mint 初期化
	steps = append(steps, Step{StepInitializeMint, token.InitializeMint(token.InitializeMintParam{
		Decimals:   uint8(p.Request.Decimals),
		Mint:       p.Mint,
		MintAuth:   p.Payer,
		FreezeAuth: freezeAuth,
	})})

	// 3) Owner の ATA 作成
	steps = append(steps, Step{StepCreateHoldingAccount, associated_token_account.CreateAssociatedTokenAccount(
		associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 p.Payer,
			Owner:                  p.Payer,
			Mint:                   p.Mint,
			AssociatedTokenAccount: ata,
		},
	)})

	// 4) 初期供給をミント
	steps = append(steps, Step{StepMintTo, token.MintTo(token.MintToParam{
		Mint:   p.Mint,
		To:     ata,
		Auth:   p.Payer,
		Amount: p.Amount,
	})})

	// 5) Metaplex metadata (mint authority がまだ生きているうちに作る)
	var metadata common.PublicKey
	if p.Request.NeedsMetadata() {
		metadata, err = token_metadata.GetTokenMetaPubkey(p.Mint)
		if err != nil {
			return InstructionSet{}, fmt.Errorf("issuance: derive metadata account: %w", err)
		}
		steps = append(steps, Step{StepCreateMetadata, token_metadata.CreateMetadataAccountV3(
			token_metadata.CreateMetadataAccountV3Param{
				Metadata:                metadata,
				Mint:                    p.Mint,
				MintAuthority:           p.Payer,
				UpdateAuthority:         p.Payer,
				Payer:                   p.Payer,
				UpdateAuthorityIsSigner: true,
				IsMutable:               true,
				Data: token_metadata.DataV2{
					Name:   p.Request.Name,
					Symbol: p.Request.Symbol,
					Uri:    p.Request.MetadataURI,
				},
			},
		)})
	}

	// 6) Authority revocations, always last
	if flags.RevokeMint {
		steps = append(steps, Step{StepRevokeMint, token.SetAuthority(token.SetAuthorityParam{
			Account:  p.Mint,
			NewAuth:  nil,
			AuthType: token.AuthorityTypeMintTokens,
			Auth:     p.Payer,
		})})
	}
	if flags.RevokeUpdate {
		steps = append(steps, Step{StepRevokeUpdate, buildRevokeUpdateAuthorityIx(metadata, p.Payer)})
	}
	if flags.RevokeFreeze && b.freeze == FreezeRevokeAfter {
		steps = append(steps, Step{StepRevokeFreeze, token.SetAuthority(token.SetAuthorityParam{
			Account:  p.Mint,
			NewAuth:  nil,
			AuthType: token.AuthorityTypeFreezeAccount,
			Auth:     p.Payer,
		})})
	}

	set := InstructionSet{
		Steps:          steps,
		Mint:           p.Mint,
		HoldingAccount: ata,
		Amount:         p.Amount,
		Authorities:    flags,
	}
	if err := set.ValidateOrder(); err != nil {
		return InstructionSet{}, err
	}
	return set, nil
}

// buildRevokeUpdateAuthorityIx builds a Metaplex UpdateMetadataAccountV2 that
// flips is_mutable to false, after which no authority can change the metadata.
// Accounts:
// 0. [writable] metadata
// 1. [signer] update authority
//
// Data (borsh): u8 discriminator=15, Option<DataV2>=None, Option<Pubkey>=None,
// Option<bool> primary_sale_happened=None, Option<bool> is_mutable=Some(false)
func buildRevokeUpdateAuthorityIx(metadata, updateAuthority common.PublicKey) types.Instruction {
	return types.Instruction{
		ProgramID: metadataProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: metadata, IsSigner: false, IsWritable: true},
			{PubKey: updateAuthority, IsSigner: true, IsWritable: false},
		},
		Data: []byte{15, 0, 0, 0, 1, 0},
	}
}

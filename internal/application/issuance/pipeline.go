// internal/application/issuance/pipeline.go
package issuance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/common"

	dom "splforge/internal/domain/issuance"
)

// Pipeline sequences one issuance run:
// Validating -> Building -> Assembling -> Signing -> Submitting -> Confirming -> Recording -> Done,
// with Failed reachable from any stage. Nothing is retried automatically;
// a caller that wants another attempt starts over with a fresh request.
type Pipeline struct {
	opts      Options
	observers observers

	newMint func() *MintIdentity
	now     func() time.Time
}

func New(opts Options, obs ...Observer) *Pipeline {
	return &Pipeline{
		opts:      opts.withDefaults(),
		observers: observers(obs),
		newMint:   NewMintIdentity,
		now:       time.Now,
	}
}

func (p *Pipeline) Options() Options { return p.opts }

// run is the per-request state. Nothing in it is shared across requests.
type run struct {
	p       *Pipeline
	ctx     context.Context
	obs     observers
	m       *dom.Machine
	entered time.Time

	mint string
	ref  string
}

func (r *run) advance(to dom.Stage) {
	from := r.m.Current()
	if err := r.m.Advance(to); err != nil {
		// programming error: stage order is fixed below
		panic(err)
	}
	now := r.p.now()
	ev := Event{
		Stage:       to,
		Previous:    from,
		Elapsed:     now.Sub(r.entered),
		At:          now,
		MintAddress: r.mint,
		Reference:   r.ref,
	}
	r.entered = now
	r.obs.OnStage(r.ctx, ev)
}

func (r *run) fail(kind dom.Kind, err error) error {
	stage := r.m.Current()
	pe := &dom.PipelineError{Kind: kind, Stage: stage, Reference: r.ref, Err: err}

	_ = r.m.Advance(dom.StageFailed)
	now := r.p.now()
	r.obs.OnStage(r.ctx, Event{
		Stage:       dom.StageFailed,
		Previous:    stage,
		Elapsed:     now.Sub(r.entered),
		At:          now,
		MintAddress: r.mint,
		Reference:   r.ref,
		Kind:        kind,
		Err:         err,
	})
	log.Printf("[issuance] FAILED stage=%s kind=%s mint=%s ref=%s err=%v",
		stage, kind, maskShort(r.mint), maskShort(r.ref), err)
	return pe
}

// failErr classifies err, treating context cancellation before broadcast as Cancelled.
func (r *run) failErr(err error) error {
	cancelled := r.ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if cancelled && !r.m.Current().Broadcast() && !errors.Is(err, dom.ErrUserRejected) {
		return r.fail(dom.KindCancelled, err)
	}
	return r.fail(dom.KindOf(err), err)
}

// Issue runs the pipeline for req. On success the returned result always
// reflects the confirmed on-chain state; recording problems only add warnings.
// On failure the error is a *dom.PipelineError.
func (p *Pipeline) Issue(ctx context.Context, deps Deps, req dom.Request) (*dom.Result, error) {
	obs := p.observers
	if deps.Observer != nil {
		obs = append(append(observers{}, p.observers...), deps.Observer)
	}
	r := &run{p: p, ctx: ctx, obs: obs, m: dom.NewMachine(), entered: p.now()}

	// ---- Validating ----
	if err := req.Validate(); err != nil {
		return nil, r.failErr(err)
	}
	amount, err := req.BaseUnits()
	if err != nil {
		return nil, r.failErr(err)
	}
	if deps.Network == nil {
		return nil, r.fail(dom.KindNetwork, errors.New("issuance: no network configured"))
	}
	if deps.Wallet == nil {
		return nil, r.fail(dom.KindWalletUnavailable, dom.ErrWalletUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(dom.KindCancelled, err)
	}
	payer, err := connectWallet(ctx, deps.Wallet)
	if err != nil {
		return nil, r.failErr(err)
	}

	// ---- Building ----
	r.advance(dom.StageBuilding)
	mint := p.newMint()
	defer mint.Discard()
	r.mint = mint.PublicKey().ToBase58()

	set, err := NewBuilder(deps.Network, p.opts.FreezePolicy).Build(ctx, Plan{
		Request: req,
		Amount:  amount,
		Payer:   payer,
		Mint:    mint.PublicKey(),
	})
	if err != nil {
		return nil, r.failErr(err)
	}

	// ---- Assembling ----
	r.advance(dom.StageAssembling)
	env, err := NewAssembler(deps.Network).Assemble(ctx, set, payer)
	if err != nil {
		return nil, r.failErr(err)
	}

	// ---- Signing ----
	r.advance(dom.StageSigning)
	if err := (Signer{}).Sign(ctx, env, mint, deps.Wallet); err != nil {
		return nil, r.failErr(err)
	}
	if p.now().Sub(env.Freshness().FetchedAt) > p.opts.FreshnessWindow {
		if err := env.CheckFresh(ctx, deps.Network); err != nil {
			return nil, r.failErr(err)
		}
	}

	// ---- Submitting ----
	r.advance(dom.StageSubmitting)
	r.ref = env.Reference()
	tracker := NewTracker(deps.Network, p.opts)
	if _, err := tracker.Submit(ctx, env); err != nil {
		if !errors.Is(err, ErrBroadcastUnacknowledged) {
			return nil, r.failErr(err)
		}
		log.Printf("[issuance] WARN broadcast not acknowledged, polling mint=%s ref=%s err=%v",
			maskShort(r.mint), maskShort(r.ref), err)
	} else {
		log.Printf("[issuance] broadcast mint=%s ref=%s instructions=%d",
			maskShort(r.mint), maskShort(r.ref), len(set.Steps))
	}

	// ---- Confirming ----
	r.advance(dom.StageConfirming)
	out, err := tracker.Await(ctx, r.ref, env.Freshness().LastValidBlockHeight)
	if err != nil {
		if errors.Is(err, dom.ErrExecutionRejected) {
			env.markRejected()
		}
		return nil, r.failErr(err)
	}
	env.markConfirmed()

	res := &dom.Result{
		Name:           req.Name,
		Symbol:         req.Symbol,
		MintAddress:    r.mint,
		HoldingAccount: set.HoldingAccount.ToBase58(),
		Owner:          payer.ToBase58(),
		Reference:      out.Reference,
		Supply:         req.Supply,
		Decimals:       req.Decimals,
		BaseUnits:      amount,
		Authorities:    set.Authorities,
		MetadataURI:    req.MetadataURI,
		SocialLinks:    req.SocialLinks,
		ConfirmedAt:    p.now(),
	}

	// ---- Recording ----
	r.advance(dom.StageRecording)
	p.record(ctx, deps.Recorder, req, res)

	r.advance(dom.StageDone)
	log.Printf("[issuance] done mint=%s ref=%s slot=%d acknowledged=%t",
		maskShort(res.MintAddress), maskShort(res.Reference), out.Slot, res.Acknowledged)
	return res, nil
}

// record is best effort. The ledger state is final by now, so the call is
// detached from ctx cancellation and its failure becomes a warning.
func (p *Pipeline) record(ctx context.Context, rec Recorder, req dom.Request, res *dom.Result) {
	if rec == nil {
		res.AddWarning(dom.KindRecordingFailed, "no record-keeping service configured")
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.RecordTimeout)
	defer cancel()

	if err := rec.Record(rctx, dom.NewRecord(req, res)); err != nil {
		log.Printf("[issuance] WARN record failed mint=%s err=%v", maskShort(res.MintAddress), err)
		res.AddWarning(dom.KindRecordingFailed, fmt.Sprintf("record-keeping call failed: %v", err))
		return
	}
	res.Acknowledged = true
}

func connectWallet(ctx context.Context, w Wallet) (common.PublicKey, error) {
	pk, err := w.Connect(ctx)
	if err != nil {
		if errors.Is(err, dom.ErrUserRejected) || errors.Is(err, dom.ErrWalletUnavailable) {
			return common.PublicKey{}, err
		}
		return common.PublicKey{}, fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, err)
	}
	if pk == (common.PublicKey{}) {
		return common.PublicKey{}, fmt.Errorf("%w: wallet returned an empty public key", dom.ErrWalletUnavailable)
	}
	return pk, nil
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

// internal/application/usecase/issuance_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/blocto/solana-go-sdk/common"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

var (
	ErrIssuanceInFlight = errors.New("issuance: another issuance for this wallet is in flight")
	ErrMetadataUpload   = errors.New("issuance: metadata upload failed")
)

// IssueInput is the raw request from the CLI / HTTP layer.
type IssueInput struct {
	Name         string
	Symbol       string
	Description  string
	Supply       string
	Decimals     int
	RevokeMint   bool
	RevokeUpdate bool
	RevokeFreeze bool
	SocialLinks  map[string]string
	MetadataURI  string
	ImageURL     string

	// Observer receives this run's stage events (progress output).
	Observer app.Observer
}

// IssuanceUsecase wraps the pipeline with the per-wallet lock, the optional
// metadata upload and the submission journal.
type IssuanceUsecase struct {
	Pipeline *app.Pipeline
	Network  app.Network
	Wallet   WalletProvider
	Recorder app.Recorder

	// optional
	Locker   Locker
	Uploader MetadataUploader
	Journal  Journal
	LockTTL  time.Duration

	metadata *TokenMetadataBuilder
}

func NewIssuanceUsecase(
	pipeline *app.Pipeline,
	network app.Network,
	wallet WalletProvider,
	recorder app.Recorder,
) *IssuanceUsecase {
	return &IssuanceUsecase{
		Pipeline: pipeline,
		Network:  network,
		Wallet:   wallet,
		Recorder: recorder,
		metadata: NewTokenMetadataBuilder(),
	}
}

func (u *IssuanceUsecase) lockTTL() time.Duration {
	if u.LockTTL > 0 {
		return u.LockTTL
	}
	// 署名待ち + 確認待ちをカバーできる長さ
	return u.Pipeline.Options().ConfirmTimeout + 5*time.Minute
}

// Issue validates in, serializes on the wallet, uploads metadata when
// needed, then runs the pipeline. Pipeline failures are *dom.PipelineError.
func (u *IssuanceUsecase) Issue(ctx context.Context, in IssueInput) (*dom.Result, error) {
	req, err := dom.NewRequest(dom.RequestInput{
		Name:        in.Name,
		Symbol:      in.Symbol,
		Description: in.Description,
		Supply:      in.Supply,
		Decimals:    in.Decimals,
		Authorities: dom.AuthorityFlags{
			RevokeMint:   in.RevokeMint,
			RevokeUpdate: in.RevokeUpdate,
			RevokeFreeze: in.RevokeFreeze,
		},
		SocialLinks: in.SocialLinks,
		MetadataURI: in.MetadataURI,
	})
	if err != nil {
		return nil, dom.Fail(dom.StageValidating, dom.KindOf(err), err)
	}

	if u.Wallet == nil {
		return nil, dom.Fail(dom.StageValidating, dom.KindWalletUnavailable, dom.ErrWalletUnavailable)
	}
	w, err := u.Wallet(ctx)
	if err != nil {
		return nil, preflightFail(ctx, walletErr(err))
	}
	cw := &connectOnce{Wallet: w}
	owner, err := cw.Connect(ctx)
	if err != nil {
		return nil, preflightFail(ctx, walletErr(err))
	}

	if u.Locker != nil {
		unlock, err := u.Locker.TryLock(ctx, "wallet:"+owner.ToBase58(), u.lockTTL())
		if err != nil {
			if errors.Is(err, ErrLockHeld) {
				return nil, fmt.Errorf("%w: owner=%s", ErrIssuanceInFlight, maskShort(owner.ToBase58()))
			}
			return nil, fmt.Errorf("issuance: acquire lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Printf("[issuance] WARN unlock failed owner=%s err=%v", maskShort(owner.ToBase58()), err)
			}
		}()
	}

	if u.Uploader != nil && wantsUpload(req, in.ImageURL) {
		uri, err := u.uploadMetadata(ctx, req, in.ImageURL)
		if err != nil {
			return nil, err
		}
		req = req.WithMetadataURI(uri)
	}

	fp, err := dom.Fingerprint(req, owner.ToBase58())
	if err != nil {
		return nil, err
	}

	jr := &journalRun{
		journal: u.Journal,
		base: JournalEntry{
			Fingerprint: fp,
			Owner:       owner.ToBase58(),
			Name:        req.Name,
			Symbol:      req.Symbol,
		},
	}
	deps := app.Deps{
		Wallet:   cw,
		Network:  u.Network,
		Recorder: u.Recorder,
		Observer: app.ObserverFunc(func(ctx context.Context, ev app.Event) {
			jr.OnStage(ctx, ev)
			if in.Observer != nil {
				in.Observer.OnStage(ctx, ev)
			}
		}),
	}

	res, err := u.Pipeline.Issue(ctx, deps, req)
	jr.settle(ctx, res, err)
	return res, err
}

func (u *IssuanceUsecase) uploadMetadata(ctx context.Context, req dom.Request, imageURL string) (string, error) {
	body, err := u.metadata.Build(req, imageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMetadataUpload, err)
	}
	uri, err := u.Uploader.UploadMetadata(ctx, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMetadataUpload, err)
	}
	if len(uri) > dom.MaxURILen {
		return "", fmt.Errorf("%w: uri exceeds %d bytes", ErrMetadataUpload, dom.MaxURILen)
	}
	log.Printf("[issuance] metadata uploaded symbol=%s uri=%s", req.Symbol, uri)
	return uri, nil
}

// ============================================================
// Status / Pending
// ============================================================

// StatusResult is what the network currently knows about a reference.
type StatusResult struct {
	Reference  string
	Status     JournalStatus
	Slot       uint64
	Commitment app.Commitment
	ExecErr    string
	// Entry is the journal entry for the reference, when one exists.
	Entry *JournalEntry
}

// Status re-polls a reference once. This is how a caller resolves a
// ConfirmationTimeout without resubmitting.
func (u *IssuanceUsecase) Status(ctx context.Context, reference string) (*StatusResult, error) {
	reference = strings.TrimSpace(reference)
	if err := ValidateSignature(reference); err != nil {
		return nil, fmt.Errorf("%w: reference: %v", dom.ErrInvalidInput, err)
	}

	st, err := u.Network.SignatureStatus(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dom.ErrNetwork, err)
	}

	out := &StatusResult{Reference: reference, Status: JournalUnknown}
	switch {
	case st == nil:
	case st.ExecErr != "":
		out.Status = JournalRejected
	case st.Commitment.Reaches(u.Pipeline.Options().Commitment):
		out.Status = JournalConfirmed
	default:
		out.Status = JournalPending
	}
	if st != nil {
		out.Slot, out.Commitment, out.ExecErr = st.Slot, st.Commitment, st.ExecErr
	}

	if u.Journal == nil {
		return out, nil
	}
	e, err := u.Journal.Get(ctx, reference)
	switch {
	case errors.Is(err, ErrJournalNotFound):
		return out, nil
	case err != nil:
		log.Printf("[journal] WARN get failed ref=%s err=%v", maskShort(reference), err)
		return out, nil
	}
	// confirmed is the only status the network cannot take back
	if e.Status != out.Status && e.Status != JournalConfirmed && out.Status != JournalUnknown {
		e.Status = out.Status
		e.Slot = out.Slot
		if out.Status == JournalRejected {
			e.Kind = dom.KindExecutionRejected
		} else {
			e.Kind = ""
		}
		if err := u.Journal.Put(ctx, e); err != nil {
			log.Printf("[journal] WARN update failed ref=%s err=%v", maskShort(reference), err)
		}
	}
	out.Entry = &e
	return out, nil
}

// Pending lists journaled submissions whose outcome is still open.
func (u *IssuanceUsecase) Pending(ctx context.Context) ([]JournalEntry, error) {
	if u.Journal == nil {
		return nil, nil
	}
	return u.Journal.List(ctx, true)
}

// ============================================================
// helpers
// ============================================================

// journalRun writes the reference to the journal as soon as it has been
// broadcast, then settles it once the run ends.
type journalRun struct {
	journal Journal
	base    JournalEntry
	written bool
}

func (j *journalRun) OnStage(ctx context.Context, ev app.Event) {
	if j.journal == nil || ev.Reference == "" {
		return
	}
	j.base.Reference = ev.Reference
	j.base.MintAddress = ev.MintAddress
	if ev.Stage != dom.StageConfirming || j.written {
		return
	}
	e := j.base
	e.Stage = ev.Stage
	e.Status = JournalPending
	j.put(ctx, e)
}

func (j *journalRun) settle(ctx context.Context, res *dom.Result, err error) {
	if j.journal == nil || j.base.Reference == "" {
		return
	}
	e := j.base
	if err == nil && res != nil {
		e.Stage = dom.StageDone
		e.Status = JournalConfirmed
		j.put(ctx, e)
		return
	}

	var pe *dom.PipelineError
	if !errors.As(err, &pe) {
		return
	}
	e.Stage = pe.Stage
	e.Kind = pe.Kind
	if pe.Kind == dom.KindConfirmationTimeout {
		e.Status = JournalUnknown
	} else {
		e.Status = JournalRejected
	}
	j.put(ctx, e)
}

func (j *journalRun) put(ctx context.Context, e JournalEntry) {
	if err := j.journal.Put(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("[journal] WARN put failed ref=%s status=%s err=%v", maskShort(e.Reference), e.Status, err)
		return
	}
	j.written = true
}

// connectOnce caches the first successful Connect so the wallet is only
// asked once per run.
type connectOnce struct {
	app.Wallet

	mu sync.Mutex
	pk common.PublicKey
	ok bool
}

func (c *connectOnce) Connect(ctx context.Context) (common.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ok {
		return c.pk, nil
	}
	pk, err := c.Wallet.Connect(ctx)
	if err != nil {
		return common.PublicKey{}, err
	}
	c.pk, c.ok = pk, true
	return pk, nil
}

// preflightFail classifies errors raised before the pipeline starts.
func preflightFail(ctx context.Context, err error) error {
	kind := dom.KindOf(err)
	if !errors.Is(err, dom.ErrUserRejected) &&
		(ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		kind = dom.KindCancelled
	}
	return dom.Fail(dom.StageValidating, kind, err)
}

func walletErr(err error) error {
	if errors.Is(err, dom.ErrUserRejected) || errors.Is(err, dom.ErrWalletUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", dom.ErrWalletUnavailable, err)
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

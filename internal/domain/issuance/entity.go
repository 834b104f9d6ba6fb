// internal/domain/issuance/entity.go
package issuance

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ------------------------------------------------------
// Policy
// ------------------------------------------------------

const (
	// Metaplex の on-chain 上限に合わせる
	MaxNameLen        = 32
	MaxSymbolLen      = 5
	MaxDescriptionLen = 1000
	MaxURILen         = 200

	// DefaultDecimals is used by callers that do not ask for a specific precision.
	DefaultDecimals = 9
)

// Known social link keys. Anything else is rejected so the record payload stays flat.
const (
	LinkWebsite  = "website"
	LinkTwitter  = "twitter"
	LinkTelegram = "telegram"
	LinkDiscord  = "discord"
)

var knownLinks = map[string]struct{}{
	LinkWebsite:  {},
	LinkTwitter:  {},
	LinkTelegram: {},
	LinkDiscord:  {},
}

// ------------------------------------------------------
// Request
// ------------------------------------------------------

// AuthorityFlags selects which mint-level authorities are given up at issuance.
type AuthorityFlags struct {
	RevokeMint   bool `json:"revokeMint"`
	RevokeUpdate bool `json:"revokeUpdate"`
	RevokeFreeze bool `json:"revokeFreeze"`
}

// Any reports whether at least one revocation was requested.
func (f AuthorityFlags) Any() bool {
	return f.RevokeMint || f.RevokeUpdate || f.RevokeFreeze
}

// RequestInput is the raw, untrusted shape coming from the CLI / HTTP layer.
type RequestInput struct {
	Name        string
	Symbol      string
	Description string
	Supply      string
	Decimals    int
	Authorities AuthorityFlags
	SocialLinks map[string]string
	MetadataURI string
}

// Request is a validated issuance request. Build it with NewRequest; the
// pipeline treats it as a value and never mutates it.
type Request struct {
	Name        string
	Symbol      string
	Description string
	Supply      decimal.Decimal
	Decimals    int
	Authorities AuthorityFlags
	SocialLinks map[string]string
	MetadataURI string
}

// NewRequest validates the input and returns an immutable Request.
func NewRequest(in RequestInput) (Request, error) {
	supply, err := ParseSupply(in.Supply)
	if err != nil {
		return Request{}, err
	}

	r := Request{
		Name:        strings.TrimSpace(in.Name),
		Symbol:      strings.TrimSpace(in.Symbol),
		Description: strings.TrimSpace(in.Description),
		Supply:      supply,
		Decimals:    in.Decimals,
		Authorities: in.Authorities,
		SocialLinks: normalizeLinks(in.SocialLinks),
		MetadataURI: strings.TrimSpace(in.MetadataURI),
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Validate re-checks every field. The pipeline calls it again at the
// Validating stage so a hand-built Request cannot skip the gate.
func (r Request) Validate() error {
	if r.Name == "" || utf8.RuneCountInString(r.Name) > MaxNameLen {
		return fmt.Errorf("%w: name must be 1..%d characters", ErrInvalidName, MaxNameLen)
	}
	n := utf8.RuneCountInString(r.Symbol)
	if n == 0 || n > MaxSymbolLen {
		return fmt.Errorf("%w: symbol must be 1..%d characters", ErrInvalidSymbol, MaxSymbolLen)
	}
	for _, c := range r.Symbol {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return fmt.Errorf("%w: symbol must be alphanumeric", ErrInvalidSymbol)
		}
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxDescriptionLen)
	}
	if len(r.MetadataURI) > MaxURILen {
		return fmt.Errorf("%w: metadata uri exceeds %d bytes", ErrInvalidInput, MaxURILen)
	}
	for k := range r.SocialLinks {
		if _, ok := knownLinks[k]; !ok {
			return fmt.Errorf("%w: unknown social link %q", ErrInvalidInput, k)
		}
	}
	if _, err := ToBaseUnits(r.Supply, r.Decimals); err != nil {
		return err
	}
	return nil
}

// BaseUnits is a convenience wrapper over the amount codec.
func (r Request) BaseUnits() (uint64, error) {
	return ToBaseUnits(r.Supply, r.Decimals)
}

// NeedsMetadata reports whether a Metaplex metadata account must be created.
// Update authority only exists on metadata, so revoking it implies creating it.
func (r Request) NeedsMetadata() bool {
	return r.MetadataURI != "" || r.Authorities.RevokeUpdate
}

// WithMetadataURI returns a copy carrying the uploaded metadata uri.
func (r Request) WithMetadataURI(uri string) Request {
	cp := r
	cp.SocialLinks = normalizeLinks(r.SocialLinks)
	cp.MetadataURI = strings.TrimSpace(uri)
	return cp
}

// LinkKeys returns the social link keys in stable order.
func (r Request) LinkKeys() []string {
	keys := make([]string, 0, len(r.SocialLinks))
	for k := range r.SocialLinks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeLinks(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ------------------------------------------------------
// Result
// ------------------------------------------------------

// Warning is a non-fatal problem attached to an otherwise successful result.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result is created only after the transaction is confirmed.
type Result struct {
	Name           string            `json:"name"`
	Symbol         string            `json:"symbol"`
	MintAddress    string            `json:"mintAddress"`
	HoldingAccount string            `json:"holdingAccount"`
	Owner          string            `json:"owner"`
	Reference      string            `json:"transactionReference"`
	Supply         decimal.Decimal   `json:"supply"`
	Decimals       int               `json:"decimals"`
	BaseUnits      uint64            `json:"baseUnitAmount"`
	Authorities    AuthorityFlags    `json:"authorityStatus"`
	MetadataURI    string            `json:"metadataUri,omitempty"`
	SocialLinks    map[string]string `json:"socialLinks,omitempty"`
	Acknowledged   bool              `json:"acknowledged"`
	Warnings       []Warning         `json:"warnings,omitempty"`
	ConfirmedAt    time.Time         `json:"confirmedAt"`
}

// AddWarning appends a warning without touching any on-chain field.
func (r *Result) AddWarning(kind Kind, msg string) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Message: msg})
}

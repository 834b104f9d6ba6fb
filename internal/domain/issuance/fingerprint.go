// internal/domain/issuance/fingerprint.go
package issuance

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// canonical form hashed by Fingerprint; field order is fixed by the keyasint tags.
type fingerprintDoc struct {
	Name        string            `cbor:"1,keyasint"`
	Symbol      string            `cbor:"2,keyasint"`
	Supply      string            `cbor:"3,keyasint"`
	Decimals    int               `cbor:"4,keyasint"`
	RevokeMint  bool              `cbor:"5,keyasint"`
	RevokeUpd   bool              `cbor:"6,keyasint"`
	RevokeFrz   bool              `cbor:"7,keyasint"`
	MetadataURI string            `cbor:"8,keyasint,omitempty"`
	Links       map[string]string `cbor:"9,keyasint,omitempty"`
	Owner       string            `cbor:"10,keyasint,omitempty"`
}

var canonicalEnc cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("issuance: cbor enc mode: %v", err))
	}
	canonicalEnc = em
}

// Fingerprint identifies a request submitted by owner. Two requests with the
// same fingerprint would produce the same token parameters (but never the same
// mint address, since every run gets a fresh mint identity).
func Fingerprint(req Request, owner string) (string, error) {
	doc := fingerprintDoc{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Supply:      req.Supply.String(),
		Decimals:    req.Decimals,
		RevokeMint:  req.Authorities.RevokeMint,
		RevokeUpd:   req.Authorities.RevokeUpdate,
		RevokeFrz:   req.Authorities.RevokeFreeze,
		MetadataURI: req.MetadataURI,
		Links:       req.SocialLinks,
		Owner:       owner,
	}
	b, err := canonicalEnc.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("issuance: encode fingerprint: %w", err)
	}
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

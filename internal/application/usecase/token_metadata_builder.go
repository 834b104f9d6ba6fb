// internal/application/usecase/token_metadata_builder.go
package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	dom "splforge/internal/domain/issuance"
)

// TokenMetadataBuilder は Request から off-chain メタデータ JSON を生成する責務を持ちます。
type TokenMetadataBuilder struct{}

func NewTokenMetadataBuilder() *TokenMetadataBuilder {
	return &TokenMetadataBuilder{}
}

// Build は Metaplex の fungible token standard に沿った JSON を返します。
func (b *TokenMetadataBuilder) Build(req dom.Request, imageURL string) ([]byte, error) {
	name := strings.TrimSpace(req.Name)
	symbol := strings.TrimSpace(req.Symbol)

	if name == "" || symbol == "" {
		return nil, fmt.Errorf("token metadata name or symbol is empty")
	}

	metadata := map[string]interface{}{
		"name":   name,
		"symbol": symbol,
	}

	// description フィールドが存在する場合だけ追加する
	if desc := strings.TrimSpace(req.Description); desc != "" {
		metadata["description"] = desc
	}
	if img := strings.TrimSpace(imageURL); img != "" {
		metadata["image"] = img
	}

	// SNS リンクは extensions にまとめる（Jupiter / Solscan 等が参照する）
	if len(req.SocialLinks) > 0 {
		ext := map[string]string{}
		for _, k := range req.LinkKeys() {
			ext[k] = req.SocialLinks[k]
		}
		metadata["extensions"] = ext
		if site := req.SocialLinks[dom.LinkWebsite]; site != "" {
			metadata["external_url"] = site
		}
	}

	return json.Marshal(metadata)
}

// wantsUpload reports whether the request carries anything worth hosting off-chain.
func wantsUpload(req dom.Request, imageURL string) bool {
	if req.MetadataURI != "" {
		return false
	}
	return req.Description != "" || len(req.SocialLinks) > 0 || strings.TrimSpace(imageURL) != ""
}

// internal/infra/solana/keypair.go
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
)

var (
	ErrKeypairEmpty   = errors.New("keypair: empty")
	ErrKeypairInvalid = errors.New("keypair: invalid")
)

// DecodeKeypairJSON parses the solana-keygen format: a JSON array of 64 ints.
func DecodeKeypairJSON(data []byte) (types.Account, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return types.Account{}, ErrKeypairEmpty
	}
	var ints []int
	if err := json.Unmarshal([]byte(s), &ints); err != nil {
		return types.Account{}, fmt.Errorf("%w: not a json int array: %v", ErrKeypairInvalid, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return types.Account{}, fmt.Errorf("%w: want %d bytes, got %d", ErrKeypairInvalid, ed25519.PrivateKeySize, len(ints))
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return types.Account{}, fmt.Errorf("%w: byte out of range at %d: %d", ErrKeypairInvalid, i, v)
		}
		b[i] = byte(v)
	}
	acc, err := types.AccountFromBytes(b)
	if err != nil {
		return types.Account{}, fmt.Errorf("%w: %v", ErrKeypairInvalid, err)
	}
	return acc, nil
}

// EncodeKeypairJSON is the inverse of DecodeKeypairJSON.
func EncodeKeypairJSON(acc types.Account) ([]byte, error) {
	secret := make([]int, len(acc.PrivateKey))
	for i, b := range acc.PrivateKey {
		secret[i] = int(b)
	}
	return json.MarshalIndent(secret, "", "  ")
}

// LoadKeypairFile reads a solana-keygen keypair file. "~/" is expanded.
func LoadKeypairFile(path string) (types.Account, error) {
	p, err := expandHome(path)
	if err != nil {
		return types.Account{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return types.Account{}, fmt.Errorf("keypair: read %s: %w", p, err)
	}
	return DecodeKeypairJSON(data)
}

// GenerateKeypairFile writes a fresh keypair to path with 0600 permissions
// and returns the account. It refuses to overwrite an existing file.
func GenerateKeypairFile(path string) (types.Account, error) {
	p, err := expandHome(path)
	if err != nil {
		return types.Account{}, err
	}
	if _, err := os.Stat(p); err == nil {
		return types.Account{}, fmt.Errorf("keypair: %s already exists", p)
	}

	acc := types.NewAccount()
	data, err := EncodeKeypairJSON(acc)
	if err != nil {
		return types.Account{}, fmt.Errorf("keypair: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return types.Account{}, fmt.Errorf("keypair: mkdir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return types.Account{}, fmt.Errorf("keypair: write %s: %w", p, err)
	}
	return acc, nil
}

func expandHome(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", fmt.Errorf("keypair: path is empty")
	}
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("keypair: home dir: %w", err)
		}
		p = filepath.Join(home, p[2:])
	}
	return p, nil
}

func maskShort(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if len(t) <= 10 {
		return t
	}
	return t[:4] + "***" + t[len(t)-4:]
}

// internal/infra/solana/rpc_client.go
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Solana Devnet RPC endpoint (default)
const DevnetEndpoint = "https://api.devnet.solana.com"

// JSONRPCClient is a small HTTP JSON-RPC client for the calls whose response
// shapes we want to own (blockhash freshness, block height, signature status).
type JSONRPCClient struct {
	Endpoint   string
	Commitment string
	HTTP       *http.Client
}

// NewJSONRPCClient creates a Solana JSON-RPC client. Empty endpoint means devnet.
func NewJSONRPCClient(endpoint, commitment string) *JSONRPCClient {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = DevnetEndpoint
	}
	if commitment == "" {
		commitment = "confirmed"
	}
	return &JSONRPCClient{
		Endpoint:   ep,
		Commitment: commitment,
		HTTP: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// RPCError is a JSON-RPC level error returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("solana rpc: error code=%d message=%s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (c *JSONRPCClient) call(ctx context.Context, method string, params any, out any) error {
	if c == nil || c.Endpoint == "" || c.HTTP == nil {
		return fmt.Errorf("solana rpc: client not configured")
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana rpc: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("solana rpc: http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("solana rpc: %s http status=%d", method, resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("solana rpc: decode response: %w", err)
	}
	if rr.Error != nil {
		return rr.Error
	}

	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return fmt.Errorf("solana rpc: unmarshal %s result: %w", method, err)
		}
	}
	return nil
}

func (c *JSONRPCClient) commitmentParam() map[string]any {
	return map[string]any{"commitment": c.Commitment}
}

// ------------------------------------------------------------
// getLatestBlockhash
// ------------------------------------------------------------

type LatestBlockhashResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value struct {
		Blockhash            string `json:"blockhash"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	} `json:"value"`
}

func (c *JSONRPCClient) GetLatestBlockhash(ctx context.Context) (LatestBlockhashResult, error) {
	var out LatestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", []any{c.commitmentParam()}, &out); err != nil {
		return LatestBlockhashResult{}, err
	}
	if out.Value.Blockhash == "" {
		return LatestBlockhashResult{}, fmt.Errorf("solana rpc: getLatestBlockhash returned empty blockhash")
	}
	return out, nil
}

// ------------------------------------------------------------
// getBlockHeight
// ------------------------------------------------------------

func (c *JSONRPCClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	var out uint64
	if err := c.call(ctx, "getBlockHeight", []any{c.commitmentParam()}, &out); err != nil {
		return 0, err
	}
	return out, nil
}

// ------------------------------------------------------------
// getSignatureStatuses
// ------------------------------------------------------------

// SignatureStatusValue is one entry of getSignatureStatuses.value (null when unknown).
type SignatureStatusValue struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Failed reports whether the transaction landed with an execution error.
func (v SignatureStatusValue) Failed() bool {
	s := strings.TrimSpace(string(v.Err))
	return s != "" && s != "null"
}

type signatureStatusesResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value []*SignatureStatusValue `json:"value"`
}

// GetSignatureStatus returns nil (no error) while the signature is unknown.
func (c *JSONRPCClient) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatusValue, error) {
	sig := strings.TrimSpace(signature)
	if sig == "" {
		return nil, fmt.Errorf("solana rpc: signature is empty")
	}
	params := []any{
		[]string{sig},
		map[string]any{"searchTransactionHistory": true},
	}
	var out signatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &out); err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return out.Value[0], nil
}

// ------------------------------------------------------------
// getTokenAccountBalance
// ------------------------------------------------------------

type TokenAmount struct {
	Amount         string `json:"amount"` // string integer
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

func (c *JSONRPCClient) GetTokenAccountBalance(ctx context.Context, account string) (TokenAmount, error) {
	var out struct {
		Value TokenAmount `json:"value"`
	}
	acct := strings.TrimSpace(account)
	if acct == "" {
		return TokenAmount{}, fmt.Errorf("solana rpc: account is empty")
	}
	if err := c.call(ctx, "getTokenAccountBalance", []any{acct, c.commitmentParam()}, &out); err != nil {
		return TokenAmount{}, err
	}
	return out.Value, nil
}

// internal/infra/solana/network.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// Network is the issuance pipeline's ledger collaborator. Transaction
// submission goes through the blocto SDK client; freshness and status
// lookups go through JSONRPCClient.
type Network struct {
	SDK *client.Client
	RPC *JSONRPCClient
}

func NewNetwork(endpoint, commitment string) *Network {
	jc := NewJSONRPCClient(endpoint, commitment)
	return &Network{
		SDK: client.NewClient(jc.Endpoint),
		RPC: jc,
	}
}

var _ app.Network = (*Network)(nil)

func (n *Network) RentExemptMinimum(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := n.SDK.GetMinimumBalanceForRentExemption(ctx, size)
	if err != nil {
		return 0, fmt.Errorf("GetMinimumBalanceForRentExemption: %w", err)
	}
	return lamports, nil
}

func (n *Network) LatestBlockhash(ctx context.Context) (app.Freshness, error) {
	res, err := n.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return app.Freshness{}, err
	}
	return app.Freshness{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
		FetchedAt:            time.Now(),
	}, nil
}

func (n *Network) BlockHeight(ctx context.Context) (uint64, error) {
	return n.RPC.GetBlockHeight(ctx)
}

func (n *Network) Broadcast(ctx context.Context, tx types.Transaction) (string, error) {
	sig, err := n.SDK.SendTransaction(ctx, tx)
	if err != nil {
		log.Printf("[solana-rpc] sendTransaction failed err=%v", err)
		return "", classifyBroadcastError(err)
	}
	log.Printf("[solana-rpc] sendTransaction ok sig=%s", maskShort(sig))
	return sig, nil
}

func (n *Network) SignatureStatus(ctx context.Context, signature string) (*app.SignatureStatus, error) {
	v, err := n.RPC.GetSignatureStatus(ctx, signature)
	if err != nil || v == nil {
		return nil, err
	}
	st := &app.SignatureStatus{
		Slot:       v.Slot,
		Commitment: app.Commitment(strings.ToLower(v.ConfirmationStatus)),
	}
	if v.Failed() {
		st.ExecErr = string(v.Err)
	}
	return st, nil
}

// TokenBalance reads the holding account balance (used by status lookups).
func (n *Network) TokenBalance(ctx context.Context, account string) (TokenAmount, error) {
	return n.RPC.GetTokenAccountBalance(ctx, account)
}

// 送信エラーの分類。ノードが応答したエラー (JSON-RPC / preflight) だけを拒否とみなす。
// stale blockhash は文言で判定する（SDK に専用のエラー型がない）。
// 応答がない失敗（タイムアウト、切断、ctx キャンセル）は未確認扱いで、呼び出し側が reference を追跡する。
func classifyBroadcastError(err error) error {
	var sdkErr *rpc.JsonRpcError
	var ownErr *RPCError
	if !errors.As(err, &sdkErr) && !errors.As(err, &ownErr) {
		return fmt.Errorf("%w: %v", app.ErrBroadcastUnacknowledged, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "blockhash not found"),
		strings.Contains(msg, "blockhashnotfound"),
		strings.Contains(msg, "block height exceeded"):
		return fmt.Errorf("%w: %v", dom.ErrStaleFreshnessToken, err)
	default:
		return fmt.Errorf("%w: %v", dom.ErrBroadcastRejected, err)
	}
}

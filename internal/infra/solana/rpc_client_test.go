package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "splforge/internal/application/issuance"
	dom "splforge/internal/domain/issuance"
)

// rpcStub answers JSON-RPC calls by method name.
func rpcStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		body, ok := results[req.Method]
		if !ok {
			body = `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestJSONRPCClient_LatestBlockhash(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getLatestBlockhash": `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":5},"value":{"blockhash":"EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N","lastValidBlockHeight":3090}}}`,
		"getBlockHeight":     `{"jsonrpc":"2.0","id":1,"result":2950}`,
	})
	defer srv.Close()

	n := NewNetwork(srv.URL, "confirmed")
	fr, err := n.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", fr.Blockhash)
	assert.Equal(t, uint64(3090), fr.LastValidBlockHeight)
	assert.False(t, fr.FetchedAt.IsZero())

	h, err := n.BlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2950), h)
}

func TestNetwork_SignatureStatus(t *testing.T) {
	cases := []struct {
		name   string
		result string
		want   *app.SignatureStatus
	}{
		{
			name:   "unknown",
			result: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[null]}}`,
			want:   nil,
		},
		{
			name:   "confirmed",
			result: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":72,"confirmations":10,"err":null,"confirmationStatus":"confirmed"}]}}`,
			want:   &app.SignatureStatus{Slot: 72, Commitment: app.CommitmentConfirmed},
		},
		{
			name:   "failed",
			result: `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[{"slot":73,"confirmations":null,"err":{"InstructionError":[4,{"Custom":1}]},"confirmationStatus":"finalized"}]}}`,
			want:   &app.SignatureStatus{Slot: 73, Commitment: app.CommitmentFinalized, ExecErr: `{"InstructionError":[4,{"Custom":1}]}`},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := rpcStub(t, map[string]string{"getSignatureStatuses": tc.result})
			defer srv.Close()

			got, err := NewNetwork(srv.URL, "").SignatureStatus(context.Background(), "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJSONRPCClient_RPCError(t *testing.T) {
	srv := rpcStub(t, nil)
	defer srv.Close()

	_, err := NewJSONRPCClient(srv.URL, "").GetBlockHeight(context.Background())
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestJSONRPCClient_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewJSONRPCClient(srv.URL, "").GetLatestBlockhash(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestJSONRPCClient_TokenBalance(t *testing.T) {
	srv := rpcStub(t, map[string]string{
		"getTokenAccountBalance": `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"amount":"1000000000000000","decimals":9,"uiAmountString":"1000000"}}}`,
	})
	defer srv.Close()

	bal, err := NewNetwork(srv.URL, "").TokenBalance(context.Background(), "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000", bal.Amount)
	assert.Equal(t, 9, bal.Decimals)
}

func TestClassifyBroadcastError(t *testing.T) {
	stale := classifyBroadcastError(&rpc.JsonRpcError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"})
	assert.ErrorIs(t, stale, dom.ErrStaleFreshnessToken)

	refused := classifyBroadcastError(&rpc.JsonRpcError{Code: -32002, Message: "Transaction simulation failed: insufficient lamports"})
	assert.ErrorIs(t, refused, dom.ErrBroadcastRejected)

	own := classifyBroadcastError(fmt.Errorf("sendTransaction: %w", &RPCError{Code: -32005, Message: "node is behind"}))
	assert.ErrorIs(t, own, dom.ErrBroadcastRejected)

	// no answer from the node is never a rejection
	for _, err := range []error{
		errors.New("rpc: call error, err: failed to do request, err: read tcp: i/o timeout, body: "),
		errors.New("rpc: call error, err: get status code: 502, body: Bad Gateway"),
		context.DeadlineExceeded,
	} {
		got := classifyBroadcastError(err)
		assert.ErrorIs(t, got, app.ErrBroadcastUnacknowledged, err.Error())
		assert.NotErrorIs(t, got, dom.ErrBroadcastRejected, err.Error())
		assert.NotErrorIs(t, got, dom.ErrStaleFreshnessToken, err.Error())
	}
}

func signedTransfer(t *testing.T) types.Transaction {
	t.Helper()
	payer := types.NewAccount()
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        payer.PublicKey,
			RecentBlockhash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			Instructions: []types.Instruction{
				system.Transfer(system.TransferParam{From: payer.PublicKey, To: types.NewAccount().PublicKey, Amount: 1}),
			},
		}),
		Signers: []types.Account{payer},
	})
	require.NoError(t, err)
	return tx
}

func TestNetwork_Broadcast(t *testing.T) {
	t.Run("node refuses", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"sendTransaction": `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."}}`,
		})
		defer srv.Close()

		_, err := NewNetwork(srv.URL, "confirmed").Broadcast(context.Background(), signedTransfer(t))
		assert.ErrorIs(t, err, dom.ErrBroadcastRejected)
	})

	t.Run("stale blockhash", func(t *testing.T) {
		srv := rpcStub(t, map[string]string{
			"sendTransaction": `{"jsonrpc":"2.0","id":1,"error":{"code":-32002,"message":"Transaction simulation failed: Blockhash not found"}}`,
		})
		defer srv.Close()

		_, err := NewNetwork(srv.URL, "confirmed").Broadcast(context.Background(), signedTransfer(t))
		assert.ErrorIs(t, err, dom.ErrStaleFreshnessToken)
	})

	t.Run("connection lost", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
		}))
		defer srv.Close()

		_, err := NewNetwork(srv.URL, "confirmed").Broadcast(context.Background(), signedTransfer(t))
		assert.ErrorIs(t, err, app.ErrBroadcastUnacknowledged)
		assert.NotErrorIs(t, err, dom.ErrBroadcastRejected)
	})
}

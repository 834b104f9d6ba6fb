package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dom "splforge/internal/domain/issuance"
)

func TestPromptApprove(t *testing.T) {
	signer := types.NewAccount().PublicKey

	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		approve := promptApprove(strings.NewReader(tc.input), &out, "Issue Doge2")
		ok, err := approve(context.Background(), signer, make([]byte, 10))
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, ok, tc.input)
		assert.Contains(t, out.String(), signer.ToBase58())
		assert.Contains(t, out.String(), "10 byte message")
	}
}

func TestPromptApprove_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// never answers
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })
	approve := promptApprove(r, &bytes.Buffer{}, "Issue")
	ok, err := approve(ctx, types.NewAccount().PublicKey, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIssueInputFromFlags(t *testing.T) {
	require.NoError(t, issueCmd.Flags().Parse([]string{
		"--name", "Doge2", "--symbol", "DOGE2", "--supply", "1000000",
		"--revoke-mint", "--twitter", "@doge2", "--discord", "https://discord.gg/x",
	}))

	in := issueInputFromFlags(issueCmd)
	assert.Equal(t, "Doge2", in.Name)
	assert.Equal(t, "DOGE2", in.Symbol)
	assert.Equal(t, "1000000", in.Supply)
	assert.Equal(t, 9, in.Decimals)
	assert.True(t, in.RevokeMint)
	assert.False(t, in.RevokeFreeze)
	assert.Equal(t, map[string]string{
		dom.LinkTwitter: "@doge2",
		dom.LinkDiscord: "https://discord.gg/x",
	}, in.SocialLinks)
}

func TestIssueFlagLimits(t *testing.T) {
	assert.Contains(t, issueCmd.Flags().Lookup("symbol").Usage, fmt.Sprintf("max %d chars", dom.MaxSymbolLen))
	assert.Contains(t, issueCmd.Flags().Lookup("symbol").Usage, "max 5 chars")
	assert.Contains(t, issueCmd.Flags().Lookup("name").Usage, fmt.Sprintf("max %d chars", dom.MaxNameLen))
}

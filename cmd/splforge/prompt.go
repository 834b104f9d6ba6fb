package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/blocto/solana-go-sdk/common"

	"splforge/internal/infra/solana"
)

// promptApprove asks on out and reads the answer from in. Only "y" / "yes" approves.
func promptApprove(in io.Reader, out io.Writer, summary string) solana.ApproveFunc {
	r := bufio.NewReader(in)
	return func(ctx context.Context, signer common.PublicKey, message []byte) (bool, error) {
		fmt.Fprintf(out, "\n%s\nSign with %s (%d byte message)? [y/N] ", summary, signer.ToBase58(), len(message))

		type answer struct {
			line string
			err  error
		}
		ch := make(chan answer, 1)
		go func() {
			line, err := r.ReadString('\n')
			ch <- answer{line, err}
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return false, ctx.Err()
		case a := <-ch:
			if a.err != nil && a.err != io.EOF {
				return false, fmt.Errorf("read approval: %w", a.err)
			}
			switch strings.ToLower(strings.TrimSpace(a.line)) {
			case "y", "yes":
				return true, nil
			default:
				return false, nil
			}
		}
	}
}

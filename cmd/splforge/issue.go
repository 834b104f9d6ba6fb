package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
	"splforge/internal/platform/di"
	"splforge/internal/presentation"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Create a new SPL token in one transaction",
	Long: `Validates the request, builds mint creation, metadata, holding account,
initial mint and the requested authority revocations as one transaction,
asks the wallet to sign, broadcasts it and waits for confirmation.`,
	Example: `  splforge issue --name Doge2 --symbol DOGE2 --supply 1000000 --revoke-mint --revoke-freeze`,
	RunE:    runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)

	f := issueCmd.Flags()
	f.String("name", "", fmt.Sprintf("Token name (max %d chars)", dom.MaxNameLen))
	f.String("symbol", "", fmt.Sprintf("Token symbol (max %d chars)", dom.MaxSymbolLen))
	f.String("description", "", "Token description (uploaded with the metadata document)")
	f.String("supply", "", "Initial supply in whole tokens, e.g. 1000000 or 12.5")
	f.Int("decimals", dom.DefaultDecimals, fmt.Sprintf("Decimal places (0-%d)", dom.MaxDecimals))
	f.Bool("revoke-mint", false, "Revoke the mint authority")
	f.Bool("revoke-update", false, "Make the metadata immutable")
	f.Bool("revoke-freeze", false, "Revoke the freeze authority")
	f.String("website", "", "Project website")
	f.String("twitter", "", "Twitter handle or URL")
	f.String("telegram", "", "Telegram handle or URL")
	f.String("discord", "", "Discord invite URL")
	f.String("metadata-uri", "", "Pre-uploaded metadata URI (skips upload)")
	f.String("image", "", "Image URL referenced by the uploaded metadata document")
	f.BoolP("yes", "y", false, "Sign without the confirmation prompt")
	f.Bool("check-balance", true, "Read the holding account balance after confirmation")

	_ = issueCmd.MarkFlagRequired("name")
	_ = issueCmd.MarkFlagRequired("symbol")
	_ = issueCmd.MarkFlagRequired("supply")
}

func runIssue(cmd *cobra.Command, args []string) error {
	in := issueInputFromFlags(cmd)
	yes, _ := cmd.Flags().GetBool("yes")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := di.Options{}
	if !yes {
		summary := fmt.Sprintf("Issue %s (%s): supply %s, decimals %d", in.Name, in.Symbol, in.Supply, in.Decimals)
		opts.Approve = promptApprove(os.Stdin, os.Stderr, summary)
	}
	c, err := buildContainer(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer c.Close()

	renderer := presentation.NewRenderer(os.Stdout, plainOutput(cmd))
	in.Observer = presentation.NewProgress(os.Stderr)

	start := time.Now()
	res, err := c.IssuanceUC.Issue(ctx, in)
	if err != nil {
		log.Printf("[issue] failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		if perr := renderer.Print(presentation.FormatFailure(err)); perr != nil {
			return perr
		}
		return errReported
	}

	if err := renderer.Print(presentation.FormatResult(res)); err != nil {
		return err
	}

	if check, _ := cmd.Flags().GetBool("check-balance"); check {
		printHoldingBalance(ctx, c, res)
	}
	return nil
}

func issueInputFromFlags(cmd *cobra.Command) usecase.IssueInput {
	f := cmd.Flags()
	var in usecase.IssueInput
	in.Name, _ = f.GetString("name")
	in.Symbol, _ = f.GetString("symbol")
	in.Description, _ = f.GetString("description")
	in.Supply, _ = f.GetString("supply")
	in.Decimals, _ = f.GetInt("decimals")
	in.RevokeMint, _ = f.GetBool("revoke-mint")
	in.RevokeUpdate, _ = f.GetBool("revoke-update")
	in.RevokeFreeze, _ = f.GetBool("revoke-freeze")
	in.MetadataURI, _ = f.GetString("metadata-uri")
	in.ImageURL, _ = f.GetString("image")

	links := map[string]string{}
	for flag, key := range map[string]string{
		"website":  dom.LinkWebsite,
		"twitter":  dom.LinkTwitter,
		"telegram": dom.LinkTelegram,
		"discord":  dom.LinkDiscord,
	} {
		if v, _ := f.GetString(flag); v != "" {
			links[key] = v
		}
	}
	if len(links) > 0 {
		in.SocialLinks = links
	}
	return in
}

func printHoldingBalance(ctx context.Context, c *di.Container, res *dom.Result) {
	bctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	bal, err := c.Network.TokenBalance(bctx, res.HoldingAccount)
	if err != nil {
		log.Printf("[issue] WARN balance check failed account=%s err=%v", res.HoldingAccount, err)
		return
	}
	fmt.Printf("Holding balance: %s %s\n", bal.UIAmountString, res.Symbol)
}

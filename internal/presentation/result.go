// internal/presentation/result.go
package presentation

import (
	"errors"
	"fmt"
	"strings"

	"splforge/internal/application/usecase"
	dom "splforge/internal/domain/issuance"
)

// FormatResult renders a confirmed issuance as Markdown.
func FormatResult(res *dom.Result) string {
	if res == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString("# Token created successfully!\n\n")
	fmt.Fprintf(&b, "- **Name:** %s (%s)\n", res.Name, res.Symbol)
	fmt.Fprintf(&b, "- **Token Address:** `%s`\n", res.MintAddress)
	fmt.Fprintf(&b, "- **Holding Account:** `%s`\n", res.HoldingAccount)
	fmt.Fprintf(&b, "- **Transaction:** `%s`\n", res.Reference)
	fmt.Fprintf(&b, "- **Supply:** %s (decimals %d, %d base units)\n", res.Supply.String(), res.Decimals, res.BaseUnits)
	if res.MetadataURI != "" {
		fmt.Fprintf(&b, "- **Metadata:** %s\n", res.MetadataURI)
	}

	b.WriteString("\n## Authority Status\n\n")
	fmt.Fprintf(&b, "- %s Mint Authority Revoked\n", mark(res.Authorities.RevokeMint))
	fmt.Fprintf(&b, "- %s Update Authority Revoked\n", mark(res.Authorities.RevokeUpdate))
	fmt.Fprintf(&b, "- %s Freeze Authority Revoked\n", mark(res.Authorities.RevokeFreeze))

	if links := SocialLinks(res.SocialLinks); len(links) > 0 {
		b.WriteString("\n## Social Links\n\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- %s\n", l)
		}
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- ⚠️ %s: %s\n", w.Kind, w.Message)
		}
	}

	b.WriteString("\n## To list on Raydium\n\n")
	b.WriteString("1. Go to raydium.io\n")
	b.WriteString("2. Click \"Liquidity\" -> \"Add Liquidity\"\n")
	b.WriteString("3. Select your token using the address above\n")
	b.WriteString("4. Add SOL and token amount for initial liquidity\n")
	b.WriteString("5. Complete the transaction\n")

	fmt.Fprintf(&b, "\nSave your token address: `%s`\n", res.MintAddress)
	return b.String()
}

// SocialLinks turns stored handles into display lines, in a fixed order.
func SocialLinks(links map[string]string) []string {
	var out []string
	if v := links[dom.LinkWebsite]; v != "" {
		out = append(out, "Website: "+v)
	}
	if v := links[dom.LinkTwitter]; v != "" {
		out = append(out, "Twitter: "+handleURL("https://twitter.com/", v))
	}
	if v := links[dom.LinkTelegram]; v != "" {
		out = append(out, "Telegram: "+handleURL("https://t.me/", v))
	}
	if v := links[dom.LinkDiscord]; v != "" {
		out = append(out, "Discord: "+v)
	}
	return out
}

func handleURL(base, v string) string {
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	return base + strings.TrimPrefix(v, "@")
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// FormatFailure explains a failed run, including what the caller should do next.
func FormatFailure(err error) string {
	if err == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Failed to create token\n\n")

	var pe *dom.PipelineError
	if !errors.As(err, &pe) {
		if errors.Is(err, usecase.ErrIssuanceInFlight) {
			b.WriteString("Another issuance for this wallet is still running. Wait for it to finish.\n")
		}
		fmt.Fprintf(&b, "```\n%v\n```\n", err)
		return b.String()
	}

	fmt.Fprintf(&b, "- **Stage:** %s\n- **Kind:** %s\n", pe.Stage, pe.Kind)
	if pe.Reference != "" {
		fmt.Fprintf(&b, "- **Transaction:** `%s`\n", pe.Reference)
	}
	if pe.Err != nil {
		fmt.Fprintf(&b, "\n```\n%v\n```\n", pe.Err)
	}

	b.WriteString("\n")
	switch pe.Kind {
	case dom.KindConfirmationTimeout:
		fmt.Fprintf(&b, "The transaction may still land. Do not resubmit; check it with `splforge status %s`.\n", pe.Reference)
	case dom.KindUserRejected:
		b.WriteString("The signature request was declined. Nothing was sent.\n")
	case dom.KindStaleFreshnessToken:
		b.WriteString("The recent blockhash expired before submission. Start a new issuance.\n")
	case dom.KindExecutionRejected:
		b.WriteString("The transaction landed but its instructions failed, so no token was created. Check the fee payer balance and try again.\n")
	case dom.KindBroadcastRejected:
		b.WriteString("The node refused the transaction during preflight, so it was not submitted. Check the fee payer balance and try again.\n")
	case dom.KindInvalidInput, dom.KindAmountOverflow:
		b.WriteString("Fix the request and try again.\n")
	}
	return b.String()
}

// FormatStatus renders the result of a status lookup.
func FormatStatus(st *usecase.StatusResult) string {
	if st == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Transaction `%s`\n\n", st.Reference)
	fmt.Fprintf(&b, "- **Status:** %s\n", st.Status)
	if st.Commitment != "" {
		fmt.Fprintf(&b, "- **Commitment:** %s (slot %d)\n", st.Commitment, st.Slot)
	}
	if st.ExecErr != "" {
		fmt.Fprintf(&b, "- **Error:** `%s`\n", st.ExecErr)
	}
	if e := st.Entry; e != nil {
		fmt.Fprintf(&b, "- **Token:** %s (%s) `%s`\n", e.Name, e.Symbol, e.MintAddress)
	}
	if st.Status == usecase.JournalUnknown {
		b.WriteString("\nThe cluster does not know this signature yet (or it expired). Check again later.\n")
	}
	return b.String()
}

// FormatPending lists open journal entries as a table.
func FormatPending(entries []usecase.JournalEntry) string {
	if len(entries) == 0 {
		return "No pending submissions.\n"
	}
	var b strings.Builder
	b.WriteString("| Symbol | Mint | Reference | Status | Since |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | `%s` | `%s` | %s | %s |\n",
			e.Symbol, e.MintAddress, e.Reference, e.Status, e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

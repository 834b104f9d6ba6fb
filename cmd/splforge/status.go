package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splforge/internal/platform/di"
	"splforge/internal/presentation"
)

var statusCmd = &cobra.Command{
	Use:   "status [reference]",
	Short: "Check the outcome of a submitted transaction",
	Long: `Polls the network once for a transaction reference. Use this after a
confirmation timeout instead of issuing again. With --pending, lists the
journaled submissions whose outcome is still open.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pending, _ := cmd.Flags().GetBool("pending")
		if !pending && len(args) == 0 {
			return fmt.Errorf("status: a transaction reference or --pending is required")
		}

		ctx := cmd.Context()
		c, err := buildContainer(ctx, cmd, di.Options{})
		if err != nil {
			return err
		}
		defer c.Close()

		renderer := presentation.NewRenderer(os.Stdout, plainOutput(cmd))
		if pending {
			entries, err := c.IssuanceUC.Pending(ctx)
			if err != nil {
				return err
			}
			return renderer.Print(presentation.FormatPending(entries))
		}

		st, err := c.IssuanceUC.Status(ctx, args[0])
		if err != nil {
			return err
		}
		return renderer.Print(presentation.FormatStatus(st))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().Bool("pending", false, "List journaled submissions that are not final yet")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"splforge/internal/infra/config"
	"splforge/internal/platform/di"
)

// errReported は既に画面に結果を出力済みの失敗。Execute は何も出さずに終了コード 1 を返す。
var errReported = errors.New("splforge: failure already reported")

var rootCmd = &cobra.Command{
	Use:   "splforge",
	Short: "splforge issues SPL tokens in a single signed transaction",
	Long: `splforge creates a fungible SPL token (mint, metadata, holding account,
initial supply and optional authority revocations) in one atomic transaction,
waits for confirmation and records the issuance.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "splforge.yaml", "Path to the YAML config file (optional)")
	rootCmd.PersistentFlags().Bool("plain", false, "Disable terminal markdown rendering")
}

// buildContainer loads the config named by --config and wires the container.
func buildContainer(ctx context.Context, cmd *cobra.Command, opts di.Options) (*di.Container, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return di.Build(ctx, cfg, opts)
}

func plainOutput(cmd *cobra.Command) bool {
	plain, _ := cmd.Flags().GetBool("plain")
	return plain
}

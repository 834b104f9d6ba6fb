package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splforge/internal/infra/config"
	"splforge/internal/infra/solana"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new wallet keypair file",
	Long:  `Writes a solana-keygen compatible keypair (JSON array of 64 bytes) with 0600 permissions. Existing files are never overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = config.Defaults().KeypairPath
		}
		acc, err := solana.GenerateKeypairFile(out)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote keypair to %s\n", config.ExpandHome(out))
		fmt.Printf("pubkey: %s\n", acc.PublicKey.ToBase58())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringP("out", "o", "", "Output path (default ~/.config/solana/id.json)")
}

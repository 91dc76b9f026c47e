package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	ledgerhttp "github.com/alem-hub/academy-ledger/internal/interface/http"
)

var tokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Sign a caller token for an address with AUTH_PRIVATE_KEY",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default AUTH_TOKEN_TTL)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.Auth.PrivateKey == "" {
		return errors.New("AUTH_PRIVATE_KEY is required to sign tokens")
	}
	caller, err := shared.NewAddress(args[0])
	if err != nil {
		return err
	}
	priv, err := ledgerhttp.ParsePrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		return fmt.Errorf("AUTH_PRIVATE_KEY: %w", err)
	}

	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	signed, err := ledgerhttp.NewTokenSigner(priv, cfg.Auth.Issuer, cfg.Auth.Audience, ttl).Sign(caller)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}

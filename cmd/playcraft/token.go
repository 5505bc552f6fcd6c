package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/playcraft/internal/auth"
	"github.com/p-blackswan/playcraft/internal/config"
)

var (
	tokenUser  string
	tokenEmail string
	tokenName  string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development JWT",
	Long: `Issue a JWT signed with JWT_SECRET for calling the API in jwt auth mode.

Examples:
  playcraft token --user alice
  playcraft token --user alice --ttl 1h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadOffline()
		if err != nil {
			return err
		}
		issuer, err := auth.NewIssuer(cfg.JWTSecret)
		if err != nil {
			return fmt.Errorf("JWT_SECRET: %w", err)
		}
		token, err := issuer.Issue(auth.User{ID: tokenUser, Email: tokenEmail, Name: tokenName}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User ID (token subject)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "User email")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "Display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
}

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vedran77/nestmate/internal/auth"
	"github.com/vedran77/nestmate/internal/config"
)

func newTokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a user (development)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tok, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL).Issue(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (subject claim)")
	cmd.MarkFlagRequired("user")
	return cmd
}

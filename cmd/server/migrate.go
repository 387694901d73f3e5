package main

import (
	"github.com/spf13/cobra"

	"github.com/vedran77/nestmate/internal/config"
	"github.com/vedran77/nestmate/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)

			st, err := openStores(cmd.Context(), cfg, log, true)
			if err != nil {
				return err
			}
			st.close()
			log.Info("Migrations complete", "driver", cfg.DBDriver)
			return nil
		},
	}
}

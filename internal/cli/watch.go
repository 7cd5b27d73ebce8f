package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/reedcms/reed/internal/scheduler"
)

func init() {
	AddCommand(newWatchCmd())
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Dev-mode loop: reload caches on external edits, sweep backup retention on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dw, err := NewDataWatcher(deps.Config.DataDir, func(base string) {
				if err := deps.Store.ReloadFile(base); err != nil {
					log.Error().Err(err).Str("file", base).Msg("failed to reload cache")
				}
			})
			if err != nil {
				return err
			}
			dw.Start(ctx)
			defer dw.Stop()

			sweeper, err := scheduler.NewRetentionSweeper(deps.Config.Watch.RetentionSweep, func() {
				for _, base := range []string{"text.csv", "routes.csv", "meta.csv", "project.csv", "server.csv"} {
					if _, err := deps.Backup.Prune(backupDir(), base); err != nil {
						log.Warn().Err(err).Str("file", base).Msg("retention sweep failed")
					}
				}
			})
			if err != nil {
				return err
			}
			sweeper.Start()
			defer sweeper.Stop()

			log.Info().Str("data_dir", deps.Config.DataDir).Str("sweep_cron", deps.Config.Watch.RetentionSweep).Msg("watching for external edits and running scheduled retention sweeps")
			<-ctx.Done()
			log.Info().Msg("shutting down")
			return nil
		},
	}
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/sublist/internal/app/scheduler"
	"github.com/magabrotheeeer/sublist/internal/config"
	"github.com/magabrotheeeer/sublist/internal/lib/sl"
)

var flagOnce bool

var rootCmd = &cobra.Command{
	Use:          "notification-scheduler",
	Short:        "Publishes daily digests of upcoming payments",
	Long:         "Collects today's and tomorrow's payments per account and publishes one digest per account to the notification queue.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagOnce, "once", false, "Run a single pass and exit")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.MustLoad()
	logger := sl.SetupLogger(cfg.Env)
	logger.Info("starting notification-scheduler", slog.String("env", cfg.Env), slog.Bool("once", flagOnce))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler", sl.Err(err))
		return err
	}

	if flagOnce {
		return app.RunOnce(ctx)
	}
	return app.Run(ctx)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

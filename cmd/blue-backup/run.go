package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/blue-backup/internal/report"
	"github.com/fgeck/blue-backup/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runBackup(cmd *cobra.Command, args []string) error {
	reporter := report.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	opts := runner.Options{
		ConfigPath: args[0],
		FirstTime:  firstTime,
		DryRun:     dryRun,
	}
	if err := runner.New(reporter, log.Logger).Run(ctx, opts); err != nil {
		reporter.Fatal(err.Error())
		return err
	}
	return nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/routemanager"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the console and enforce route access in front of the CMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a := routemanager.New(routemanager.ConfigFromEnv(), routemanager.WithLogger(logger))
		defer a.Close()

		errc := make(chan error, 1)
		go func() { errc <- a.Start(ctx) }()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
			return err
		}
		return <-errc
	},
}

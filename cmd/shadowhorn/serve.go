package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shadowhorn/shadowhorn/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes collection, correlation, deep-clean streaming, reports,
profiles, and settings over HTTP. The deep-clean endpoint streams progress
as server-sent events. Shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []server.Option{server.WithLogger(a.logger)}
		if runner, err := a.collector(ctx); err == nil {
			opts = append(opts, server.WithCollector(runner))
		} else {
			a.logger.Warn("collection endpoint disabled", "error", err)
		}
		if deep, err := a.deepCleaner(); err == nil {
			opts = append(opts, server.WithDeepClean(deep))
		} else {
			a.logger.Warn("deep-clean endpoint disabled", "error", err)
		}

		addr, _ := cmd.Flags().GetString("addr")
		srv := server.New(a.store, a.engine, opts...)
		if err := srv.ListenAndServe(ctx, addr); err != nil && !isShutdown(err) {
			return err
		}
		return nil
	},
}

func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed)
}

func init() {
	serveCmd.Flags().String("addr", ":8087", "listen address")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/logging"
	"docqa/internal/server"
)

func newServeCmd(load configLoader) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}
			log := logging.New(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			go a.store.Run(ctx, time.Duration(cfg.Sessions.SweepIntervalSecs)*time.Second)

			srv := server.New(cfg.Server, a.svc, log.WithField("component", "http"))
			errCh := make(chan error, 1)
			go func() {
				log.WithField("address", cfg.Server.Address).Info("server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err = <-errCh:
			}
			stop()
			log.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			if serr := srv.Shutdown(shutdownCtx); serr != nil {
				log.WithError(serr).Warn("server shutdown failed")
			}
			if cerr := a.Close(shutdownCtx); cerr != nil {
				log.WithError(cerr).Warn("release resources failed")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides server.address)")
	return cmd
}

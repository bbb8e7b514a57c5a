package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-turf-booking/docs"
	"github.com/tbourn/go-turf-booking/internal/app"
	httpapi "github.com/tbourn/go-turf-booking/internal/http"
	"github.com/tbourn/go-turf-booking/internal/observability"
)

func newServeCmd() *cobra.Command {
	var (
		noSeed     bool
		noJanitor  bool
		drainDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the booking HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			gin.SetMode(cfg.GinMode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, Version, observability.BackendAttributes(cfg)...)
			if err != nil {
				return fmt.Errorf("otel: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownOTel(sctx); err != nil {
					log.Warn().Err(err).Msg("otel shutdown")
				}
			}()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("close")
				}
			}()

			if !noSeed {
				if err := a.Seed(ctx); err != nil {
					return err
				}
			}
			if !noJanitor {
				go a.Janitor.Run(ctx)
			}

			docs.SwaggerInfo.BasePath = cfg.APIBasePath
			docs.SwaggerInfo.Version = Version

			r := gin.New()
			httpapi.RegisterRoutes(r, a.Handlers(Version), cfg)

			srv := &http.Server{
				Addr:              net.JoinHostPort("", cfg.Port),
				Handler:           r,
				ReadTimeout:       cfg.ReadTimeout,
				ReadHeaderTimeout: cfg.ReadHeaderTimeout,
				WriteTimeout:      cfg.WriteTimeout,
				IdleTimeout:       cfg.IdleTimeout,
				MaxHeaderBytes:    cfg.MaxHeaderBytes,
				BaseContext:       func(net.Listener) context.Context { return log.WithContext(context.Background()) },
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().
					Str("addr", srv.Addr).
					Str("version", Version).
					Str("ledger", cfg.Ledger.Driver).
					Str("cache", cfg.Cache.Backend).
					Msg("server started")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err, ok := <-errCh:
				if ok {
					return fmt.Errorf("listen: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			if drainDelay > 0 {
				time.Sleep(drainDelay)
			}
			sctx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "skip seeding headers and pricing into an empty ledger")
	cmd.Flags().BoolVar(&noJanitor, "no-janitor", false, "do not purge the availability cache at local midnight")
	cmd.Flags().DurationVar(&drainDelay, "drain-delay", 0, "wait before shutdown so load balancers stop routing")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/opendcs/odcsapi/internal/config"
	"github.com/opendcs/odcsapi/internal/db/bunx"
	"github.com/opendcs/odcsapi/internal/lrgs"
	odcsmiddleware "github.com/opendcs/odcsapi/internal/middleware"
	"github.com/opendcs/odcsapi/internal/repository"
	"github.com/opendcs/odcsapi/internal/server"
	"github.com/opendcs/odcsapi/internal/services/iam"
	"github.com/opendcs/odcsapi/internal/session"
	"github.com/opendcs/odcsapi/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OpenDCS REST API server",
	Long:  `Starts the HTTP server with the authentication and session endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Observability)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				log.Printf("Warning: telemetry shutdown failed: %v", err)
			}
		}()

		// Connect to database
		db, err := bunx.NewDB(ctx, cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Initialize repositories
		authzRepo := repository.NewBunAuthorizationRepository(db)
		appStatusRepo := repository.NewBunAppStatusRepository(db)

		deps := iam.Dependencies{Authz: authzRepo}
		if cfg.AuthType == config.AuthTypeBasic {
			validator, err := repository.NewPgCredentialValidator(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to configure credential validator: %w", err)
			}
			deps.Validator = validator
		}

		checker, err := iam.NewChecker(cfg, deps)
		if err != nil {
			return fmt.Errorf("failed to configure authorization checks: %w", err)
		}
		log.Printf("Authorization check configured: auth_type=%s api_keys=%t",
			cfg.AuthType, cfg.APIKeysEnabled)

		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return fmt.Errorf("failed to create auth metrics: %w", err)
		}
		cacheMetrics, err := telemetry.NewCacheMetrics()
		if err != nil {
			return fmt.Errorf("failed to create cache metrics: %w", err)
		}

		// The connection cache reaper owns abandoned LRGS connections;
		// session destruction cascades into it through the store hook.
		connCache := lrgs.NewConnectionCache(appStatusRepo,
			lrgs.WithCacheMetrics(cacheMetrics))

		sessions := session.NewMemoryStore(cfg.SessionTimeout,
			session.WithDestroyHook(func(sessionID string) {
				connCache.RemoveSession(sessionID)
				authMetrics.SessionClosed(context.Background())
			}))
		defer sessions.Close()

		filter := odcsmiddleware.NewSecurityFilter(checker, sessions, cfg.ExpirationFunc()).
			WithMetrics(authMetrics)

		r := server.NewRouter(server.RouterOptions{
			Checker:  checker,
			Sessions: sessions,
			Filter:   filter,
			Cfg:      cfg,
		})

		reaperCtx, cancelReaper := context.WithCancel(ctx)
		defer cancelReaper()
		connCache.Start(reaperCtx)
		defer connCache.Stop()

		// h2c lets HTTP/2 clients talk cleartext behind a TLS-terminating proxy.
		h2cHandler := h2c.NewHandler(r, &http2.Server{})

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      h2cHandler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

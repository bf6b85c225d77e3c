package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/campus-assistant/internal/adapter/credentials"
	"github.com/user/campus-assistant/internal/portal"
	"github.com/user/campus-assistant/pkg/config"
	"github.com/user/campus-assistant/pkg/logger"
	"github.com/user/campus-assistant/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "campus-assistant",
		Short:         "Student portal dashboard and campus FAQ chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", ".env", "env file with settings; the environment wins")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newScrapeCmd(&configPath))
	return root
}

// bootstrap loads and validates configuration and builds the logger.
func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					log.Error("error during cleanup", zap.Error(err))
				}
			}()
			return serve(ctx, a)
		},
	}
}

// serve runs the HTTP server until ctx is cancelled, then drains it.
func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting server", zap.String("port", a.cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", a.cfg.ServerPort, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server exited gracefully")
	return nil
}

func newScrapeCmd(configPath *string) *cobra.Command {
	var mobile, password string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the portal once and print the dashboard JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			mobile, err := utils.NormalizeMobile(mobile)
			if err != nil {
				return err
			}
			if password == "" {
				store, err := credentials.NewFileStore(cfg.CredentialsFile, cfg.PortalPassword)
				if err != nil {
					return err
				}
				if password, err = store.PasswordFor(cmd.Context(), mobile); err != nil {
					return fmt.Errorf("no password for %s: %w", utils.MaskMobile(mobile), err)
				}
			}

			a, err := newScraperApp(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ScrapeTimeout)
			defer cancel()
			result, rep := a.scraper.Scrape(ctx, portal.Credentials{MobileNumber: mobile, Password: password})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "outcome: %s (%s)\n", rep.Outcome(), rep.Duration.Round(time.Millisecond))
			if rep.AuthErr != nil {
				return fmt.Errorf("portal login failed: %w", rep.AuthErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mobile, "mobile", "", "student mobile number")
	cmd.Flags().StringVar(&password, "password", "", "portal password; defaults to the credentials file")
	_ = cmd.MarkFlagRequired("mobile")
	return cmd
}

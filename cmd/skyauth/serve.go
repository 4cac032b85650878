package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"skyauth/bridge"
	"skyauth/core"
	"skyauth/core/providers"
	"skyauth/scheduler"
	"skyauth/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the login gatekeeper, the game server bridge and the admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := initLogger(os.Stdout, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *AppConfig, logger *slog.Logger) error {
	backend, err := storage.Open(ctx, cfg.Store, cfg.Bans, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewMetrics(reg)
	coreOpts := []core.Option{core.WithLogger(logger), core.WithMetrics(metrics)}

	provider := providers.NewDiscordProvider(&cfg.Discord)
	if cfg.Core.FetchRoles {
		logger.Info("guild role lookup enabled", "guild_id", cfg.Discord.GuildID,
			"whitelist_role_id", cfg.Core.WhitelistRoleID)
	}

	outbox, err := bridge.NewWebhookOutbox(cfg.Server.Bridge)
	if err != nil {
		return err
	}
	registry := bridge.NewRegistry(outbox, bridge.WithLogger(logger))

	loop := scheduler.NewLoop(scheduler.WithLogger(logger))
	resolver := core.NewResolver(backend.Store, coreOpts...)

	gatekeeper, err := core.NewGatekeeper(loop, core.GatekeeperDeps{
		Server:    registry,
		Validator: core.NewTokenValidator(provider, cfg.Core.ValidateTimeout, coreOpts...),
		Resolver:  resolver,
		Bans:      backend.Bans,
		Provider:  provider,
	}, cfg.Core, coreOpts...)
	if err != nil {
		return err
	}

	admin := core.NewServer(loop, gatekeeper, resolver, backend.Bans, reg, core.WithLogger(logger))
	ingress := bridge.NewHandler(loop, registry, gatekeeper, gatekeeper.Sessions(), bridge.HandlerConfig{
		Secret: cfg.Server.Bridge.Secret,
		Logger: logger,
	})

	servers := []*http.Server{
		{Addr: cfg.Server.AdminAddr, Handler: admin.Router(), ReadHeaderTimeout: 5 * time.Second},
		{Addr: cfg.Server.BridgeAddr, Handler: ingress.Router(), ReadHeaderTimeout: 5 * time.Second},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return registry.Run(ctx)
	})
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	logger.Info("skyauth started", "offline_mode", cfg.Core.OfflineMode, "store", cfg.Store.Type)
	err = g.Wait()
	logger.Info("skyauth stopped")
	return err
}

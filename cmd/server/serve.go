package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"meeting-scheduler/internal/app"
	"meeting-scheduler/internal/config"
	"meeting-scheduler/internal/logging"
	"meeting-scheduler/internal/server"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.App.Port = port
			}
			log, err := logging.New(cfg.App.LogLevel, cfg.App.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.App.Env != "development" {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer d.Close()

			if len(cfg.Auth.StaticTokens) == 0 && cfg.Auth.JWTHMACSecret == "" {
				log.Warn("no STATIC_TOKENS or JWT_HMAC_SECRET configured; /api rejects every request")
			}
			router := server.NewRouter(d.app,
				app.AuthMiddleware(cfg.Auth.StaticTokens, cfg.Auth.JWTHMACSecret),
				d.metrics.Handler(), log)
			return server.Run(ctx, router, fmt.Sprintf(":%s", cfg.App.Port), log)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port, overrides PORT")
	return cmd
}

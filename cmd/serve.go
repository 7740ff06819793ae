package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halcyonpay/amlscreen/internal/monitoring"
	"github.com/halcyonpay/amlscreen/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screening HTTP API",
	Long:  "Serves /screen, /screen/file, /refresh-lists and the operational endpoints. When a monitoring webhook is configured a background checker watches feed freshness.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(env.store, env.refreshLog, sourceInfos(env)),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		handler := server.New(env.screener, env.engine, env.store, server.Options{
			MaxRequestMB: cfg.Server.MaxRequestMB,
			AdminKey:     cfg.Server.AdminKey,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, port),
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("screening API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// sourceInfos projects the registry for the monitoring collector.
func sourceInfos(env *appEnv) []monitoring.SourceInfo {
	sources := env.registry.All()
	out := make([]monitoring.SourceInfo, 0, len(sources))
	for _, src := range sources {
		out = append(out, monitoring.SourceInfo{
			Name:     src.Name(),
			ListName: string(src.ListName()),
		})
	}
	return out
}

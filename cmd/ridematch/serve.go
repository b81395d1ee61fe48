// README: serve command; loads config, wires the app and runs until signalled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"ridematch/internal/app"
	"ridematch/internal/config"
	"ridematch/internal/infra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatch server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := infra.NewLogger(cfg.App.Env, cfg.Log.Level, "main")

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	svc, err := app.New(ctx, cfg, reg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()
	log.Info().Str("addr", cfg.HTTP.Addr).Msg("ridematch starting")
	return svc.Run(ctx)
}

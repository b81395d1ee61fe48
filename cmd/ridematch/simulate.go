// README: simulate command; drives a running server with simulated drivers and customer requests.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ridematch/internal/infra"
	"ridematch/internal/sim"
)

var simCfg = sim.DefaultConfig()

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Connect simulated drivers to a running server and post sample requests",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simCfg.ServerURL, "server", simCfg.ServerURL, "server base URL")
	f.IntVar(&simCfg.Drivers, "drivers", simCfg.Drivers, "number of simulated drivers")
	f.Float64Var(&simCfg.Center.Lat, "lat", simCfg.Center.Lat, "latitude drivers are scattered around")
	f.Float64Var(&simCfg.Center.Lng, "lon", simCfg.Center.Lng, "longitude drivers are scattered around")
	f.Float64Var(&simCfg.SpreadKm, "spread-km", simCfg.SpreadKm, "scatter radius in km")
	f.Float64Var(&simCfg.AcceptProbability, "accept", simCfg.AcceptProbability, "probability a driver accepts an offer")
	f.DurationVar(&simCfg.UpdateInterval, "update-interval", simCfg.UpdateInterval, "status update period")
	f.DurationVar(&simCfg.TripScale, "trip-scale", simCfg.TripScale, "wall time per simulated trip minute")
	f.IntVar(&simCfg.Requests, "requests", simCfg.Requests, "number of generated customer requests")
	f.DurationVar(&simCfg.RequestInterval, "request-interval", simCfg.RequestInterval, "delay between requests")
	f.StringVar(&simCfg.RequestsFile, "requests-file", "", "JSON array of requests to replay instead of generating")
	f.DurationVar(&simCfg.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	f.Uint64Var(&simCfg.Seed, "seed", 0, "random seed (0 picks one)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := infra.NewLogger("dev", "info", "sim")
	stats, err := sim.New(simCfg, log).Run(ctx)

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

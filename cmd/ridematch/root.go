// README: Root command and shared flags.
package main

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "ridematch",
	Short:        "Ride dispatch engine",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(serveCmd, simulateCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

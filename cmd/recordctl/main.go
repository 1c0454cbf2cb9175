// Package main provides recordctl, an operator CLI for filters, searches and seeding.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recordhub/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "recordctl",
	Short:         "recordhub operator CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("RECORDHUB_CONFIG"), "config file (yaml, json or toml)")
	rootCmd.AddCommand(newTranslateCmd(), newSearchCmd(), newSeedCmd(), newReindexCmd())
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the rabbithole CLI.
// Implements: prd007-graph-core, prd008-persistence (CLI surface).
// See docs/ARCHITECTURE.md § Command Surface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/rabbithole/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the rabbithole CLI.
var rootCmd = &cobra.Command{
	Use:   "rabbithole",
	Short: "Graph intelligence core for exploratory research sessions",
	Long: `rabbithole maintains a live knowledge graph of research papers: it
deduplicates incoming records, scores nodes across five dimensions,
derives centrality and community structure, computes layouts, and
persists every mutation through a durable write queue.

Each operation is a subcommand: analyze re-scores a snapshot, layout
computes positions, sync replays a snapshot into the SQLite store, and
snapshot inspects persisted graphs.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./rabbithole.yaml or ~/.config/rabbithole/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rabbithole")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "rabbithole"))
		}
	}

	viper.SetEnvPrefix("RABBITHOLE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// coreConfig builds the core configuration from defaults overridden by
// whatever the config file or environment set.
func coreConfig() types.CoreConfig {
	cfg := types.DefaultCoreConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Ignoring malformed config:", err)
		return types.DefaultCoreConfig()
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

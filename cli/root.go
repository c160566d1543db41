// Package cli is the foundrchain command tree. Every command opens the ledger
// in-process from the configured data dir and closes it on return.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"foundrchain/core/config"
	"foundrchain/core/ledger"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:           "foundrchain",
	Short:         "Founder compensation ledger",
	Long:          "A command-line tool for running and querying a foundrchain ledger node.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the configured data directory")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// withLedger opens the ledger for the duration of fn.
func withLedger(ctx context.Context, fn func(*ledger.Ledger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := ledger.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	return fn(l)
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "plain", "Output format: plain|json")
}

func wantJSON(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == "json"
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

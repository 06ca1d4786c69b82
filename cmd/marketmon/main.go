// Command marketmon is the Marketplace Resilience Monitor.
//
// Usage:
//
//	marketmon                   Interactive TUI
//	marketmon search <query>    One headless fetch cycle
//	marketmon events            JSONL event log viewer
//	marketmon history           Cycle history (file-backed history DB only)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/marketmon/internal/config"
)

const version = "0.1.0"

var (
	configFile  string
	verbose     bool
	chaos       bool
	query       string
	endpoint    string
	dataDir     string
	historyDB   string
	metricsAddr string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "marketmon",
	Short: "Marketplace Resilience Monitor",
	Long: `marketmon searches a product catalog while deliberately degrading the
connection: every request pays a simulated network delay, and Chaos Monkey
mode replaces requests with injected failures.

Run without arguments to start the interactive monitor.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML config file (default: ./marketmon.yaml, ~/.marketmon/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug-level diagnostic log")
	pf.BoolVar(&chaos, "chaos", false, "Start with Chaos Monkey on")
	pf.StringVarP(&query, "query", "q", "", "Initial search query")
	pf.StringVar(&endpoint, "endpoint", "", "Product search endpoint")
	pf.StringVar(&dataDir, "data-dir", "", "Directory for logs, events and history")
	pf.StringVar(&historyDB, "history-db", "", "Cycle history database (:memory: or a file)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.DurationVar(&timeout, "timeout", 0, "Hard request timeout")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "marketmon:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config files and environment, then applies any flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var files []string
	if configFile != "" {
		files = []string{configFile}
	}
	cfg, err := config.Load(files)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if flags.Changed("chaos") {
		cfg.Chaos = chaos
	}
	if flags.Changed("query") {
		cfg.InitialQuery = query
	}
	if flags.Changed("endpoint") {
		cfg.Fetch.Endpoint = endpoint
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("history-db") {
		cfg.HistoryDB = historyDB
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cordon stages, deploys and reviews simulated police roadblocks in
// the terminal.
//
// Usage:
//
//	cordon levels            - List roadblock variants and level tiers
//	cordon deploy            - Run headless deployments against a pursuit
//	cordon preview           - Interactive staging and monitoring console
//	cordon history           - Show recorded deployment history
//	cordon serve             - Start SSH server for remote consoles
//
// Global flags:
//
//	--config <path>    - Custom engine config YAML
//	--db <path>        - History database path (default: ~/.cordon/history.db)
//	--seed <value>     - RNG seed for reproducible deployments
//	--log-level <lvl>  - Log verbosity: debug, info, warn, error
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/cordon/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagSeed     int64
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cordon",
	Short: "Cordon - roadblock deployment simulator",
	Long: `Cordon models temporary road-blocking formations: lane selection,
slot placement, spike strips and the deployment lifecycle, driven
against a simulated pursuit.

Available commands:
  levels   - List roadblock variants and level tiers
  deploy   - Run headless deployments and record the outcomes
  preview  - Interactive staging, deployment and history console
  history  - Review recorded deployments
  serve    - Start SSH server for remote consoles

Examples:
  cordon levels
  cordon deploy --variant pursuit --level 3 --spike-strips
  cordon deploy --count 5 --seed 42
  cordon preview
  cordon history --stats
  cordon serve --ssh :2222`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to custom engine config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.cordon/history.db", "Path to history database")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the CLI logger honoring --log-level.
func newLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "cordon",
	})
	if lvl, err := log.ParseLevel(flagLogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// loadEngineConfig loads the engine configuration honoring --config.
func loadEngineConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// seedValue resolves --seed, substituting the clock when unset.
func seedValue() int64 {
	if flagSeed != 0 {
		return flagSeed
	}
	return time.Now().UnixNano()
}

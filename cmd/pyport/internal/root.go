package internal

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/goplus/pyport/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "pyport",
	Short: "pyport builds portable CPython distributions",
	Long: `pyport builds a relocatable CPython from source, optionally linking
native support libraries, and packs the trimmed install tree into a
tarball that runs from any directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pyport.yml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose build output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		newLogger(log.InfoLevel).Fatal(err)
	}
}

// loadConfig reads --config and applies an optional version argument.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Version = args[0]
	}
	if verbose {
		cfg.LogLevel = log.DebugLevel.String()
	}
	return cfg, nil
}

func newLogger(level log.Level) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "pyport",
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})
}

func logLevel() log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

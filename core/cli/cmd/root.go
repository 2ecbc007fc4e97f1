package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/strata-analytics/strata/core/config"
	"github.com/strata-analytics/strata/core/logging"
)

// version stores the version string, set via SetVersion()
var version = "dev"

// SetVersion sets the version string (called from main.init())
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version string
func GetVersion() string {
	return version
}

var (
	configFile  string
	logLevel    int
	verbose     bool
	logTags     string
	showVersion bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "strata",
	Short:         "strata\nExtraction queries and A/B-test statistics for campaign analytics",
	SilenceUsage:  true,
	SilenceErrors: true, // Errors are already logged, suppress Cobra's error output
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file (default strata.yaml)")
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", 0, "Log level: 1=ERROR, 2=WARN, 3=INFO, 4=DEBUG")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (sets log level to DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logTags, "log-tags", "", "Comma-separated tag filter, '-' prefix excludes")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print the installed version and exit")

	// Root command should only print help.
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		}
		return cmd.Help()
	}
}

// applyLogSettings resolves log flags against the config defaults.
func applyLogSettings(cfg *config.Config) {
	level := 0
	if cfg != nil {
		switch cfg.Log.Level {
		case "error":
			level = logging.LogLevelError
		case "warn":
			level = logging.LogLevelWarn
		case "info":
			level = logging.LogLevelInfo
		case "debug":
			level = logging.LogLevelDebug
		}
		if cfg.Log.Tags != "" && logTags == "" {
			logging.SetTagFilter(cfg.Log.Tags)
		}
	}
	if logLevel != 0 {
		level = logLevel
	}
	if verbose {
		level = logging.LogLevelDebug
	}
	if level != 0 {
		logging.SetLogLevel(level)
	}
	if logTags != "" {
		logging.SetTagFilter(logTags)
	}
}

// loadConfig loads env files, then the project config, then applies the
// logging settings.
func loadConfig() (*config.Config, error) {
	LoadEnvFiles(filepath.Dir(configFile))
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	applyLogSettings(cfg)
	return cfg, nil
}

// LoadEnvFiles attempts to load .env files from multiple locations.
// It tries each location in order and stops at the first successful load.
// System environment variables always take precedence over .env file values.
func LoadEnvFiles(fromDir string) {
	envFiles := []string{".env.local", ".env"}

	// Try loading from the provided directory first (e.g., config file directory)
	if fromDir != "" && fromDir != "." {
		for _, envFile := range envFiles {
			envPath := filepath.Join(fromDir, envFile)
			if err := godotenv.Load(envPath); err == nil {
				return // Successfully loaded, stop trying
			}
		}
	}

	// Try loading from current working directory
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			return
		}
	}

	// Try loading from the directory containing the executable binary
	if execPath, err := os.Executable(); err == nil {
		if realPath, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = realPath
		}
		execDir := filepath.Dir(execPath)
		for _, envFile := range envFiles {
			envPath := filepath.Join(execDir, envFile)
			if err := godotenv.Load(envPath); err == nil {
				return
			}
		}
	}
}

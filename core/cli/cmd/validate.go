package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/strata-analytics/strata/core/connectors"
	"github.com/strata-analytics/strata/core/logging"
	"github.com/strata-analytics/strata/core/query"
)

var (
	checkConnect   bool
	validateScript string
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:           "validate",
	Short:         "Validate the strata config and optionally a script",
	RunE:          runValidate,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&checkConnect, "connect", false, "Also try connecting to every adapter")
	validateCmd.Flags().StringVarP(&validateScript, "script", "f", "", "Also parse an extraction script and report its steps")
}

func runValidate(cmd *cobra.Command, args []string) error {
	log := logging.New("validate")

	cfg, err := loadConfig()
	if err != nil {
		return log.Errorf("validation failed: %w", err)
	}

	log.Info("Validation report:")
	log.Infof("  adapters: %d", len(cfg.Adapters))

	names := make([]string, 0, len(cfg.Adapters))
	for name := range cfg.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		adapter := cfg.Adapters[name]
		log.Infof("    - %s: driver=%s host=%s service=%s", name, adapter.Driver, adapter.Host, adapter.Service)
	}

	backend := cfg.Cache.Backend
	if backend == "" {
		backend = "memory"
	}
	log.Infof("  cache: backend=%s ttl=%s", backend, cfg.Cache.TTLOrDefault())

	if validateScript != "" {
		script, err := query.Load(query.Source{File: validateScript}, true)
		if err != nil {
			return log.Errorf("validation failed: %w", err)
		}
		log.Infof("  script: %s", validateScript)
		log.Infof("    groups: %d", len(script.Groups()))
		log.Infof("    steps: %d", script.NumSteps())
	}

	if checkConnect {
		manager := connectors.NewManager()
		if err := manager.InitializeAll(cfg.AdapterParams()); err != nil {
			return log.Errorf("validation failed: %w", err)
		}
		defer manager.CloseAll()
		log.Infof("  connections: %d adapter(s) reachable", manager.Count())
	}

	log.Successf("Configuration is valid")
	return nil
}

package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/strata-analytics/strata/core/config"
	"github.com/strata-analytics/strata/core/connectors"
	"github.com/strata-analytics/strata/core/logging"
	"github.com/strata-analytics/strata/core/query"
)

var (
	scriptFile  string
	source      string
	adapterName string
	noSteps     bool
	noCache     bool
	limit       int
	watch       bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run an extraction script against a configured adapter",
	Long: `Run an extraction script and print each step's result.

Scripts are split on SUB_QUERY marker lines into groups and on
BASE_QUERY/QUERY_STEP marker lines into cumulative steps; steps run in
order and results are cached by statement text. With --out, the final
step's result is written in the chosen format.`,
	RunE:          runExtract,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Path to the extraction script")
	extractCmd.Flags().StringVarP(&source, "source", "s", "", "Script as a string (alternative to --file)")
	extractCmd.Flags().StringVarP(&adapterName, "adapter", "a", "", "Adapter name from the config (optional when only one is configured)")
	extractCmd.Flags().BoolVar(&noSteps, "no-steps", false, "Run the whole script as a single statement")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the step-result cache")
	extractCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Max rows to fetch per step (0 = all)")
	extractCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run when the script file changes")
	addOutputFlags(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logging.New("extract")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	script, err := query.Load(query.Source{File: scriptFile, Text: source}, !noSteps)
	if err != nil {
		return err
	}

	name, adapter, err := cfg.Adapter(adapterName)
	if err != nil {
		return err
	}

	manager := connectors.NewManager()
	params := cfg.AdapterParams()
	if err := manager.InitializeAll(map[string]connectors.Params{name: params[name]}); err != nil {
		return err
	}
	defer manager.CloseAll()

	conn, _ := manager.Get(name)
	log.Debugf("Using adapter '%s' (%s)", name, adapter.Driver)

	opts := []query.Option{query.WithLimit(limit)}
	if !noCache {
		cache, err := buildCache(cfg)
		if err != nil {
			return err
		}
		opts = append(opts, query.WithCache(cache))
	}
	runner := query.NewRunner(script, conn, opts...)

	if !watch {
		return runOnce(cmd, runner, script)
	}
	return runWatch(cmd, runner, script)
}

func runOnce(cmd *cobra.Command, runner *query.Runner, script *query.Script) error {
	log := logging.New("extract")

	started := time.Now()
	results, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}
	log.Infof("Ran %d step(s) in %s", len(results), time.Since(started).Round(time.Millisecond))

	return writeResults(cmd.OutOrStdout(), results)
}

// runWatch re-runs the script whenever its file changes, in the same
// debounced loop the dev workflow uses for config reloads.
func runWatch(cmd *cobra.Command, runner *query.Runner, script *query.Script) error {
	log := logging.New("extract:watch")

	if script.File() == "" {
		return log.Errorf("--watch requires --file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(script.File()); err != nil {
		return err
	}

	rerun := make(chan struct{}, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Watch for file changes
	go func() {
		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					if debounce != nil {
						debounce.Stop()
					}
					debounce = time.AfterFunc(500*time.Millisecond, func() {
						select {
						case rerun <- struct{}{}:
						default:
						}
					})
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	log.Infof("Watching %s for changes...", script.File())

	for {
		if err := runOnce(cmd, runner, script); err != nil {
			// Report and keep watching; the next edit may fix the script.
			log.Warnf("run failed: %v", err)
		}

		select {
		case <-sigChan:
			return nil
		case <-rerun:
			log.Info("Script changed, re-running...")
		}
	}
}

// buildCache constructs the configured cache backend.
func buildCache(cfg *config.Config) (query.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return query.NewRedisCache(cfg.Cache.URL, cfg.Cache.TTLOrDefault())
	default:
		return query.NewMemoryCache(cfg.Cache.MaxBytes, cfg.Cache.TTLOrDefault()), nil
	}
}

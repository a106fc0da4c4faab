package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pevans/noticias/browser"
	"github.com/pevans/noticias/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// options holds the command line flags.
type options struct {
	configPath string
	start      int
	end        int
	delay      time.Duration
	output     string
	static     bool
	logLevel   string
	logFormat  string
}

// newLauncher picks the browser for a run.
func newLauncher(cfg *config.FileConfig, logger *zap.Logger) browser.Launcher {
	if cfg.Run.Static {
		return browser.StaticLauncher{}
	}
	return browser.ChromeLauncher{Logger: logger.Named("chrome")}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := config.Default()

	defaultConfigPath, err := config.DefaultConfigPath()
	if err != nil {
		defaultConfigPath = ""
	}

	cmd := &cobra.Command{
		Use:   "noticias",
		Short: "Scrape the CASSEMS news listing into a CSV file",
		Long: "Walks the paginated news listing, visits every linked article to recover\n" +
			"its date, author and body text, and writes the results to a CSV file.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			return runScrape(cmd, cfg, newLauncher(cfg, logger), logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", getEnv("NOTICIAS_CONFIG", defaultConfigPath), "Path to YAML config file (NOTICIAS_CONFIG)")
	flags.IntVar(&opts.start, "start", defaults.Run.StartPage, "First listing page")
	flags.IntVar(&opts.end, "end", defaults.Run.EndPage, "Last listing page")
	flags.DurationVar(&opts.delay, "delay", defaults.Run.PageDelay, "Pause between listing pages")
	flags.StringVar(&opts.output, "output", defaults.Run.Output, "CSV output path")
	flags.BoolVar(&opts.static, "static", defaults.Run.Static, "Fetch pages over plain HTTP instead of headless Chrome")
	flags.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", defaults.Log.Format, "Log format (console or json)")

	return cmd
}

// loadConfig reads the config file and applies flags given on the command
// line over it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.FileConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		cfg.Run.StartPage = opts.start
	}
	if flags.Changed("end") {
		cfg.Run.EndPage = opts.end
	}
	if flags.Changed("delay") {
		cfg.Run.PageDelay = opts.delay
	}
	if flags.Changed("output") {
		cfg.Run.Output = opts.output
	}
	if flags.Changed("static") {
		cfg.Run.Static = opts.static
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

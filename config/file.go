package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/noticias/scraper"
	"gopkg.in/yaml.v3"
)

// RunConfig sets the page range, throttling and output of a run.
type RunConfig struct {
	StartPage int           `yaml:"start_page"`
	EndPage   int           `yaml:"end_page"`
	PageDelay time.Duration `yaml:"page_delay"`
	Output    string        `yaml:"output"`
	Static    bool          `yaml:"static"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// FileConfig represents the structure of the YAML config file.
type FileConfig struct {
	Run  RunConfig          `yaml:"run"`
	Log  LogConfig          `yaml:"log"`
	Site scraper.SiteConfig `yaml:"site"`
}

// Default returns the configuration used when no file is present.
func Default() *FileConfig {
	return &FileConfig{
		Run: RunConfig{
			StartPage: 1,
			EndPage:   185,
			PageDelay: 1 * time.Second,
			Output:    "noticias.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Site: scraper.DefaultSiteConfig(),
	}
}

// DefaultConfigPath returns ~/.noticias/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".noticias", "config.yaml"), nil
}

// LoadConfigFile loads configuration from path over the defaults. Keys
// missing from the file keep their default values. A missing file is not
// an error; the defaults are returned. An unparsable file is.
func LoadConfigFile(path string) (*FileConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the run settings.
func (c *FileConfig) Validate() error {
	if c.Run.StartPage < 1 {
		return fmt.Errorf("start page must be at least 1, got %d", c.Run.StartPage)
	}
	if c.Run.EndPage < c.Run.StartPage {
		return fmt.Errorf("end page (%d) is before start page (%d)", c.Run.EndPage, c.Run.StartPage)
	}
	if c.Run.PageDelay < 0 {
		return fmt.Errorf("page delay must not be negative, got %s", c.Run.PageDelay)
	}
	if c.Run.Output == "" {
		return errors.New("output path is empty")
	}
	if c.Site.ListingURL == "" {
		return errors.New("site listing_url is empty")
	}
	return nil
}

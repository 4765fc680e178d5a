package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all csvharvest configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	// Target application and credentials
	Site SiteConfig `yaml:"site"`

	// Element locators used to drive the UI
	Selectors Selectors `yaml:"selectors"`

	// Browser launch settings
	Browser BrowserConfig `yaml:"browser"`

	// Stage timing and failure policy
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Export download handling
	Export ExportConfig `yaml:"export"`

	// Download directory and file names
	Files FilesConfig `yaml:"files"`

	// Row filters and sort order
	Transform TransformConfig `yaml:"transform"`

	// Daily run times and dispatch policy
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			NavigationTimeout: "30s",
		},

		Pipeline: PipelineConfig{
			SettleDelay:     "5s",
			LinkWaitTimeout: "10s",
			BestEffort:      true,
		},

		Export: ExportConfig{
			WaitForDownload: true,
			DownloadTimeout: "60s",
			FallbackDelay:   "5s",
		},

		Files: FilesConfig{
			OutputFilename: "processed_data.csv",
		},

		Scheduler: SchedulerConfig{
			RunTimes:     []string{"08:00", "12:00", "16:00"},
			Timezone:     "Local",
			PollInterval: "1s",
			OnError:      OnErrorContinue,
			Overlap:      OverlapSkip,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults.
// A missing file yields the defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("HARVEST_URL"); v != "" {
		c.Site.URL = v
	}
	if v := os.Getenv("HARVEST_USERNAME"); v != "" {
		c.Site.Username = v
	}
	// Credentials are commonly injected this way rather than written to disk.
	if v := os.Getenv("HARVEST_PASSWORD"); v != "" {
		c.Site.Password = v
	}
	if v := os.Getenv("HARVEST_DOWNLOAD_DIR"); v != "" {
		c.Files.DownloadDir = v
	}
	if v := os.Getenv("HARVEST_DRIVER_PATH"); v != "" {
		c.Browser.DriverPath = v
	}
	if v := os.Getenv("HARVEST_RUN_TIMES"); v != "" {
		var times []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				times = append(times, t)
			}
		}
		c.Scheduler.RunTimes = times
	}
}

// Validate reports every problem found, not just the first.
func (c *Config) Validate() error {
	var errs []error
	required := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	required("site.url", c.Site.URL)
	required("site.username", c.Site.Username)
	required("site.password", c.Site.Password)
	errs = append(errs, c.Selectors.validate()...)
	required("files.download_dir", c.Files.DownloadDir)
	required("files.source_filename", c.Files.SourceFilename)
	required("files.output_filename", c.Files.OutputFilename)
	if c.Files.SourceFilename != "" && c.Files.SourceFilename == c.Files.OutputFilename {
		errs = append(errs, errors.New("files.output_filename must differ from files.source_filename"))
	}
	errs = append(errs, c.Transform.validate()...)
	errs = append(errs, c.Scheduler.validate()...)
	errs = append(errs, c.Logging.validate()...)

	for _, f := range []struct{ name, value string }{
		{"browser.navigation_timeout", c.Browser.NavigationTimeout},
		{"pipeline.settle_delay", c.Pipeline.SettleDelay},
		{"pipeline.link_wait_timeout", c.Pipeline.LinkWaitTimeout},
		{"export.download_timeout", c.Export.DownloadTimeout},
		{"export.fallback_delay", c.Export.FallbackDelay},
		{"scheduler.poll_interval", c.Scheduler.PollInterval},
	} {
		if f.value == "" {
			continue
		}
		if _, err := time.ParseDuration(f.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", f.name, f.value))
		}
	}

	return errors.Join(errs...)
}

// parseDuration returns the parsed duration or fallback when s is empty or malformed.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

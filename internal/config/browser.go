package config

import "time"

// BrowserConfig configures the Chromium instance driven for each run.
type BrowserConfig struct {
	// Path to the Chromium/Chrome executable. Empty uses the browser rod
	// manages (downloaded on first use).
	DriverPath string `yaml:"driver_path"`

	Headless          bool   `yaml:"headless"`
	NavigationTimeout string `yaml:"navigation_timeout"`
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 30*time.Second)
}

package config

import "time"

// PipelineConfig controls stage timing and what happens after a stage fails.
type PipelineConfig struct {
	// Unconditional pause after navigation and menu clicks.
	SettleDelay string `yaml:"settle_delay"`

	// Ceiling for the wait on the navigation link becoming clickable.
	LinkWaitTimeout string `yaml:"link_wait_timeout"`

	// When true, a failed login or navigation is logged and the later stages
	// still run. When false the run stops at the first interaction failure.
	BestEffort bool `yaml:"best_effort"`
}

// ExportConfig controls how the exporter decides the download is done.
type ExportConfig struct {
	// Watch the download directory for the finished file instead of sleeping.
	WaitForDownload bool   `yaml:"wait_for_download"`
	DownloadTimeout string `yaml:"download_timeout"`

	// Sleep used when WaitForDownload is off.
	FallbackDelay string `yaml:"fallback_delay"`
}

// GetSettleDelay returns the fixed post-action pause.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.Pipeline.SettleDelay, 5*time.Second)
}

// GetLinkWaitTimeout returns the bounded wait for the navigation link.
func (c *Config) GetLinkWaitTimeout() time.Duration {
	return parseDuration(c.Pipeline.LinkWaitTimeout, 10*time.Second)
}

// GetDownloadTimeout returns the ceiling for the download watcher.
func (c *Config) GetDownloadTimeout() time.Duration {
	return parseDuration(c.Export.DownloadTimeout, 60*time.Second)
}

// GetFallbackDelay returns the post-export sleep used without a watcher.
func (c *Config) GetFallbackDelay() time.Duration {
	return parseDuration(c.Export.FallbackDelay, 5*time.Second)
}

// Package browser launches and drives the Chromium instance used for one
// pipeline run. Each Session owns its own browser process; nothing is reused
// across runs.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds browser configuration.
type Config struct {
	// Bin is the Chromium executable; empty lets rod resolve or download one.
	Bin                 string
	Headless            bool
	NavigationTimeoutMs int
	ViewportWidth       int
	ViewportHeight      int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		NavigationTimeoutMs: 30000,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// downloadPrefs mirrors the Chrome profile preferences that make downloads
// land silently in one directory.
type downloadPrefs struct {
	Download struct {
		DefaultDirectory  string `json:"default_directory"`
		PromptForDownload bool   `json:"prompt_for_download"`
		DirectoryUpgrade  bool   `json:"directory_upgrade"`
	} `json:"download"`
}

func preferencesJSON(dir string) (string, error) {
	var p downloadPrefs
	p.Download.DefaultDirectory = dir
	p.Download.PromptForDownload = false
	p.Download.DirectoryUpgrade = true
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Manager creates sessions.
type Manager struct {
	cfg Config
	log *zap.Logger
}

// NewManager creates a new session manager.
func NewManager(cfg Config, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, log: log}
}

// Session is a live browser with a single page, configured to download into
// one directory.
type Session struct {
	ID          string
	DownloadDir string
	CreatedAt   time.Time

	cfg      Config
	log      *zap.Logger
	launcher *launcher.Launcher
	launched bool
	browser  *rod.Browser
	page     *rod.Page

	closeOnce sync.Once
	closeErr  error
}

// CreateSession launches Chromium with downloads routed to downloadDir and
// opens a blank page. On failure every partially started resource is torn
// down before returning.
func (m *Manager) CreateSession(ctx context.Context, downloadDir string) (_ *Session, err error) {
	abs, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve download dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	prefs, err := preferencesJSON(abs)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}

	l := launcher.New().Headless(m.cfg.Headless).Preferences(prefs)
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	l = l.Context(ctx)

	s := &Session{
		ID:          uuid.NewString(),
		DownloadDir: abs,
		CreatedAt:   time.Now(),
		cfg:         m.cfg,
		launcher:    l,
	}
	s.log = m.log.With(zap.String("session", s.ID))
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	s.launched = true

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b

	// The profile preference covers the first page; the CDP call makes the
	// behavior explicit for the whole browser and overrides any prior value.
	if err := (proto.BrowserSetDownloadBehavior{
		Behavior:      proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:  abs,
		EventsEnabled: true,
	}).Call(b); err != nil {
		return nil, fmt.Errorf("set download behavior: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.log.Warn("failed to set viewport", zap.Error(err))
	}

	s.log.Info("browser session started", zap.String("download_dir", abs))
	return s, nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.cfg.NavigationTimeout())
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// find looks selector up once, without rod's default retry-until-found, so a
// missing element fails immediately.
func (s *Session) find(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := s.page.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", selector, err)
	}
	return el, nil
}

// Input types text into the element matched by selector.
func (s *Session) Input(ctx context.Context, selector, text string) error {
	el, err := s.find(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %q: %w", selector, err)
	}
	return nil
}

// Click clicks the element matched by selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.find(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// linkTextPattern matches an anchor whose whole visible text equals text.
func linkTextPattern(text string) string {
	return "^\\s*" + regexp.QuoteMeta(text) + "\\s*$"
}

// WaitLinkClickable polls until an anchor with exactly text is present and
// interactable, or timeout elapses. A timeout surfaces as
// context.DeadlineExceeded in the error chain.
func (s *Session) WaitLinkClickable(ctx context.Context, text string, timeout time.Duration) error {
	p := s.page.Context(ctx).Timeout(timeout)
	el, err := p.ElementR("a", linkTextPattern(text))
	if err != nil {
		return fmt.Errorf("wait for link %q: %w", text, err)
	}
	if _, err := el.WaitInteractable(); err != nil {
		return fmt.Errorf("wait for link %q to be clickable: %w", text, err)
	}
	return nil
}

// ClickLink clicks the anchor whose visible text is exactly text.
func (s *Session) ClickLink(ctx context.Context, text string) error {
	el, err := s.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementR("a", linkTextPattern(text))
	if err != nil {
		return fmt.Errorf("link %q: %w", text, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click link %q: %w", text, err)
	}
	return nil
}

// Close shuts the page, the browser and the launched process. Safe to call
// more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		// Cleanup blocks until the process exits, so only call it once one exists.
		if s.launched {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
		if s.log != nil {
			s.log.Info("browser session closed", zap.Duration("lifetime", time.Since(s.CreatedAt)))
		}
	})
	return s.closeErr
}

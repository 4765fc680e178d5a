// Package pipeline runs one extraction: open a browser session, log in, walk
// to the export page, download the CSV and transform it.
//
// Stages run strictly in order. A setup failure aborts the run. Other
// failures are recorded and, in best-effort mode, the remaining stages still
// run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"csvharvest/internal/config"
	"csvharvest/internal/download"
	"csvharvest/internal/filter"
	"csvharvest/internal/logging"
)

// Pipeline is one configured extraction, safe to Run repeatedly but not
// concurrently; see Runner.
type Pipeline struct {
	cfg     *config.Config
	opener  Opener
	filters filter.Map

	auth      *Authenticator
	nav       *Navigator
	exporter  *Exporter
	transform *Transformer

	now func() time.Time
	log *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithFs replaces the filesystem the exporter checks and the transformer
// reads and writes.
func WithFs(fs afero.Fs) Option {
	return func(p *Pipeline) {
		p.transform.Fs = fs
		p.exporter.Fs = fs
	}
}

// WithDownloadWaiter replaces the waiter chosen from the export config.
// A nil waiter selects the fixed fallback delay.
func WithDownloadWaiter(w DownloadWaiter) Option {
	return func(p *Pipeline) { p.exporter.Waiter = w }
}

// WithSleep replaces the settle and fallback pauses of every stage.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		p.auth.sleep = fn
		p.nav.sleep = fn
		p.exporter.sleep = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.exporter.now = now
	}
}

// New builds a Pipeline from cfg. Filters are compiled here so a bad
// declaration fails before any browser is launched.
func New(cfg *config.Config, opener Opener, log *zap.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fm, err := filter.Compile(cfg.Transform.Filters)
	if err != nil {
		return nil, fmt.Errorf("compile filters: %w", err)
	}

	fs := afero.NewOsFs()
	settle := cfg.GetSettleDelay()
	p := &Pipeline{
		cfg:       cfg,
		opener:    opener,
		filters:   fm,
		auth:      NewAuthenticator(settle, logging.For(log, logging.CategoryAuth)),
		nav:       NewNavigator(settle, cfg.GetLinkWaitTimeout(), logging.For(log, logging.CategoryNavigate)),
		exporter:  NewExporter(cfg.Files.SourceFilename, cfg.GetFallbackDelay(), logging.For(log, logging.CategoryExport)),
		transform: NewTransformer(fs, cfg.Files.OutputFilename, logging.For(log, logging.CategoryTransform)),
		now:       time.Now,
		log:       logging.For(log, logging.CategoryPipeline),
	}
	p.exporter.Selector = cfg.Selectors.ExportLink
	p.exporter.Fs = fs
	p.exporter.SourcePath = cfg.Files.SourcePath()
	p.exporter.Timeout = cfg.GetDownloadTimeout()
	if cfg.Export.WaitForDownload {
		p.exporter.Waiter = download.NewWatcher(cfg.Files.DownloadDir, logging.For(log, logging.CategoryExport))
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run performs one invocation and reports every stage's outcome. It never
// panics on stage failure; inspect the Report.
func (p *Pipeline) Run(ctx context.Context) *Report {
	r := &Report{RunID: uuid.NewString(), Started: p.now()}
	log := p.log.With(zap.String("run_id", r.RunID))
	log.Info("pipeline run started")
	defer func() {
		r.Finished = p.now()
		fields := []zap.Field{
			zap.String("outcome", r.Outcome()),
			zap.Duration("elapsed", r.Finished.Sub(r.Started)),
		}
		if r.Failed() {
			log.Warn("pipeline run finished with failures", fields...)
			return
		}
		log.Info("pipeline run finished", fields...)
	}()

	// step runs fn as stage and reports whether the run may continue.
	step := func(stage Stage, fn func() error) bool {
		start := p.now()
		err := fn()
		r.add(stage, err, p.now().Sub(start))
		if err == nil {
			return true
		}
		log.Error("stage failed",
			zap.String("stage", string(stage)),
			zap.String("kind", KindOf(err).String()),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			return false
		}
		return p.cfg.Pipeline.BestEffort && KindOf(err) != SetupFailure
	}

	var sess Session
	if !step(StageSession, func() error {
		var err error
		sess, err = p.opener.Open(ctx, p.cfg.Files.DownloadDir)
		if err != nil {
			return &StageError{Stage: StageSession, Kind: SetupFailure, Err: err}
		}
		return nil
	}) {
		r.skip(StageLogin, StageNavigate, StageExport, StageTransform)
		return r
	}

	sel := p.cfg.Selectors
	ok := step(StageLogin, func() error {
		return p.auth.Login(ctx, sess, p.cfg.Site.URL, sel, p.cfg.Site.Username, p.cfg.Site.Password)
	})
	if ok {
		ok = step(StageNavigate, func() error {
			return p.nav.NavigateToExportPage(ctx, sess, sel.Dropdown, sel.Submenu, sel.NavigationLinkText)
		})
	} else {
		r.skip(StageNavigate)
	}
	if ok {
		ok = step(StageExport, func() error {
			return p.exporter.ExportAndClose(ctx, sess, sel.ExportLinkText)
		})
	} else {
		if err := sess.Close(); err != nil {
			log.Warn("failed to close browser session", zap.Error(err))
		}
		r.skip(StageExport)
	}
	if !ok {
		r.skip(StageTransform)
		return r
	}

	step(StageTransform, func() error {
		out, err := p.transform.Transform(p.cfg.Files.DownloadDir, p.cfg.Files.SourceFilename, p.filters, p.cfg.Transform.SortColumn)
		r.Output = out
		return err
	})
	return r
}

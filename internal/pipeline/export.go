package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DownloadWaiter blocks until filename has finished downloading. Files
// modified before since are ignored.
type DownloadWaiter interface {
	Wait(ctx context.Context, filename string, since time.Time, timeout time.Duration) (string, error)
}

// mtimeSlack absorbs coarse filesystem timestamps when comparing a download's
// modification time against the click.
const mtimeSlack = 2 * time.Second

// Exporter triggers the CSV download and closes the session.
type Exporter struct {
	// Filename is the name the site gives the downloaded file.
	Filename string
	// Selector is clicked when no export link text is given.
	Selector string

	// Fs and SourcePath locate where the download will land. A file already
	// there means a previous transform failed; the browser then saves the new
	// download under a different name and the watcher cannot see it.
	Fs         afero.Fs
	SourcePath string

	// Waiter, when set, replaces the fixed FallbackDelay with a watch on the
	// download directory bounded by Timeout.
	Waiter        DownloadWaiter
	Timeout       time.Duration
	FallbackDelay time.Duration

	sleep sleepFunc
	now   func() time.Time
	log   *zap.Logger
}

// NewExporter returns an Exporter that sleeps fallback after the click.
// Assign Waiter to wait for the file instead.
func NewExporter(filename string, fallback time.Duration, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		Filename:      filename,
		FallbackDelay: fallback,
		sleep:         sleep,
		now:           time.Now,
		log:           log,
	}
}

// ExportAndClose clicks the export link and waits for the download. The
// session is closed on every path out of this method.
func (e *Exporter) ExportAndClose(ctx context.Context, s Session, linkText string) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil {
			e.log.Warn("failed to close browser session", zap.Error(cerr))
		}
	}()

	e.warnLeftover()

	clicked := e.now().Add(-mtimeSlack)
	switch {
	case linkText != "":
		err = s.ClickLink(ctx, linkText)
	case e.Selector != "":
		err = s.Click(ctx, e.Selector)
	default:
		err = errors.New("no export link configured")
	}
	if err != nil {
		return classify(StageExport, err, InteractionFailure)
	}
	e.log.Info("export triggered", zap.String("file", e.Filename))

	if e.Waiter == nil {
		// Racy: nothing confirms the download finished within the delay.
		if err := e.sleep(ctx, e.FallbackDelay); err != nil {
			return classify(StageExport, err, InteractionFailure)
		}
		return nil
	}

	path, err := e.Waiter.Wait(ctx, e.Filename, clicked, e.Timeout)
	if err != nil {
		return classify(StageExport, err, DataFailure)
	}
	e.log.Info("download finished", zap.String("path", path))
	return nil
}

func (e *Exporter) warnLeftover() {
	if e.Fs == nil || e.SourcePath == "" {
		return
	}
	if ok, err := afero.Exists(e.Fs, e.SourcePath); err == nil && ok {
		e.log.Warn("previous export still present; the new download may be saved under another name",
			zap.String("path", e.SourcePath),
		)
	}
}

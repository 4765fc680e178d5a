package pipeline

import (
	"context"
	"time"
)

// Session is the browser surface the stages drive.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Input(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	WaitLinkClickable(ctx context.Context, text string, timeout time.Duration) error
	ClickLink(ctx context.Context, text string) error
	Close() error
}

// Opener creates a fresh Session whose downloads land in downloadDir.
type Opener interface {
	Open(ctx context.Context, downloadDir string) (Session, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, downloadDir string) (Session, error)

// Open calls f.
func (f OpenerFunc) Open(ctx context.Context, downloadDir string) (Session, error) {
	return f(ctx, downloadDir)
}

// sleepFunc pauses for d unless ctx ends first.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

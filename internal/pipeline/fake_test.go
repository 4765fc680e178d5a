package pipeline

import (
	"context"
	"sync"
	"time"
)

// fakeSession records every call and fails the ones listed in fail.
type fakeSession struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]error
	closed int

	// onClickLink runs after a successful ClickLink, e.g. to drop a
	// "downloaded" file.
	onClickLink func(text string)
}

func newFakeSession() *fakeSession {
	return &fakeSession{fail: map[string]error{}}
}

func (f *fakeSession) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	return f.record("navigate:" + url)
}

func (f *fakeSession) Input(_ context.Context, selector, text string) error {
	return f.record("input:" + selector + "=" + text)
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	return f.record("click:" + selector)
}

func (f *fakeSession) WaitLinkClickable(_ context.Context, text string, _ time.Duration) error {
	return f.record("wait:" + text)
}

func (f *fakeSession) ClickLink(_ context.Context, text string) error {
	if err := f.record("link:" + text); err != nil {
		return err
	}
	if f.onClickLink != nil {
		f.onClickLink(text)
	}
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type fakeWaiter struct {
	path  string
	err   error
	since time.Time
	name  string
}

func (w *fakeWaiter) Wait(_ context.Context, filename string, since time.Time, _ time.Duration) (string, error) {
	w.name = filename
	w.since = since
	return w.path, w.err
}

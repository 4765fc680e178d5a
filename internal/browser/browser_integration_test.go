//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvharvest/internal/browser"
	"csvharvest/internal/download"
)

const exportBody = "Status,Code\n---,ABC\nOK,XYZ\n"

// fakeSite serves a login form, a two-level menu that reveals the export page
// link after a short delay, and a CSV attachment.
func fakeSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<input id="username"><input id="password" type="password">
<button id="login" onclick="location.href='/home?u='+document.getElementById('username').value">Sign in</button>
</body></html>`)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<a id="menu" href="#" onclick="document.getElementById('sub').style.display='block'">Reports</a>
<div id="sub" style="display:none">
  <a id="monthly" href="#" onclick="setTimeout(function(){document.getElementById('nav').style.display='block'}, 300)">Monthly</a>
</div>
<div id="nav" style="display:none"><a href="/export">Monthly report</a></div>
</body></html>`)
	})
	mux.HandleFunc("/export", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/download">Export CSV</a></body></html>`)
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="export.csv"`)
		fmt.Fprint(w, exportBody)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newSession(t *testing.T, ctx context.Context, dir string) *browser.Session {
	t.Helper()
	cfg := browser.DefaultConfig()
	cfg.NavigationTimeoutMs = 10000
	cfg.Bin = os.Getenv("HARVEST_DRIVER_PATH")

	s, err := browser.NewManager(cfg, nil).CreateSession(ctx, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSession_LoginNavigateExport_Integration(t *testing.T) {
	ts := fakeSite(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	dir := t.TempDir()
	s := newSession(t, ctx, dir)

	require.NoError(t, s.Navigate(ctx, ts.URL+"/"))
	require.NoError(t, s.Input(ctx, "#username", "ada"))
	require.NoError(t, s.Input(ctx, "#password", "s3cret"))
	require.NoError(t, s.Click(ctx, "#login"))

	require.Eventually(t, func() bool {
		return s.Click(ctx, "#menu") == nil
	}, 10*time.Second, 100*time.Millisecond)
	require.NoError(t, s.Click(ctx, "#monthly"))

	require.NoError(t, s.WaitLinkClickable(ctx, "Monthly report", 5*time.Second))
	require.NoError(t, s.ClickLink(ctx, "Monthly report"))

	require.Eventually(t, func() bool {
		return s.ClickLink(ctx, "Export CSV") == nil
	}, 10*time.Second, 100*time.Millisecond)

	path, err := download.NewWatcher(dir, nil).Wait(ctx, "export.csv", time.Now().Add(-time.Minute), 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, exportBody, string(data))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestSession_MissingElementFailsFast_Integration(t *testing.T) {
	ts := fakeSite(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := newSession(t, ctx, t.TempDir())
	require.NoError(t, s.Navigate(ctx, ts.URL+"/"))

	start := time.Now()
	assert.Error(t, s.Click(ctx, "#no-such-button"))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSession_WaitLinkClickableTimesOut_Integration(t *testing.T) {
	ts := fakeSite(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := newSession(t, ctx, t.TempDir())
	require.NoError(t, s.Navigate(ctx, ts.URL+"/home"))

	err := s.WaitLinkClickable(ctx, "Monthly report", 500*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csvharvest/internal/config"
	"csvharvest/internal/pipeline"
	"csvharvest/internal/schedule"
)

const validConfig = `site:
  url: https://reports.example.test/login
  username: ada
  password: s3cret
selectors:
  username: "#username"
  password: "#password"
  login_button: "button[type=submit]"
  dropdown: "#menu-reports"
  submenu: "#menu-reports-monthly"
  navigation_link_text: Monthly report
  export_link_text: Export CSV
files:
  download_dir: %DIR%
  source_filename: export.csv
transform:
  filters:
    - column: Status
      op: equals
      value: "---"
    - column: Code
      op: not_prefix
      value: UNK
  sort_column: Code
scheduler:
  run_times: ["08:00", "12:00", "16:00"]
  timezone: UTC
logging:
  level: error
`

func writeConfig(t *testing.T, body string) (path, dir string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "harvest.yaml")
	body = strings.ReplaceAll(body, "%DIR%", dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	// Subcommands keep the first context they were given; reset it per call.
	for _, c := range rootCmd.Commands() {
		c.SetContext(ctx)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// stubRun replaces the browser with opener and the wall clock with one that
// advances a minute on every read, starting at 07:58 UTC.
func stubRun(t *testing.T, opener pipeline.Opener) {
	t.Helper()
	var reads atomic.Int64
	start := time.Date(2024, 3, 1, 7, 58, 0, 0, time.UTC)
	clock := func() time.Time {
		return start.Add(time.Duration(reads.Add(1)-1) * time.Minute)
	}

	origOpener, origOpts := newOpener, scheduleOptions
	newOpener = func(*config.Config, *zap.Logger) pipeline.Opener { return opener }
	scheduleOptions = []schedule.Option{schedule.WithClock(clock), schedule.WithPollInterval(time.Millisecond)}
	t.Cleanup(func() { newOpener, scheduleOptions = origOpener, origOpts })
}

func failingOpener(calls *atomic.Int32) pipeline.Opener {
	return pipeline.OpenerFunc(func(context.Context, string) (pipeline.Session, error) {
		calls.Add(1)
		return nil, errors.New("launch chrome: no such file")
	})
}

func runWithTimeout(t *testing.T, ctx context.Context, args ...string) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		_, err := executeContext(t, ctx, args...)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		t.Fatal("harvest run did not return")
		return nil
	}
}

func TestValidate_OK(t *testing.T) {
	path, _ := writeConfig(t, validConfig)
	out, err := execute(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, `filter Status equals "---"`)
	assert.Contains(t, out, "sort by Code")
	assert.Contains(t, out, `filter Code not_prefix "UNK"`)
	assert.Contains(t, out, "output "+filepath.Join(filepath.Dir(path), "processed_data.csv"))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	path, _ := writeConfig(t, "site:\n  url: https://x.test\nlogging:\n  level: error\n")
	_, err := execute(t, "validate", "--config", path)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	for _, field := range []string{"site.username", "selectors.dropdown", "files.download_dir", "transform.sort_column"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestNext_ListsRunTimes(t *testing.T) {
	path, _ := writeConfig(t, validConfig)
	out, err := execute(t, "next", "--config", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, hhmm := range []string{"08:00", "12:00", "16:00"} {
		assert.Contains(t, out, hhmm+" UTC")
	}
}

func TestTransform_WritesOutputAndRemovesInput(t *testing.T) {
	path, dir := writeConfig(t, validConfig)
	input := filepath.Join(dir, "manual.csv")
	require.NoError(t, os.WriteFile(input, []byte("Status,Code\nOK,AAA\n---,UNK9\n---,ABD\n---,ABC\n"), 0o644))

	out, err := execute(t, "transform", "--config", path, "--input", input)
	require.NoError(t, err)

	outPath := filepath.Join(dir, "processed_data.csv")
	assert.Equal(t, outPath, strings.TrimSpace(out))
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "Status,Code\n---,ABC\n---,ABD\n", string(got))

	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err))
}

func TestTransform_MissingInputIsDataFailure(t *testing.T) {
	path, dir := writeConfig(t, validConfig)
	_, err := execute(t, "transform", "--config", path, "--input", filepath.Join(dir, "absent.csv"))
	require.Error(t, err)
	assert.Equal(t, pipeline.DataFailure, pipeline.KindOf(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("plain")))
	assert.Equal(t, 2, exitCode(&exitError{code: 2, err: errors.New("stopped")}))
}

func TestPrintReport(t *testing.T) {
	rep := &pipeline.Report{
		RunID:  "run-1",
		Output: "/d/processed_data.csv",
		Stages: []pipeline.StageResult{
			{Stage: pipeline.StageLogin, Status: pipeline.StatusFailed, Err: errors.New("login button missing"), Duration: 1500 * time.Millisecond},
			{Stage: pipeline.StageTransform, Status: pipeline.StatusOK},
		},
	}
	var buf bytes.Buffer
	printReport(&buf, rep)

	out := buf.String()
	assert.Contains(t, out, "run run-1: partial")
	assert.Contains(t, out, "login button missing")
	assert.Contains(t, out, "output: /d/processed_data.csv")
}

func TestRun_StopPolicyExitsWithCode2(t *testing.T) {
	path, _ := writeConfig(t, strings.Replace(validConfig, "timezone: UTC\n", "timezone: UTC\n  on_error: stop\n", 1))
	var opens atomic.Int32
	stubRun(t, failingOpener(&opens))

	err := runWithTimeout(t, context.Background(), "run", "--config", path)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.ErrorIs(t, err, schedule.ErrStopped)
	assert.Equal(t, pipeline.SetupFailure, pipeline.KindOf(err))
	assert.Equal(t, int32(1), opens.Load())
}

func TestRun_CancelledContextExitsCleanly(t *testing.T) {
	path, _ := writeConfig(t, validConfig)
	var opens atomic.Int32
	stubRun(t, failingOpener(&opens))
	fixed := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	scheduleOptions = []schedule.Option{
		schedule.WithClock(func() time.Time { return fixed }),
		schedule.WithPollInterval(time.Millisecond),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, runWithTimeout(t, ctx, "run", "--config", path))
	assert.Zero(t, opens.Load())
}

func TestRun_ContinuePolicyKeepsRunningUntilCancelled(t *testing.T) {
	path, _ := writeConfig(t, validConfig)
	opened := make(chan struct{}, 1)
	stubRun(t, pipeline.OpenerFunc(func(context.Context, string) (pipeline.Session, error) {
		select {
		case opened <- struct{}{}:
		default:
		}
		return nil, errors.New("launch chrome: no such file")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executeContext(t, ctx, "run", "--config", path)
		done <- err
	}()

	select {
	case <-opened:
	case <-time.After(30 * time.Second):
		t.Fatal("scheduled run never started")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "a failed run under on_error=continue is not fatal")
	case <-time.After(30 * time.Second):
		t.Fatal("harvest run did not return after cancellation")
	}
}

func TestInit_WritesDefaultsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Scheduler.RunTimes, loaded.Scheduler.RunTimes)
	assert.Equal(t, "processed_data.csv", loaded.Files.OutputFilename)

	_, err = execute(t, "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

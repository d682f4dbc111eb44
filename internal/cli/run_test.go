package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/obsq/internal/config"
	"github.com/mattjoyce/obsq/internal/events"
	"github.com/mattjoyce/obsq/internal/journal"
	"github.com/mattjoyce/obsq/internal/lock"
)

func testConfig(mode string) *config.Config {
	cfg := config.Defaults()
	cfg.Queue.Mode = mode
	cfg.Demo.EchoDelay = 0
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config) *pipeline {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := openPipeline(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestRunLinesCooperativeEcho(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	p := newTestPipeline(t, cfg)

	var out bytes.Buffer
	err := runLines(strings.NewReader("hello\nworld\nq\nignored\n"), &out, p, cfg.Demo)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Type anything and press Enter:   >> You typed: hello\n")
	assert.Contains(t, got, "  >> You typed: world\n")
	assert.NotContains(t, got, "ignored")
	assert.True(t, strings.HasSuffix(got, "\nDone...\n"))
	assert.Equal(t, uint64(2), p.queue.Stats().Pushed)
	assert.Equal(t, 0, p.queue.Size())
}

func TestRunLinesMagicToggle(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	p := newTestPipeline(t, cfg)

	var out bytes.Buffer
	in := "magic\na\nsecret\nb\nnormal\nc\n"
	require.NoError(t, runLines(strings.NewReader(in), &out, p, cfg.Demo))

	// "magic" registers it after its own snapshot was taken, so it first
	// fires on "a". "secret" does not add a second copy. "normal" still
	// sees it because its snapshot predates the removal.
	assert.Equal(t, 4, strings.Count(out.String(), "  ## magic! -- \n"))
	assert.Equal(t, 1, p.queue.Consumers(), "only the echo consumer is left")
}

func TestRunLinesEndsAtEOF(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	p := newTestPipeline(t, cfg)

	var out bytes.Buffer
	require.NoError(t, runLines(strings.NewReader("only"), &out, p, cfg.Demo))
	assert.Contains(t, out.String(), "  >> You typed: only\n")
	assert.True(t, strings.HasSuffix(out.String(), "\nDone...\n"))
}

func TestRunLinesThreaded(t *testing.T) {
	t.Parallel()

	cfg := testConfig("threaded")
	p := newTestPipeline(t, cfg)

	var out bytes.Buffer
	require.NoError(t, runLines(strings.NewReader("a\nb\nexit\n"), &out, p, cfg.Demo))

	require.Eventually(t, func() bool { return p.queue.Stats().Dispatched == 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Close())

	got := out.String()
	assert.Contains(t, got, "  >> You typed: a\n")
	assert.Contains(t, got, "  >> You typed: b\n")
	assert.Less(t, strings.Index(got, "You typed: a"), strings.Index(got, "You typed: b"))
}

func TestPipelineJournalRecordsLines(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	p := newTestPipeline(t, cfg)

	var out bytes.Buffer
	require.NoError(t, runLines(strings.NewReader("one\ntwo\nquit\n"), &out, p, cfg.Demo))
	require.Equal(t, uint64(2), p.queue.Stats().Pushed)

	entries, err := journal.New(p.db).Recent(context.Background(), cfg.Queue.Name, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Payload)
	assert.Equal(t, "one", entries[1].Payload)
	assert.Equal(t, journal.Digest("one"), entries[1].Digest)
}

func TestPipelinePublishesActivity(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, testConfig("cooperative"))
	p.queue.AddFunc(func(*string) error { return errors.New("broken") })

	p.push("x", "test")
	p.queue.Drive()

	evs := p.hub.SnapshotSince(0)
	require.Len(t, evs, 2)
	assert.Equal(t, events.TypeItemPushed, evs[0].Type)
	assert.Equal(t, events.TypeConsumerFailed, evs[1].Type)
	assert.Contains(t, string(evs[1].Data), "broken")
}

func TestOpenPipelineRejectsBadMode(t *testing.T) {
	t.Parallel()

	_, err := openPipeline(context.Background(), testConfig("polling"), slog.Default())
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
service:
  log_level: error
queue:
  mode: cooperative
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader("hi\nq\n"))
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgFile, "run"})
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "  >> You typed: hi\n")
	assert.Contains(t, out.String(), "Done...")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute())
	assert.Equal(t, "obsq dev (commit: none, built: unknown)\n", out.String())
}

func TestPipelineJournalIsExclusive(t *testing.T) {
	t.Parallel()

	cfg := testConfig("cooperative")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = filepath.Join(t.TempDir(), "journal.db")
	first := newTestPipeline(t, cfg)

	_, err := openPipeline(context.Background(), cfg, slog.Default())
	require.ErrorIs(t, err, lock.ErrHeld)

	require.NoError(t, first.Close())
	second := newTestPipeline(t, cfg)
	assert.NotNil(t, second.db)
}

func TestJournalCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("service:\n  log_level: error\njournal:\n  path: "+dbPath+"\n"), 0o644))

	cfg := testConfig("cooperative")
	cfg.Journal.Enabled = true
	cfg.Journal.Path = dbPath
	p := newTestPipeline(t, cfg)
	p.push("first", "test")
	p.push("second", "test")
	p.queue.Drive()
	require.NoError(t, p.Close())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", cfgFile, "journal", "--limit", "1"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		configPath = ""
		journalLimit = 20
	})

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), `Queue "lines": 2 entries, showing 1`)
	assert.Contains(t, out.String(), "second")
	assert.NotContains(t, out.String(), "first")
	assert.Contains(t, out.String(), journal.Digest("second")[:12])
}

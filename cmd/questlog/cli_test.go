package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/config"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
	"github.com/Magget135/Minimal-Quest-Log/internal/store"
)

type cliEnv struct {
	dir     string
	cfgPath string
	clock   *calendar.FakeClock
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	cfgPath := filepath.Join(dir, config.DefaultPath)
	body := fmt.Sprintf(`
server:
  addr: "127.0.0.1:0"
storage:
  driver: sqlite
  data_dir: %q
  dsn: %q
log:
  level: error
materializer:
  run_on_startup: false
`, dataDir, filepath.Join(dataDir, "questlog.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	return &cliEnv{
		dir:     dir,
		cfgPath: cfgPath,
		clock:   calendar.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runContext(context.Background(), args...)
}

func (e *cliEnv) runContext(ctx context.Context, args ...string) (string, error) {
	cmd := newRootCmd(&cli{clock: e.clock})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (e *cliEnv) storage(t *testing.T) config.StorageConfig {
	t.Helper()
	cfg, err := config.Load(e.cfgPath)
	require.NoError(t, err)
	return cfg.Storage
}

func TestCLI_Holidays(t *testing.T) {
	e := newCLIEnv(t)

	out, err := e.run(t, "holidays", "list", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, `"2025-11-27"`)
	assert.Contains(t, out, "Thanksgiving Day")

	out, err = e.run(t, "holidays", "seed", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": 11`)

	out, err = e.run(t, "holidays", "seed", "--year", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": 0`)
	assert.Contains(t, out, `"skipped": 11`)
}

func TestCLI_MaterializeAndExport(t *testing.T) {
	e := newCLIEnv(t)

	st, err := store.Open(e.storage(t), nil)
	require.NoError(t, err)
	_, err = st.Rules.Create(context.Background(), recurrence.Rule{
		Name:      "Meditate",
		Frequency: recurrence.Daily{Interval: 1},
		StartDate: calendar.MustParse("2025-03-01"),
		End:       recurrence.AfterCount{N: 30},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := e.run(t, "materialize", "--date", "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": 1`)

	out, err = e.run(t, "materialize", "--date", "2025-03-10")
	require.NoError(t, err)
	assert.Contains(t, out, `"created": 0`)
	assert.Contains(t, out, `"skipped": 1`)

	_, err = e.run(t, "materialize", "--date", "10/03/2025")
	assert.Error(t, err)

	icsPath := filepath.Join(e.dir, "quests.ics")
	_, err = e.run(t, "export-ics", "--out", icsPath)
	require.NoError(t, err)
	b, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "BEGIN:VCALENDAR")
	assert.Contains(t, string(b), "SUMMARY:Meditate")
	assert.Contains(t, string(b), "COUNT=30")
}

func TestCLI_BackupRestoreDrill(t *testing.T) {
	e := newCLIEnv(t)

	_, err := e.run(t, "holidays", "seed", "--year", "2025")
	require.NoError(t, err)

	archive := filepath.Join(e.dir, "backups", "b.tar.gz")
	out, err := e.run(t, "backup", "--out", archive)
	require.NoError(t, err)
	assert.Contains(t, out, `"files"`)
	assert.FileExists(t, archive)

	target := filepath.Join(e.dir, "restored")
	_, err = e.run(t, "restore", "--archive", archive, "--target-dir", target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "questlog.db"))

	_, err = e.run(t, "restore", "--archive", archive, "--target-dir", target)
	assert.Error(t, err, "restoring over existing data needs --force")

	_, err = e.run(t, "restore", "--archive", archive, "--target-dir", target, "--force")
	require.NoError(t, err)

	out, err = e.run(t, "drill", "--work-dir", filepath.Join(e.dir, "drill"))
	require.NoError(t, err)
	assert.Contains(t, out, `"digest"`)
}

func TestCLI_ServeStopsOnCancel(t *testing.T) {
	e := newCLIEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.runContext(ctx, "serve")
		done <- err
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}

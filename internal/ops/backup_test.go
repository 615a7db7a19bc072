package ops

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	got := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return got
}

var sampleFiles = map[string]string{
	"questlog.db":          "SQLite format 3\x00...",
	"exports/quests.ics":   "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
	"notes/house-rules.md": "# Rules\n1. Complete daily quests\n",
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeTree(t, src, sampleFiles)

	archive := filepath.Join(t.TempDir(), "backups", ArchiveName(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)))
	m, err := Backup(src, archive)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Files)
	assert.Equal(t, "questlog-20250310T080000Z.tar.gz", filepath.Base(m.Archive))

	out := filepath.Join(t.TempDir(), "restore")
	require.NoError(t, Restore(archive, out, false))
	assert.Equal(t, sampleFiles, readTree(t, out))

	srcDigest, err := Digest(src)
	require.NoError(t, err)
	outDigest, err := Digest(out)
	require.NoError(t, err)
	assert.Equal(t, srcDigest, outDigest)
}

func TestBackup_SkipsArchiveInsideSource(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"questlog.db": "db"})

	archive := filepath.Join(src, "backups", "b.tar.gz")
	m, err := Backup(src, archive)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Files)
}

func TestRestore_RefusesNonEmptyTargetUnlessForced(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeTree(t, src, map[string]string{"questlog.db": "new"})
	archive := filepath.Join(t.TempDir(), "b.tar.gz")
	_, err := Backup(src, archive)
	require.NoError(t, err)

	target := t.TempDir()
	writeTree(t, target, map[string]string{"questlog.db": "old"})

	err = Restore(archive, target, false)
	require.ErrorIs(t, err, ErrTargetNotEmpty)

	require.NoError(t, Restore(archive, target, true))
	assert.Equal(t, map[string]string{"questlog.db": "new"}, readTree(t, target))
}

func TestRestore_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(archive)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("bad")),
	}))
	_, err = tw.Write([]byte("bad"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	assert.Error(t, Restore(archive, filepath.Join(t.TempDir(), "out"), false))
}

func TestDrill(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data")
	writeTree(t, src, sampleFiles)

	rep, err := Drill(src, t.TempDir(), time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Files)
	assert.Len(t, rep.Digest, 64)
	assert.DirExists(t, rep.RestoreDir)
}

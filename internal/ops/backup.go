// Package ops archives and restores the data directory.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var ErrTargetNotEmpty = errors.New("restore target is not empty")

// Manifest summarizes an archive.
type Manifest struct {
	Archive string `json:"archive"`
	Files   int    `json:"files"`
	Bytes   int64  `json:"bytes"`
}

// ArchiveName is the default backup file name for t.
func ArchiveName(t time.Time) string {
	return "questlog-" + t.UTC().Format("20060102T150405Z") + ".tar.gz"
}

// Backup writes srcDir to a gzipped tar at archivePath. Symlinks are skipped.
func Backup(srcDir, archivePath string) (Manifest, error) {
	if strings.TrimSpace(srcDir) == "" || strings.TrimSpace(archivePath) == "" {
		return Manifest{}, errors.New("source dir and archive path are required")
	}
	srcDir = filepath.Clean(strings.TrimSpace(srcDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	m := Manifest{Archive: archivePath}
	info, err := os.Stat(srcDir)
	if err != nil {
		return m, err
	}
	if !info.IsDir() {
		return m, fmt.Errorf("source is not a directory: %s", srcDir)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return m, err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return m, err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		// The archive may live inside the directory being archived.
		if sameFile(path, archivePath) {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		n, err := copyFile(tw, path)
		if err != nil {
			return err
		}
		m.Files++
		m.Bytes += n
		return nil
	})

	err = errors.Join(walkErr, tw.Close(), gz.Close(), f.Close())
	if err != nil {
		_ = os.Remove(archivePath)
		return m, err
	}
	return m, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func copyFile(dst io.Writer, path string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(dst, src)
}

// Restore unpacks archivePath into targetDir. A non-empty target is refused
// unless force is set, in which case archive files overwrite existing ones.
func Restore(archivePath, targetDir string, force bool) error {
	if strings.TrimSpace(archivePath) == "" || strings.TrimSpace(targetDir) == "" {
		return errors.New("archive path and target dir are required")
	}
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if !force {
		entries, err := os.ReadDir(targetDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if len(entries) > 0 {
			return fmt.Errorf("%w: %s", ErrTargetNotEmpty, targetDir)
		}
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		rel, err := sanitizeArchiveRelPath(hdr.Name)
		if err != nil {
			return err
		}
		outPath := filepath.Join(targetDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(outPath, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

func writeEntry(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func sanitizeArchiveRelPath(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" {
		return "", errors.New("invalid archive entry path")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid absolute archive entry path: %s", name)
	}
	if name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	return name, nil
}

// Digest hashes every regular file under root, names included, in path order.
func Digest(root string) (string, error) {
	root = filepath.Clean(root)
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, rel := range entries {
		_, _ = io.WriteString(h, rel+"\n")
		if _, err := copyFile(h, filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type DrillReport struct {
	Archive    string `json:"archive"`
	RestoreDir string `json:"restore_dir"`
	Digest     string `json:"digest"`
	Files      int    `json:"files"`
}

// Drill backs dataDir up into workDir, restores it next to the archive and
// checks that the restored tree hashes the same as the source.
func Drill(dataDir, workDir string, now time.Time) (DrillReport, error) {
	var rep DrillReport
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return rep, err
	}
	name := ArchiveName(now)
	rep.Archive = filepath.Join(workDir, "drill-"+name)
	rep.RestoreDir = filepath.Join(workDir, "drill-"+strings.TrimSuffix(name, ".tar.gz"))

	m, err := Backup(dataDir, rep.Archive)
	if err != nil {
		return rep, fmt.Errorf("backup: %w", err)
	}
	rep.Files = m.Files
	if err := Restore(rep.Archive, rep.RestoreDir, false); err != nil {
		return rep, fmt.Errorf("restore: %w", err)
	}

	src, err := Digest(dataDir)
	if err != nil {
		return rep, err
	}
	restored, err := Digest(rep.RestoreDir)
	if err != nil {
		return rep, err
	}
	if src != restored {
		return rep, fmt.Errorf("digest mismatch after restore: src=%s restored=%s", src, restored)
	}
	rep.Digest = src
	return rep, nil
}

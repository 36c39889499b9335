// Package backup keeps rotating file copies of the diary database.
package backup

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DefaultMax number of backups to keep.
const DefaultMax = 50

const (
	prefix = "backup-"
	suffix = ".db"
)

// Name for a backup taken at t, for example backup-2024-01-02-15h04.db.
func Name(t time.Time) string {
	return prefix + t.Format("2006-01-02-15h04") + suffix
}

// Create copies the database at path into dir.
// A backup from the same minute is overwritten.
func Create(path string, dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.Wrapf(err, "failed to create backups directory")
	}
	out := filepath.Join(dir, Name(now))
	if err := copyFile(path, out, os.O_TRUNC); err != nil {
		return "", errors.Wrapf(err, "failed to create backup")
	}
	logger.Debugf("Backup created %s", out)
	return out, nil
}

// Copy src to a new file dst (mode 0600).
// Fails if dst exists. A partial dst is removed on error.
func Copy(src string, dst string) error {
	if err := copyFile(src, dst, os.O_EXCL); err != nil {
		if !os.IsExist(err) {
			_ = os.Remove(dst)
		}
		return err
	}
	return nil
}

func copyFile(src string, dst string, flag int) error {
	in, err := os.Open(src) // #nosec
	if err != nil {
		return err
	}
	defer in.Close()
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|flag, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, in); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// List backups in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read backups directory")
	}
	paths := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	// Names sort chronologically.
	sort.Strings(paths)
	return paths, nil
}

// Rotate removes the oldest backups so at most max remain.
func Rotate(dir string, max int) error {
	if max <= 0 {
		max = DefaultMax
	}
	paths, err := List(dir)
	if err != nil {
		return err
	}
	if len(paths) <= max {
		return nil
	}
	remove := paths[:len(paths)-max]
	for _, p := range remove {
		if err := os.Remove(p); err != nil {
			return errors.Wrapf(err, "failed to delete old backup")
		}
	}
	logger.Debugf("Rotated backups, deleted %d", len(remove))
	return nil
}

// CreateAndRotate creates a backup then rotates.
func CreateAndRotate(path string, dir string, now time.Time, max int) (string, error) {
	out, err := Create(path, dir, now)
	if err != nil {
		return "", err
	}
	if err := Rotate(dir, max); err != nil {
		return "", err
	}
	return out, nil
}

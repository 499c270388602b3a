// Package snapshot implements rollback for the live nginx
// configuration directory. A snapshot is a full recursive copy taken
// immediately before any activation attempt; restore replaces the
// target's entire contents with the snapshot's, discarding anything
// added since. Snapshots are never pruned automatically; cleaning up
// old backup directories is a documented operator responsibility.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

const (
	prefix     = "backup-"
	timeLayout = "20060102-150405"
)

// Snapshot is one point-in-time copy of the configuration directory.
type Snapshot struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager creates and restores snapshots under a fixed root directory
// (e.g. /etc/nginx, yielding /etc/nginx/backup-<timestamp>/).
type Manager struct {
	root string
}

// NewManager creates a Manager storing snapshots under root.
func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Root returns the directory snapshots are stored under.
func (m *Manager) Root() string {
	return m.root
}

// Take copies the entire tree under srcDir into a fresh timestamped
// snapshot directory. The copy is full or it fails; a partially
// written snapshot directory is removed before the error is returned.
func (m *Manager) Take(srcDir string) (*Snapshot, error) {
	if _, err := os.Stat(srcDir); err != nil {
		return nil, fmt.Errorf("snapshot source: %w", err)
	}
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}

	now := time.Now()
	id := prefix + now.Format(timeLayout)
	path := filepath.Join(m.root, id)

	// Two runs within one second would collide; disambiguate.
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(m.root, fmt.Sprintf("%s-%d", id, i))
	}
	id = filepath.Base(path)

	if err := copyTree(srcDir, path); err != nil {
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("copy configuration: %w", err)
	}

	logger.Info("snapshot %s taken from %s", id, srcDir)
	return &Snapshot{ID: id, Path: path, CreatedAt: now}, nil
}

// Restore replaces targetDir's entire contents with the snapshot's.
// Additions made since the snapshot are discarded, not merged.
func (m *Manager) Restore(snap *Snapshot, targetDir string) error {
	if _, err := os.Stat(snap.Path); err != nil {
		return errors.Wrap(errors.CodeNotFound, fmt.Sprintf("snapshot %s", snap.ID), err)
	}

	if err := clearDir(targetDir); err != nil {
		return fmt.Errorf("clear target directory: %w", err)
	}
	if err := copyTree(snap.Path, targetDir); err != nil {
		return fmt.Errorf("copy snapshot into target: %w", err)
	}

	logger.Info("snapshot %s restored into %s", snap.ID, targetDir)
	return nil
}

// Get returns the snapshot with the given ID.
func (m *Manager) Get(id string) (*Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errors.ErrSnapshotNotFound
}

// Latest returns the most recent snapshot.
func (m *Manager) Latest() (*Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, errors.ErrSnapshotNotFound
	}
	return snaps[0], nil
}

// List returns all snapshots, newest first.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Snapshot{}, nil
		}
		return nil, fmt.Errorf("read snapshot root: %w", err)
	}

	snaps := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		stamp := strings.TrimPrefix(entry.Name(), prefix)
		if len(stamp) > len(timeLayout) {
			stamp = stamp[:len(timeLayout)] // drop collision suffix
		}
		created, err := time.ParseInLocation(timeLayout, stamp, time.Local)
		if err != nil {
			// Fall back to directory mtime for names we did not write.
			if info, statErr := entry.Info(); statErr == nil {
				created = info.ModTime()
			}
		}
		snaps = append(snaps, &Snapshot{
			ID:        entry.Name(),
			Path:      filepath.Join(m.root, entry.Name()),
			CreatedAt: created,
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID > snaps[j].ID
		}
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// clearDir removes every entry inside dir, creating dir if absent. The
// directory itself stays, so open handles on it remain valid.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(dir, 0755)
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// copyTree recursively copies src into dst, preserving file modes.
func copyTree(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode().Perm()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		switch {
		case entry.IsDir():
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		default:
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

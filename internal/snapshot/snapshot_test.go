package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
)

// writeTree creates files under dir from a map of relative path to content.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// readTree returns a map of relative path to content for every file under dir.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return files
}

func TestTakeAndRestore(t *testing.T) {
	base := t.TempDir()
	confDir := filepath.Join(base, "conf.d")
	mgr := NewManager(filepath.Join(base, "nginx"))

	original := map[string]string{
		"a.example.com.conf":    "server { listen 80; server_name a.example.com; }",
		"b.example.com.conf":    "server { listen 80; server_name b.example.com; }",
		"includes/upstream.inc": "upstream app { server 127.0.0.1:3000; }",
	}
	writeTree(t, confDir, original)

	snap, err := mgr.Take(confDir)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if !strings.HasPrefix(snap.ID, "backup-") {
		t.Errorf("unexpected snapshot ID: %s", snap.ID)
	}

	t.Run("snapshot is a full copy", func(t *testing.T) {
		if got := readTree(t, snap.Path); !reflect.DeepEqual(got, original) {
			t.Errorf("snapshot tree differs from source:\n got %v\nwant %v", got, original)
		}
	})

	t.Run("restore discards later edits", func(t *testing.T) {
		// Mutate, add, and delete after the snapshot.
		writeTree(t, confDir, map[string]string{
			"a.example.com.conf": "BROKEN {",
			"c.example.com.conf": "server {}",
		})
		if err := os.Remove(filepath.Join(confDir, "b.example.com.conf")); err != nil {
			t.Fatalf("remove: %v", err)
		}

		if err := mgr.Restore(snap, confDir); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}

		if got := readTree(t, confDir); !reflect.DeepEqual(got, original) {
			t.Errorf("restored tree is not identical to pre-edit tree:\n got %v\nwant %v", got, original)
		}
	})

	t.Run("restore into missing directory", func(t *testing.T) {
		fresh := filepath.Join(base, "fresh")
		if err := mgr.Restore(snap, fresh); err != nil {
			t.Fatalf("Restore failed: %v", err)
		}
		if got := readTree(t, fresh); !reflect.DeepEqual(got, original) {
			t.Error("restore into a fresh directory should reproduce the tree")
		}
	})
}

func TestTakeMissingSource(t *testing.T) {
	mgr := NewManager(t.TempDir())
	if _, err := mgr.Take(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing source directory")
	}
}

func TestRestoreMissingSnapshot(t *testing.T) {
	mgr := NewManager(t.TempDir())
	snap := &Snapshot{ID: "backup-x", Path: filepath.Join(mgr.Root(), "backup-x")}
	err := mgr.Restore(snap, t.TempDir())
	if !errors.Is(err, errors.ErrSnapshotNotFound) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListAndLatest(t *testing.T) {
	base := t.TempDir()
	confDir := filepath.Join(base, "conf.d")
	writeTree(t, confDir, map[string]string{"a.conf": "a"})
	mgr := NewManager(filepath.Join(base, "nginx"))

	t.Run("empty root", func(t *testing.T) {
		snaps, err := mgr.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 0 {
			t.Errorf("expected no snapshots, got %d", len(snaps))
		}
		if _, err := mgr.Latest(); !errors.Is(err, errors.ErrSnapshotNotFound) {
			t.Errorf("Latest on empty root should be not-found, got %v", err)
		}
	})

	// Take several snapshots; same-second runs must still be distinct.
	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := mgr.Take(confDir)
		if err != nil {
			t.Fatalf("Take %d failed: %v", i, err)
		}
		ids = append(ids, snap.ID)
	}

	t.Run("ids are distinct", func(t *testing.T) {
		seen := map[string]bool{}
		for _, id := range ids {
			if seen[id] {
				t.Errorf("duplicate snapshot ID %s", id)
			}
			seen[id] = true
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		snaps, err := mgr.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(snaps) != 3 {
			t.Fatalf("expected 3 snapshots, got %d", len(snaps))
		}
		got := []string{snaps[0].ID, snaps[1].ID, snaps[2].ID}
		want := append([]string(nil), ids...)
		sort.Sort(sort.Reverse(sort.StringSlice(want)))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("unexpected order: got %v want %v", got, want)
		}
	})

	t.Run("Get", func(t *testing.T) {
		snap, err := mgr.Get(ids[1])
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if snap.ID != ids[1] {
			t.Errorf("unexpected snapshot: %s", snap.ID)
		}
		if _, err := mgr.Get("backup-unknown"); !errors.Is(err, errors.ErrSnapshotNotFound) {
			t.Errorf("expected not-found, got %v", err)
		}
	})
}

func TestNoAutomaticPruning(t *testing.T) {
	base := t.TempDir()
	confDir := filepath.Join(base, "conf.d")
	writeTree(t, confDir, map[string]string{"a.conf": "a"})
	mgr := NewManager(filepath.Join(base, "nginx"))

	for i := 0; i < 5; i++ {
		if _, err := mgr.Take(confDir); err != nil {
			t.Fatalf("Take failed: %v", err)
		}
	}

	snaps, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(snaps) != 5 {
		t.Errorf("all snapshots must be retained, got %d of 5", len(snaps))
	}
}

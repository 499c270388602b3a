//go:build unix

package flock

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestLockUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.lock")

	f, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if f == nil {
		t.Fatal("expected a lock file handle")
	}
	if err := Unlock(f); err != nil {
		t.Errorf("Unlock failed: %v", err)
	}
}

func TestLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.lock")

	held, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("first Lock failed: %v", err)
	}
	defer Unlock(held)

	// flock conflicts between open file descriptions, so a second Lock
	// in the same process contends. It must give up when its context
	// expires.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if f, err := Lock(ctx, path); err == nil {
		Unlock(f)
		t.Fatal("second Lock should not succeed while first is held")
	}
}

func TestLockReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.lock")

	f, err := Lock(context.Background(), path)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := Unlock(f); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f2, err := Lock(ctx, path)
	if err != nil {
		t.Fatalf("re-Lock after Unlock failed: %v", err)
	}
	Unlock(f2)
}

func TestLockBadPath(t *testing.T) {
	if _, err := Lock(context.Background(), filepath.Join(t.TempDir(), "missing", "deploy.lock")); err == nil {
		t.Error("expected error for unwritable lock path")
	}
}

package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSystemExecutor(t *testing.T) {
	exec := NewSystemExecutor()

	t.Run("Execute", func(t *testing.T) {
		output, err := exec.Execute("echo", "hello")
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if strings.TrimSpace(string(output)) != "hello" {
			t.Errorf("unexpected output: %q", output)
		}
	})

	t.Run("Execute nonexistent command", func(t *testing.T) {
		_, err := exec.Execute("definitely-not-a-command-xyz")
		if err == nil {
			t.Error("expected error for nonexistent command")
		}
	})

	t.Run("ExecuteContext canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := exec.ExecuteContext(ctx, "sleep", "5")
		if err == nil {
			t.Error("expected error for canceled context")
		}
	})

	t.Run("LookPath", func(t *testing.T) {
		if _, err := exec.LookPath("sh"); err != nil {
			t.Errorf("LookPath sh failed: %v", err)
		}
	})
}

func TestMockExecutor(t *testing.T) {
	t.Run("records calls", func(t *testing.T) {
		mock := &MockExecutor{}

		if _, err := mock.Execute("nginx", "-t"); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}

		if len(mock.Calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(mock.Calls))
		}
		if mock.Calls[0].Name != "nginx" || mock.Calls[0].Args[0] != "-t" {
			t.Errorf("unexpected call recorded: %+v", mock.Calls[0])
		}
	})

	t.Run("custom execute function", func(t *testing.T) {
		mock := &MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				return []byte("boom"), errors.New("exit 1")
			},
		}

		output, err := mock.Execute("nginx", "-t")
		if err == nil {
			t.Error("expected error from mock")
		}
		if string(output) != "boom" {
			t.Errorf("unexpected output: %q", output)
		}
	})

	t.Run("expired context short-circuits", func(t *testing.T) {
		called := false
		mock := &MockExecutor{
			ExecuteFunc: func(name string, args ...string) ([]byte, error) {
				called = true
				return nil, nil
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := mock.ExecuteContext(ctx, "nginx", "-s", "reload"); err == nil {
			t.Error("expected context error")
		}
		if called {
			t.Error("ExecuteFunc should not run when context is expired")
		}
		if len(mock.Calls) != 1 {
			t.Errorf("expected the call to be recorded, got %d", len(mock.Calls))
		}
	})
}

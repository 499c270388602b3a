// Package executor abstracts system command execution behind an
// interface so subprocess calls (nginx -t, systemctl, ufw) can be
// mocked in tests. External commands are run with a context so a hung
// subprocess maps to the same failure path as an explicit error.
package executor

import (
	"context"
	"os/exec"
	"time"
)

// DefaultTimeout bounds every external command invocation that does not
// carry its own deadline.
const DefaultTimeout = 60 * time.Second

// CommandExecutor is an interface for executing system commands
type CommandExecutor interface {
	// Execute runs a command with the default timeout and returns
	// combined stdout/stderr
	Execute(name string, args ...string) ([]byte, error)

	// ExecuteContext runs a command bounded by ctx
	ExecuteContext(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath searches for an executable in the directories named by PATH
	LookPath(file string) (string, error)
}

// SystemExecutor implements CommandExecutor using os/exec
type SystemExecutor struct{}

// NewSystemExecutor creates a new SystemExecutor
func NewSystemExecutor() *SystemExecutor {
	return &SystemExecutor{}
}

// Execute runs a command with the default timeout and returns combined output
func (e *SystemExecutor) Execute(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return e.ExecuteContext(ctx, name, args...)
}

// ExecuteContext runs a command bounded by ctx and returns combined output
func (e *SystemExecutor) ExecuteContext(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// LookPath searches for an executable
func (e *SystemExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// MockExecutor is a mock implementation for testing
type MockExecutor struct {
	ExecuteFunc  func(name string, args ...string) ([]byte, error)
	LookPathFunc func(file string) (string, error)
	Calls        []CommandCall
}

// CommandCall records a command execution for verification
type CommandCall struct {
	Name string
	Args []string
}

// Execute calls the mock function
func (m *MockExecutor) Execute(name string, args ...string) ([]byte, error) {
	m.Calls = append(m.Calls, CommandCall{Name: name, Args: args})
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(name, args...)
	}
	return []byte(""), nil
}

// ExecuteContext calls the mock function, honoring an already-expired context
func (m *MockExecutor) ExecuteContext(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		m.Calls = append(m.Calls, CommandCall{Name: name, Args: args})
		return nil, err
	}
	return m.Execute(name, args...)
}

// LookPath calls the mock function
func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/usr/bin/" + file, nil
}

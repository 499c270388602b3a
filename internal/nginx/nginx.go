// Package nginx wraps the local nginx installation: writing per-domain
// configuration files into conf.d, running the built-in syntax checker,
// and signalling the running process to reload. All subprocess calls go
// through the executor seam so tests never need a real nginx.
package nginx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tlsdeploy/tlsdeploy/internal/executor"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

// Default filesystem layout on Ubuntu. Overridable for tests.
const (
	DefaultConfDir       = "/etc/nginx/conf.d"
	DefaultSelfSignedDir = "/etc/nginx/ssl/self-signed"
)

// Runtime represents a local nginx installation.
type Runtime struct {
	confDir string
	exec    executor.CommandExecutor
}

// New creates a Runtime with the default conf.d path.
func New() *Runtime {
	return NewWithPaths(DefaultConfDir)
}

// NewWithPaths creates a Runtime managing configs in confDir.
func NewWithPaths(confDir string) *Runtime {
	return &Runtime{confDir: confDir, exec: executor.NewSystemExecutor()}
}

// NewWithExecutor creates a Runtime with a custom executor (for testing).
func NewWithExecutor(confDir string, exec executor.CommandExecutor) *Runtime {
	return &Runtime{confDir: confDir, exec: exec}
}

// ConfDir returns the live configuration directory.
func (r *Runtime) ConfDir() string {
	return r.confDir
}

// ConfigPath returns the config file path for a site name.
func (r *Runtime) ConfigPath(name string) string {
	return filepath.Join(r.confDir, name+".conf")
}

// IsInstalled checks whether the nginx binary is on PATH.
func (r *Runtime) IsInstalled() bool {
	_, err := r.exec.LookPath("nginx")
	return err == nil
}

// WriteConfig writes a rendered site configuration into conf.d,
// creating the directory if needed.
func (r *Runtime) WriteConfig(name, content string) error {
	if err := os.MkdirAll(r.confDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := r.ConfigPath(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	logger.Debug("wrote %s (%d bytes)", path, len(content))
	return nil
}

// RemoveConfig deletes a site configuration file.
func (r *Runtime) RemoveConfig(name string) error {
	if err := os.Remove(r.ConfigPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("site %s not found", name)
		}
		return fmt.Errorf("failed to remove config file: %w", err)
	}
	return nil
}

// ListSites returns the site names present in conf.d.
func (r *Runtime) ListSites() ([]string, error) {
	entries, err := os.ReadDir(r.confDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".conf") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".conf"))
	}
	return names, nil
}

// Test runs the built-in syntax checker against the full configuration
// set, not just one file, since a single broken file invalidates the
// whole set. It returns whether the check passed and the checker's
// verbatim output for diagnostics.
func (r *Runtime) Test(ctx context.Context) (bool, string) {
	output, err := r.exec.ExecuteContext(ctx, "nginx", "-t")
	if err != nil {
		return false, strings.TrimSpace(string(output) + "\n" + err.Error())
	}
	return true, strings.TrimSpace(string(output))
}

// Reload signals the running nginx to re-read its configuration
// without dropping in-flight connections. systemctl is preferred; the
// direct reload signal is the fallback for hosts without systemd.
// Never a restart.
func (r *Runtime) Reload(ctx context.Context) error {
	output, err := r.exec.ExecuteContext(ctx, "systemctl", "reload", "nginx")
	if err != nil {
		logger.Debug("systemctl reload failed (%v), trying nginx -s reload", err)
		output, err = r.exec.ExecuteContext(ctx, "nginx", "-s", "reload")
		if err != nil {
			return fmt.Errorf("failed to reload nginx: %s", strings.TrimSpace(string(output)))
		}
	}
	return nil
}

// Version returns the installed nginx version string (nginx prints it
// on stderr, which the executor captures in combined output).
func (r *Runtime) Version(ctx context.Context) (string, error) {
	output, err := r.exec.ExecuteContext(ctx, "nginx", "-v")
	if err != nil {
		return "", fmt.Errorf("nginx -v failed: %s", string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

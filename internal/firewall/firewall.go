// Package firewall prepares UFW for web traffic: SSH stays reachable,
// ports 80 and 443 are opened, and the firewall is enabled. All calls
// go through the executor so tests can mock ufw.
package firewall

import (
	"context"
	"fmt"
	"strings"

	"github.com/tlsdeploy/tlsdeploy/internal/executor"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

// Status describes the firewall as reported by ufw.
type Status struct {
	Installed bool     `json:"installed"`
	Active    bool     `json:"active"`
	Rules     []string `json:"rules,omitempty"`
	Raw       string   `json:"-"`
}

// webRules are applied in order. OpenSSH comes first so an enable on a
// remote host can never cut off the session driving it.
var webRules = []string{"OpenSSH", "80/tcp", "443/tcp"}

// cmdExecutor is the command executor (can be replaced for testing)
var cmdExecutor executor.CommandExecutor = executor.NewSystemExecutor()

// SetExecutor allows tests to inject a mock executor
func SetExecutor(exec executor.CommandExecutor) {
	cmdExecutor = exec
}

// ResetExecutor resets the executor to the default system executor
func ResetExecutor() {
	cmdExecutor = executor.NewSystemExecutor()
}

// IsInstalled checks if ufw is installed
func IsInstalled() bool {
	_, err := cmdExecutor.LookPath("ufw")
	return err == nil
}

// GetStatus reports whether ufw is installed and active, with the
// currently loaded rules.
func GetStatus(ctx context.Context) (*Status, error) {
	if !IsInstalled() {
		return &Status{}, nil
	}

	output, err := cmdExecutor.ExecuteContext(ctx, "ufw", "status")
	if err != nil {
		return nil, fmt.Errorf("ufw status failed: %s", strings.TrimSpace(string(output)))
	}

	st := &Status{Installed: true, Raw: string(output)}
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Status:") {
			st.Active = strings.Contains(line, "active")
			continue
		}
		if strings.Contains(line, "ALLOW") || strings.Contains(line, "DENY") {
			st.Rules = append(st.Rules, line)
		}
	}
	return st, nil
}

// EnsureWebPorts allows SSH plus HTTP/HTTPS and enables the firewall if
// it is not already active. ufw skips rules that already exist, so the
// call is idempotent.
func EnsureWebPorts(ctx context.Context) error {
	if !IsInstalled() {
		return fmt.Errorf("ufw is not installed. Install it with: apt install ufw")
	}

	for _, rule := range webRules {
		output, err := cmdExecutor.ExecuteContext(ctx, "ufw", "allow", rule)
		if err != nil {
			return fmt.Errorf("ufw allow %s failed: %s", rule, strings.TrimSpace(string(output)))
		}
		logger.Debug("ufw allow %s: %s", rule, strings.TrimSpace(string(output)))
	}

	st, err := GetStatus(ctx)
	if err != nil {
		return err
	}
	if st.Active {
		return nil
	}

	// --force skips the interactive "may disrupt ssh" prompt; the
	// OpenSSH rule above is already in place.
	output, err := cmdExecutor.ExecuteContext(ctx, "ufw", "--force", "enable")
	if err != nil {
		return fmt.Errorf("ufw enable failed: %s", strings.TrimSpace(string(output)))
	}
	logger.Info("ufw enabled")
	return nil
}

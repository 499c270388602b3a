package cli

import (
	"fmt"
	"strings"

	"github.com/tlsdeploy/tlsdeploy/internal/certs"
	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/deploy"
	"github.com/tlsdeploy/tlsdeploy/internal/input"
	"github.com/tlsdeploy/tlsdeploy/internal/nginx"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
	"github.com/tlsdeploy/tlsdeploy/internal/snapshot"
)

// loadConfig loads the tool configuration and applies its path
// overrides to the detected platform paths.
func loadConfig() (*config.Config, error) {
	cfg, err := deps.ConfigLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.NginxConfDir != "" {
		deps.Paths.ConfDir = cfg.NginxConfDir
	}
	if cfg.SelfSignedDir != "" {
		deps.Paths.SelfSignedDir = cfg.SelfSignedDir
	}
	if dv, ok := deps.DNSVerifier.(*realDNSVerifier); ok {
		dv.resolver = cfg.Resolver
	}
	return cfg, nil
}

// requireRoot checks for root privileges via the injected checker
func requireRoot() error {
	return deps.RootChecker.RequireRoot()
}

// newRuntime builds the nginx runtime over the configured conf dir
func newRuntime() *nginx.Runtime {
	return nginx.NewWithExecutor(deps.Paths.ConfDir, deps.Executor)
}

// newSnapshots builds the snapshot manager over the nginx root, so
// snapshots land next to the directory they copy.
func newSnapshots() *snapshot.Manager {
	return snapshot.NewManager(deps.Paths.NginxRoot)
}

// newDeployer wires the runtime and snapshot manager together
func newDeployer() *deploy.Deployer {
	return deploy.NewWithLockPath(newRuntime(), newSnapshots(), deps.Paths.LockPath)
}

func newSelfSignedProvider() *certs.SelfSignedProvider {
	return certs.NewSelfSignedProvider(deps.Paths.SelfSignedDir)
}

func newACMEProvider() *certs.ACMEProvider {
	return certs.NewACMEProvider(deps.Paths.ACMELiveDir, deps.Paths.ACMEAccountDir, acmeDirectoryURL)
}

// saveConfig saves the config through the injected loader
func saveConfig(cfg *config.Config) error {
	if err := deps.ConfigLoader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// confirm prompts for a yes/no answer on stdin
func confirm(prompt string, args ...interface{}) bool {
	output.Print(prompt+" [y/N]: ", args...)
	answer, _ := input.Line(deps.StdinReader)
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// validateDomain checks if domain is valid
func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if strings.Contains(domain, " ") {
		return fmt.Errorf("domain cannot contain spaces")
	}
	if strings.HasPrefix(domain, "-") || strings.HasSuffix(domain, "-") {
		return fmt.Errorf("domain cannot start or end with hyphen")
	}
	if !strings.Contains(domain, ".") {
		return fmt.Errorf("domain must contain a dot: %s", domain)
	}
	return nil
}

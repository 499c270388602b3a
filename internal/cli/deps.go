package cli

import (
	"context"

	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/executor"
	"github.com/tlsdeploy/tlsdeploy/internal/input"
	"github.com/tlsdeploy/tlsdeploy/internal/platform"
	"github.com/tlsdeploy/tlsdeploy/internal/preflight"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader ConfigLoader
	RootChecker  RootChecker
	StdinReader  input.Reader
	Executor     executor.CommandExecutor
	DNSVerifier  DNSVerifier
	Paths        *platform.Paths
}

// ConfigLoader handles configuration loading and saving
type ConfigLoader interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
}

// RootChecker checks root privileges
type RootChecker interface {
	RequireRoot() error
}

// DNSVerifier checks that a domain resolves to this server before a
// certificate is requested for it.
type DNSVerifier interface {
	VerifyDNS(ctx context.Context, domain, serverIP string, allowMismatch bool) error
}

// Package-level dependencies (can be overridden for testing)
var deps = defaultDeps()

func defaultDeps() *Dependencies {
	return &Dependencies{
		ConfigLoader: &realConfigLoader{},
		RootChecker:  &realRootChecker{},
		StdinReader:  input.NewStdinReader(),
		Executor:     executor.NewSystemExecutor(),
		DNSVerifier:  &realDNSVerifier{},
		Paths:        platform.DetectPaths(),
	}
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

// Real implementations that delegate to existing packages

type realConfigLoader struct{}

func (r *realConfigLoader) Load() (*config.Config, error) {
	return config.Load()
}

func (r *realConfigLoader) Save(cfg *config.Config) error {
	return cfg.Save()
}

type realRootChecker struct{}

func (r *realRootChecker) RequireRoot() error {
	return preflight.RequireRoot()
}

// realDNSVerifier builds a preflight checker per call so the resolver
// from the loaded config is honored.
type realDNSVerifier struct {
	resolver string
}

func (r *realDNSVerifier) VerifyDNS(ctx context.Context, domain, serverIP string, allowMismatch bool) error {
	return preflight.NewChecker(r.resolver).VerifyDNS(ctx, domain, serverIP, allowMismatch)
}

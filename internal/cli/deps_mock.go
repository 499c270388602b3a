package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/executor"
	"github.com/tlsdeploy/tlsdeploy/internal/input"
	"github.com/tlsdeploy/tlsdeploy/internal/platform"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg       *config.Config
	LoadErr   error
	SaveErr   error
	SaveCalls int
}

func (m *MockConfigLoader) Load() (*config.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	return m.Cfg, nil
}

func (m *MockConfigLoader) Save(cfg *config.Config) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Cfg = cfg
	return nil
}

// MockRootChecker is a test double for RootChecker
type MockRootChecker struct {
	IsRoot bool
	Calls  int
}

func (m *MockRootChecker) RequireRoot() error {
	m.Calls++
	if !m.IsRoot {
		return errors.ErrRootRequired
	}
	return nil
}

// MockDNSVerifier is a test double for DNSVerifier
type MockDNSVerifier struct {
	Err   error
	Calls int
}

func (m *MockDNSVerifier) VerifyDNS(_ context.Context, domain, serverIP string, allowMismatch bool) error {
	m.Calls++
	return m.Err
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults:
// root access, an empty config, a recording executor, and paths rooted
// in baseDir.
func NewMockDeps(baseDir string) *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader: &MockConfigLoader{Cfg: config.New()},
			RootChecker:  &MockRootChecker{IsRoot: true},
			StdinReader:  input.NewStringReader("y\n"),
			Executor:     &executor.MockExecutor{},
			DNSVerifier:  &MockDNSVerifier{},
			Paths:        testPaths(baseDir),
		},
	}
}

func testPaths(baseDir string) *platform.Paths {
	return &platform.Paths{
		NginxRoot:      baseDir + "/nginx",
		ConfDir:        baseDir + "/nginx/conf.d",
		NginxConf:      baseDir + "/nginx/nginx.conf",
		SelfSignedDir:  baseDir + "/ssl/self-signed",
		ACMELiveDir:    baseDir + "/letsencrypt/live",
		ACMEAccountDir: baseDir + "/letsencrypt/accounts",
		ChallengeRoot:  baseDir + "/www",
		LockPath:       baseDir + "/tlsdeploy.lock",
	}
}

// WithConfig sets the config for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithRootAccess sets whether root access is available
func (b *MockDependenciesBuilder) WithRootAccess(isRoot bool) *MockDependenciesBuilder {
	b.deps.RootChecker = &MockRootChecker{IsRoot: isRoot}
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(inputs ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(inputs...)
	return b
}

// WithExecutor sets the command executor
func (b *MockDependenciesBuilder) WithExecutor(exec executor.CommandExecutor) *MockDependenciesBuilder {
	b.deps.Executor = exec
	return b
}

// WithDNSError makes DNS verification fail with err
func (b *MockDependenciesBuilder) WithDNSError(err error) *MockDependenciesBuilder {
	b.deps.DNSVerifier = &MockDNSVerifier{Err: err}
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// setupTest installs mock dependencies for the duration of a test and
// returns them for assertions.
func setupTest(t interface {
	Helper()
	Cleanup(func())
	TempDir() string
}) (*Dependencies, string) {
	t.Helper()
	base := t.TempDir()

	old := deps
	mock := NewMockDeps(base).Build()
	deps = mock
	t.Cleanup(func() {
		deps = old
	})

	// Tests call the run functions directly, bypassing cobra's Execute,
	// which is what normally assigns the command context.
	setTestContext(rootCmd)
	return mock, base
}

func setTestContext(cmd *cobra.Command) {
	cmd.SetContext(context.Background())
	for _, sub := range cmd.Commands() {
		setTestContext(sub)
	}
}

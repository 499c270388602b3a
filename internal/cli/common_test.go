package cli

import (
	"io"
	"testing"

	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/input"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{"valid", "app.example.com", false},
		{"valid subdomain", "api.app.example.com", false},
		{"empty", "", true},
		{"spaces", "app example.com", true},
		{"leading hyphen", "-app.example.com", true},
		{"trailing hyphen", "app.example.com-", true},
		{"no dot", "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDomain(tt.domain)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDomain(%q) = %v, wantErr %v", tt.domain, err, tt.wantErr)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	defer output.SetWriter(io.Discard)()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"lowercase y", "y\n", true},
		{"yes", "yes\n", true},
		{"uppercase yes", "YES\n", true},
		{"n", "n\n", false},
		{"empty line", "\n", false},
		{"garbage", "maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _ := setupTest(t)
			mock.StdinReader = input.NewStringReader(tt.input)
			if got := confirm("proceed with %s?", "test"); got != tt.want {
				t.Errorf("confirm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	defer output.SetWriter(io.Discard)()

	mock, base := setupTest(t)
	cfg := config.New()
	cfg.NginxConfDir = base + "/custom-conf.d"
	cfg.SelfSignedDir = base + "/custom-ssl"
	mock.ConfigLoader = &MockConfigLoader{Cfg: cfg}

	if _, err := loadConfig(); err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if mock.Paths.ConfDir != cfg.NginxConfDir {
		t.Errorf("ConfDir override not applied: %s", mock.Paths.ConfDir)
	}
	if mock.Paths.SelfSignedDir != cfg.SelfSignedDir {
		t.Errorf("SelfSignedDir override not applied: %s", mock.Paths.SelfSignedDir)
	}
}

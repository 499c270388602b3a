package cli

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

func TestRunSiteList(t *testing.T) {
	defer output.SetWriter(io.Discard)()
	mock, _ := setupTest(t)

	t.Run("empty", func(t *testing.T) {
		if err := runSiteList(siteListCmd, nil); err != nil {
			t.Errorf("list failed: %v", err)
		}
	})

	t.Run("with sites", func(t *testing.T) {
		loader := mock.ConfigLoader.(*MockConfigLoader)
		loader.Cfg.Sites["app.example.com"] = &config.Site{
			Domain:       "app.example.com",
			Issuer:       config.IssuerSelfSigned,
			FrontendPort: 3000,
			BackendPort:  3001,
		}
		seedConf(t, mock.Paths.ConfDir, "app.example.com.conf", "server {}")
		if err := runSiteList(siteListCmd, nil); err != nil {
			t.Errorf("list failed: %v", err)
		}
	})
}

func TestRunSiteRemove(t *testing.T) {
	defer output.SetWriter(io.Discard)()
	forceRemove = true
	defer func() { forceRemove = false }()

	mock, _ := setupTest(t)
	loader := mock.ConfigLoader.(*MockConfigLoader)
	loader.Cfg.Sites["app.example.com"] = &config.Site{Domain: "app.example.com"}
	seedConf(t, mock.Paths.ConfDir, "app.example.com.conf", "server {}")

	if err := runSiteRemove(siteRemoveCmd, []string{"app.example.com"}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(mock.Paths.ConfDir, "app.example.com.conf")); err == nil {
		t.Error("nginx config should be removed")
	}
	if _, ok := loader.Cfg.Sites["app.example.com"]; ok {
		t.Error("site should be removed from config")
	}

	// A snapshot must exist so the removal can be undone.
	snaps, err := newSnapshots().List()
	if err != nil || len(snaps) != 1 {
		t.Errorf("expected 1 snapshot, got %d (%v)", len(snaps), err)
	}
}

func TestRunSiteRemoveUnknown(t *testing.T) {
	defer output.SetWriter(io.Discard)()
	setupTest(t)

	err := runSiteRemove(siteRemoveCmd, []string{"nope.example.com"})
	if !errors.Is(err, errors.ErrSiteNotFound) {
		t.Errorf("expected site-not-found, got %v", err)
	}
}

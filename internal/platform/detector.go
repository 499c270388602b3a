// Package platform provides platform-specific path detection for the
// nginx and certificate directories.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds every filesystem location the tool touches. Detection
// fills in platform defaults; callers may override individual fields.
type Paths struct {
	NginxRoot      string // parent of ConfDir, also holds rollback snapshots
	ConfDir        string // per-site server block files
	NginxConf      string // main nginx.conf
	SelfSignedDir  string // self-signed bundles
	ACMELiveDir    string // letsencrypt-layout live bundles
	ACMEAccountDir string // ACME account key
	ChallengeRoot  string // HTTP-01 webroot
	LockPath       string // advisory lock guarding activation
}

// DetectPaths returns default paths for the current platform. Linux
// gets the standard distro layout; macOS gets the Homebrew layout for
// local development. Missing directories are not an error here; the
// commands that need them report that themselves.
func DetectPaths() *Paths {
	if runtime.GOOS == "darwin" {
		for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
			if pathExists(filepath.Join(prefix, "etc/nginx")) {
				return darwinPaths(prefix)
			}
		}
		// Fall through to the Linux layout so path display stays sane
		// even without a Homebrew nginx.
	}

	return &Paths{
		NginxRoot:      "/etc/nginx",
		ConfDir:        "/etc/nginx/conf.d",
		NginxConf:      "/etc/nginx/nginx.conf",
		SelfSignedDir:  "/etc/nginx/ssl/self-signed",
		ACMELiveDir:    "/etc/letsencrypt/live",
		ACMEAccountDir: "/etc/letsencrypt/accounts/tlsdeploy",
		ChallengeRoot:  "/var/www/html",
		LockPath:       "/run/lock/tlsdeploy.lock",
	}
}

func darwinPaths(prefix string) *Paths {
	nginxRoot := filepath.Join(prefix, "etc/nginx")
	return &Paths{
		NginxRoot:      nginxRoot,
		ConfDir:        filepath.Join(nginxRoot, "servers"),
		NginxConf:      filepath.Join(nginxRoot, "nginx.conf"),
		SelfSignedDir:  filepath.Join(nginxRoot, "ssl/self-signed"),
		ACMELiveDir:    filepath.Join(prefix, "etc/letsencrypt/live"),
		ACMEAccountDir: filepath.Join(prefix, "etc/letsencrypt/accounts/tlsdeploy"),
		ChallengeRoot:  filepath.Join(prefix, "var/www/html"),
		LockPath:       filepath.Join(prefix, "var/run/tlsdeploy.lock"),
	}
}

// pathExists checks if a path exists
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

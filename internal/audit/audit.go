// Package audit runs read-only security checks over the host: firewall
// state, sshd hardening, nginx exposure, certificate expiry, and key
// file permissions. It never mutates anything; it only reports.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tlsdeploy/tlsdeploy/internal/certs"
	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/executor"
	"github.com/tlsdeploy/tlsdeploy/internal/firewall"
)

// CheckResult represents a single audit check result
type CheckResult struct {
	Status  string `json:"status"` // "success", "warning", "error"
	Message string `json:"message"`
}

// Report contains all audit results, grouped by area.
type Report struct {
	Firewall     []CheckResult `json:"firewall"`
	SSH          []CheckResult `json:"ssh"`
	Nginx        []CheckResult `json:"nginx"`
	Certificates []CheckResult `json:"certificates"`
	Updates      []CheckResult `json:"updates"`
}

// Sections returns the report groups in display order with their titles.
func (r *Report) Sections() []struct {
	Title  string
	Checks []CheckResult
} {
	return []struct {
		Title  string
		Checks []CheckResult
	}{
		{"Firewall", r.Firewall},
		{"SSH", r.SSH},
		{"Nginx", r.Nginx},
		{"Certificates", r.Certificates},
		{"Updates", r.Updates},
	}
}

// Worst returns the most severe status present in the report.
func (r *Report) Worst() string {
	worst := "success"
	for _, sec := range r.Sections() {
		for _, c := range sec.Checks {
			if c.Status == "error" {
				return "error"
			}
			if c.Status == "warning" {
				worst = "warning"
			}
		}
	}
	return worst
}

const (
	defaultSSHDConfig = "/etc/ssh/sshd_config"
	defaultNginxConf  = "/etc/nginx/nginx.conf"
	defaultLiveDir    = "/etc/letsencrypt/live"

	// Certificates inside this window are reported as expiring.
	expiryWarnDays = 30
)

// Auditor runs the checks. Paths and the executor are injectable so the
// whole audit can run against fixtures.
type Auditor struct {
	exec       executor.CommandExecutor
	sshdConfig string
	nginxConf  string
	liveDir    string
	now        func() time.Time
}

func New() *Auditor {
	return &Auditor{
		exec:       executor.NewSystemExecutor(),
		sshdConfig: defaultSSHDConfig,
		nginxConf:  defaultNginxConf,
		liveDir:    defaultLiveDir,
		now:        time.Now,
	}
}

// NewWithPaths creates an Auditor reading the given files instead of the
// system defaults.
func NewWithPaths(sshdConfig, nginxConf, liveDir string, exec executor.CommandExecutor) *Auditor {
	a := New()
	a.sshdConfig = sshdConfig
	a.nginxConf = nginxConf
	a.liveDir = liveDir
	a.exec = exec
	return a
}

// Run executes every check and returns the combined report. Individual
// check failures are reported inside the report, not as errors.
func (a *Auditor) Run(ctx context.Context, cfg *config.Config) *Report {
	return &Report{
		Firewall:     a.checkFirewall(ctx),
		SSH:          a.checkSSH(),
		Nginx:        a.checkNginx(ctx),
		Certificates: a.checkCertificates(cfg),
		Updates:      a.checkUpdates(ctx),
	}
}

func (a *Auditor) checkFirewall(ctx context.Context) []CheckResult {
	firewall.SetExecutor(a.exec)
	defer firewall.ResetExecutor()

	st, err := firewall.GetStatus(ctx)
	if err != nil {
		return []CheckResult{{Status: "warning", Message: fmt.Sprintf("could not read firewall status: %v", err)}}
	}
	switch {
	case !st.Installed:
		return []CheckResult{{Status: "warning", Message: "ufw not installed"}}
	case !st.Active:
		return []CheckResult{{Status: "error", Message: "ufw installed but inactive"}}
	default:
		return []CheckResult{{Status: "success", Message: fmt.Sprintf("ufw active (%d rules)", len(st.Rules))}}
	}
}

// sshdSetting extracts the effective value of a directive from an sshd
// config body. The last uncommented occurrence wins, matching sshd's own
// first-match rule closely enough for the two directives audited here.
func sshdSetting(body, directive string) string {
	re := regexp.MustCompile(`(?mi)^\s*` + directive + `\s+(\S+)`)
	if m := re.FindStringSubmatch(body); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

func (a *Auditor) checkSSH() []CheckResult {
	data, err := os.ReadFile(a.sshdConfig)
	if err != nil {
		return []CheckResult{{Status: "warning", Message: fmt.Sprintf("sshd config not readable: %v", err)}}
	}
	body := string(data)
	var results []CheckResult

	switch v := sshdSetting(body, "PermitRootLogin"); v {
	case "no", "prohibit-password", "without-password":
		results = append(results, CheckResult{Status: "success", Message: "root login restricted (PermitRootLogin " + v + ")"})
	case "":
		results = append(results, CheckResult{Status: "warning", Message: "PermitRootLogin not set (default prohibit-password)"})
	default:
		results = append(results, CheckResult{Status: "error", Message: "PermitRootLogin " + v})
	}

	switch v := sshdSetting(body, "PasswordAuthentication"); v {
	case "no":
		results = append(results, CheckResult{Status: "success", Message: "password authentication disabled"})
	case "":
		results = append(results, CheckResult{Status: "warning", Message: "PasswordAuthentication not set (default yes)"})
	default:
		results = append(results, CheckResult{Status: "error", Message: "password authentication enabled"})
	}

	return results
}

func (a *Auditor) checkNginx(ctx context.Context) []CheckResult {
	var results []CheckResult

	if _, err := a.exec.LookPath("nginx"); err != nil {
		return []CheckResult{{Status: "warning", Message: "nginx not installed"}}
	}

	if out, err := a.exec.ExecuteContext(ctx, "nginx", "-v"); err == nil {
		results = append(results, CheckResult{Status: "success", Message: strings.TrimSpace(string(out))})
	}

	data, err := os.ReadFile(a.nginxConf)
	if err != nil {
		results = append(results, CheckResult{Status: "warning", Message: fmt.Sprintf("nginx.conf not readable: %v", err)})
		return results
	}
	if regexp.MustCompile(`(?m)^\s*server_tokens\s+off\s*;`).Match(data) {
		results = append(results, CheckResult{Status: "success", Message: "server_tokens off"})
	} else {
		results = append(results, CheckResult{Status: "warning", Message: "server_tokens not disabled, version exposed in headers"})
	}
	return results
}

func (a *Auditor) checkCertificates(cfg *config.Config) []CheckResult {
	var results []CheckResult
	now := a.now()

	seen := map[string]bool{}
	inspect := func(label, certPath, keyPath string) {
		if seen[certPath] {
			return
		}
		seen[certPath] = true

		info, err := certs.Inspect(certPath)
		if err != nil {
			results = append(results, CheckResult{Status: "error", Message: fmt.Sprintf("%s: unreadable certificate: %v", label, err)})
			return
		}
		days := info.DaysLeft(now)
		switch {
		case days < 0:
			results = append(results, CheckResult{Status: "error", Message: fmt.Sprintf("%s: certificate expired %d days ago", label, -days)})
		case days <= expiryWarnDays:
			results = append(results, CheckResult{Status: "warning", Message: fmt.Sprintf("%s: certificate expires in %d days", label, days)})
		default:
			results = append(results, CheckResult{Status: "success", Message: fmt.Sprintf("%s: certificate valid for %d days", label, days)})
		}

		if keyPath == "" {
			return
		}
		fi, err := os.Stat(keyPath)
		if err != nil {
			results = append(results, CheckResult{Status: "error", Message: fmt.Sprintf("%s: private key missing: %v", label, err)})
			return
		}
		if fi.Mode().Perm()&0077 != 0 {
			results = append(results, CheckResult{Status: "error", Message: fmt.Sprintf("%s: private key %s is mode %04o, want 0600", label, keyPath, fi.Mode().Perm())})
		} else {
			results = append(results, CheckResult{Status: "success", Message: fmt.Sprintf("%s: private key permissions OK", label)})
		}
	}

	if cfg != nil {
		for _, site := range cfg.ListSites() {
			inspect(site.Domain, site.CertPath, site.KeyPath)
		}
	}

	// Certificates issued outside the managed sites still count.
	entries, err := os.ReadDir(a.liveDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			inspect(entry.Name(),
				filepath.Join(a.liveDir, entry.Name(), "fullchain.pem"),
				filepath.Join(a.liveDir, entry.Name(), "privkey.pem"))
		}
	}

	if len(results) == 0 {
		results = append(results, CheckResult{Status: "warning", Message: "no certificates found to audit"})
	}
	return results
}

func (a *Auditor) checkUpdates(ctx context.Context) []CheckResult {
	if _, err := a.exec.LookPath("apt-get"); err != nil {
		return []CheckResult{{Status: "warning", Message: "apt-get not available, skipping update check"}}
	}

	out, err := a.exec.ExecuteContext(ctx, "apt-get", "-s", "upgrade")
	if err != nil {
		return []CheckResult{{Status: "warning", Message: fmt.Sprintf("update check failed: %v", err)}}
	}

	total, security := 0, 0
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Inst ") {
			continue
		}
		total++
		if strings.Contains(line, "-security") {
			security++
		}
	}

	switch {
	case security > 0:
		return []CheckResult{{Status: "error", Message: fmt.Sprintf("%d security updates pending (%d total)", security, total)}}
	case total > 0:
		return []CheckResult{{Status: "warning", Message: fmt.Sprintf("%d package updates pending", total)}}
	default:
		return []CheckResult{{Status: "success", Message: "system up to date"}}
	}
}

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/firewall"
	"github.com/tlsdeploy/tlsdeploy/internal/nginx"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system status and diagnose issues",
	Long: `Run diagnostic checks on the system and managed sites.

Checks:
  - Nginx installation and config syntax
  - UFW installation
  - Tool configuration file
  - Certificate and key presence per managed site

Examples:
  tlsdeploy doctor
  tlsdeploy doctor --json`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Status  string `json:"status"` // "success", "warning", "error"
	Message string `json:"message"`
}

// SiteStatus represents the status of a single managed site
type SiteStatus struct {
	Domain string        `json:"domain"`
	Checks []CheckResult `json:"checks"`
}

// DoctorReport contains all diagnostic results
type DoctorReport struct {
	SystemRequirements []CheckResult `json:"system_requirements"`
	Configuration      []CheckResult `json:"configuration"`
	Sites              []SiteStatus  `json:"sites"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt := newRuntime()

	report := &DoctorReport{}
	report.SystemRequirements = checkSystemRequirements(cmd, rt)
	report.Configuration = checkConfiguration(cmd, rt)
	report.Sites = checkSites(cfg, rt)

	if jsonOutput {
		return output.JSON(report)
	}

	displayDoctorResults(report)
	return nil
}

func checkSystemRequirements(cmd *cobra.Command, rt *nginx.Runtime) []CheckResult {
	results := []CheckResult{}

	if rt.IsInstalled() {
		version, err := rt.Version(cmd.Context())
		if err != nil {
			version = "version unknown"
		}
		results = append(results, CheckResult{
			Status:  "success",
			Message: fmt.Sprintf("Nginx installed (%s)", version),
		})
	} else {
		results = append(results, CheckResult{
			Status:  "error",
			Message: "Nginx not installed",
		})
	}

	firewall.SetExecutor(deps.Executor)
	defer firewall.ResetExecutor()
	if firewall.IsInstalled() {
		results = append(results, CheckResult{Status: "success", Message: "UFW installed"})
	} else {
		results = append(results, CheckResult{Status: "warning", Message: "UFW not installed (optional)"})
	}

	return results
}

func checkConfiguration(cmd *cobra.Command, rt *nginx.Runtime) []CheckResult {
	results := []CheckResult{}

	configPath, pathErr := config.ConfigPath()
	if pathErr == nil {
		if _, err := os.Stat(configPath); err == nil {
			displayPath := strings.Replace(configPath, os.Getenv("HOME"), "~", 1)
			results = append(results, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("Config file exists (%s)", displayPath),
			})
		} else {
			results = append(results, CheckResult{
				Status:  "warning",
				Message: "Config file not found (defaults in effect)",
			})
		}
	} else {
		results = append(results, CheckResult{
			Status:  "error",
			Message: "Could not determine config path",
		})
	}

	if _, err := os.Stat(deps.Paths.ConfDir); err != nil {
		results = append(results, CheckResult{
			Status:  "warning",
			Message: fmt.Sprintf("Nginx conf directory missing (%s)", deps.Paths.ConfDir),
		})
		return results
	}

	if ok, _ := rt.Test(cmd.Context()); ok {
		results = append(results, CheckResult{Status: "success", Message: "Nginx config syntax OK"})
	} else {
		results = append(results, CheckResult{Status: "error", Message: "Nginx config syntax error"})
	}

	return results
}

func checkSites(cfg *config.Config, rt *nginx.Runtime) []SiteStatus {
	statuses := []SiteStatus{}

	for _, site := range cfg.ListSites() {
		status := SiteStatus{Domain: site.Domain, Checks: []CheckResult{}}
		allOK := true

		if _, err := os.Stat(rt.ConfigPath(site.Domain)); err != nil {
			status.Checks = append(status.Checks, CheckResult{
				Status:  "warning",
				Message: "nginx config file missing",
			})
			allOK = false
		}
		if _, err := os.Stat(site.CertPath); err != nil {
			status.Checks = append(status.Checks, CheckResult{
				Status:  "error",
				Message: "certificate missing",
			})
			allOK = false
		}
		if _, err := os.Stat(site.KeyPath); err != nil {
			status.Checks = append(status.Checks, CheckResult{
				Status:  "error",
				Message: "private key missing",
			})
			allOK = false
		}

		if allOK {
			status.Checks = append(status.Checks, CheckResult{
				Status:  "success",
				Message: fmt.Sprintf("%s certificate, config present", site.Issuer),
			})
		}

		statuses = append(statuses, status)
	}

	return statuses
}

func displayDoctorResults(report *DoctorReport) {
	output.Print("Checking system requirements...")
	for _, check := range report.SystemRequirements {
		displayCheck(check)
	}
	output.Print("")

	output.Print("Checking configuration...")
	for _, check := range report.Configuration {
		displayCheck(check)
	}
	output.Print("")

	if len(report.Sites) > 0 {
		output.Print("Checking managed sites...")
		for _, site := range report.Sites {
			mainCheck := site.Checks[len(site.Checks)-1]
			switch mainCheck.Status {
			case "success":
				output.Success("%s - %s", site.Domain, mainCheck.Message)
			case "warning":
				output.Warn("%s - %s", site.Domain, mainCheck.Message)
			case "error":
				output.Error("%s - %s", site.Domain, mainCheck.Message)
			}
		}
	} else {
		output.Print("No managed sites")
	}
}

func displayCheck(check CheckResult) {
	switch check.Status {
	case "success":
		output.Success("%s", check.Message)
	case "warning":
		output.Warn("%s", check.Message)
	case "error":
		output.Error("%s", check.Message)
	}
}

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/audit"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a read-only security audit",
	Long: `Audit the host: firewall state, sshd hardening, nginx version
exposure, certificate expiry, and key file permissions. Nothing is
changed; the command only reports.

Examples:
  tlsdeploy audit
  tlsdeploy audit --json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	auditor := audit.NewWithPaths(
		"/etc/ssh/sshd_config",
		deps.Paths.NginxConf,
		deps.Paths.ACMELiveDir,
		deps.Executor,
	)
	report := auditor.Run(cmd.Context(), cfg)

	if jsonOutput {
		return output.JSON(report)
	}

	for _, sec := range report.Sections() {
		output.Print("%s", sec.Title)
		for _, check := range sec.Checks {
			switch check.Status {
			case "success":
				output.Success("%s", check.Message)
			case "warning":
				output.Warn("%s", check.Message)
			case "error":
				output.Error("%s", check.Message)
			}
		}
		output.Print("")
	}

	switch report.Worst() {
	case "error":
		output.Error("Audit found problems that need attention")
	case "warning":
		output.Warn("Audit passed with warnings")
	default:
		output.Success("Audit passed")
	}
	return nil
}

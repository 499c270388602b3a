package cli

import (
	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/firewall"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

var firewallCmd = &cobra.Command{
	Use:   "firewall",
	Short: "Firewall preparation for web traffic",
	Long: `Prepare UFW for serving HTTPS: SSH stays allowed, ports 80 and 443
are opened, and the firewall is enabled.`,
}

var firewallSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Allow SSH, HTTP, and HTTPS, then enable UFW",
	RunE:  runFirewallSetup,
}

var firewallStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show firewall state and rules",
	RunE:  runFirewallStatus,
}

func init() {
	firewallCmd.AddCommand(firewallSetupCmd)
	firewallCmd.AddCommand(firewallStatusCmd)

	rootCmd.AddCommand(firewallCmd)
}

func runFirewallSetup(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}

	firewall.SetExecutor(deps.Executor)
	defer firewall.ResetExecutor()

	if err := firewall.EnsureWebPorts(cmd.Context()); err != nil {
		return err
	}

	st, err := firewall.GetStatus(cmd.Context())
	if err != nil {
		return err
	}
	return outputResult(st, "Firewall active with SSH, HTTP, and HTTPS allowed")
}

func runFirewallStatus(cmd *cobra.Command, args []string) error {
	firewall.SetExecutor(deps.Executor)
	defer firewall.ResetExecutor()

	st, err := firewall.GetStatus(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(st)
	}

	switch {
	case !st.Installed:
		output.Warn("ufw is not installed")
	case !st.Active:
		output.Warn("ufw is installed but inactive")
	default:
		output.Success("ufw is active")
		for _, rule := range st.Rules {
			output.Print("  %s", rule)
		}
	}
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/output"
)

var forceRemove bool

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Managed site operations",
}

var siteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed sites",
	RunE:  runSiteList,
}

var siteRemoveCmd = &cobra.Command{
	Use:     "remove <domain>",
	Aliases: []string{"rm"},
	Short:   "Remove a managed site's nginx config",
	Long: `Remove a site's nginx configuration and forget the site. The
certificate files are left in place. The live directory is snapshotted
before the removal so it can be restored.

Examples:
  tlsdeploy site remove app.example.com
  tlsdeploy site rm app.example.com --force`,
	Args: cobra.ExactArgs(1),
	RunE: runSiteRemove,
}

func init() {
	siteRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "Remove without confirmation")

	siteCmd.AddCommand(siteListCmd)
	siteCmd.AddCommand(siteRemoveCmd)

	rootCmd.AddCommand(siteCmd)
}

func runSiteList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sites := cfg.ListSites()
	if jsonOutput {
		return output.JSON(sites)
	}

	if len(sites) == 0 {
		output.Print("No managed sites")
		return nil
	}

	// Configs present on disk but not managed are worth surfacing.
	onDisk := map[string]bool{}
	if names, err := newRuntime().ListSites(); err == nil {
		for _, name := range names {
			onDisk[name] = true
		}
	}

	rows := make([][]string, 0, len(sites))
	for _, site := range sites {
		state := "config missing"
		if onDisk[site.Domain] {
			state = "deployed"
			delete(onDisk, site.Domain)
		}
		rows = append(rows, []string{
			site.Domain,
			site.Issuer,
			fmt.Sprintf("%d/%d", site.FrontendPort, site.BackendPort),
			state,
		})
	}
	output.Table([]string{"Domain", "Issuer", "Ports", "State"}, rows)

	for name := range onDisk {
		output.Warn("Unmanaged config in %s: %s.conf", deps.Paths.ConfDir, name)
	}
	return nil
}

func runSiteRemove(cmd *cobra.Command, args []string) error {
	domain := args[0]
	ctx := cmd.Context()

	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := cfg.GetSite(domain); err != nil {
		return err
	}

	if !forceRemove && !confirm("Remove site '%s'?", domain) {
		output.Info("Removal cancelled")
		return nil
	}

	// Snapshot first so the removal is as reversible as an activation.
	rt := newRuntime()
	snap, err := newSnapshots().Take(deps.Paths.ConfDir)
	if err != nil {
		return err
	}
	output.Info("Snapshot %s taken", snap.ID)

	if err := rt.RemoveConfig(domain); err != nil {
		return err
	}

	if ok, diag := rt.Test(ctx); !ok {
		output.Warn("Post-removal syntax check failed:\n%s", diag)
	} else if err := rt.Reload(ctx); err != nil {
		output.Warn("Reload failed: %v", err)
	}

	if err := cfg.RemoveSite(domain); err == nil {
		if err := saveConfig(cfg); err != nil {
			output.Warn("Site removed but config save failed: %v", err)
		}
	}

	return outputResult(map[string]interface{}{
		"success":  true,
		"domain":   domain,
		"snapshot": snap.ID,
	}, "Site %s removed (snapshot %s)", domain, snap.ID)
}

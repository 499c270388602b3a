package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/output"
	"github.com/tlsdeploy/tlsdeploy/internal/template"
)

var (
	renderOut          string
	renderStub         bool
	renderFrontendPort int
	renderBackendPort  int
	renderCert         string
	renderKey          string
)

var renderCmd = &cobra.Command{
	Use:   "render <domain>",
	Short: "Render the nginx server block for a domain",
	Long: `Render the nginx configuration for a domain without touching the live
configuration. Parameters come from the managed site if one exists;
flags override them.

Examples:
  tlsdeploy render app.example.com
  tlsdeploy render app.example.com --out /tmp/app.conf
  tlsdeploy render app.example.com --stub
  tlsdeploy render new.example.com --cert /tmp/c.crt --key /tmp/c.key`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write to this file instead of stdout")
	renderCmd.Flags().BoolVar(&renderStub, "stub", false, "Render the HTTP-only stub used before a certificate exists")
	renderCmd.Flags().IntVar(&renderFrontendPort, "frontend-port", 0, "Upstream port for / traffic")
	renderCmd.Flags().IntVar(&renderBackendPort, "backend-port", 0, "Upstream port for /api and /health traffic")
	renderCmd.Flags().StringVar(&renderCert, "cert", "", "Certificate path")
	renderCmd.Flags().StringVar(&renderKey, "key", "", "Private key path")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	domain := args[0]

	params := template.Params{
		Domain:       domain,
		FrontendPort: renderFrontendPort,
		BackendPort:  renderBackendPort,
		SSLCert:      renderCert,
		SSLKey:       renderKey,
	}

	// Fill gaps from the managed site, if there is one.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if site, err := cfg.GetSite(domain); err == nil {
		if params.FrontendPort == 0 {
			params.FrontendPort = site.FrontendPort
		}
		if params.BackendPort == 0 {
			params.BackendPort = site.BackendPort
		}
		if params.SSLCert == "" {
			params.SSLCert = site.CertPath
		}
		if params.SSLKey == "" {
			params.SSLKey = site.KeyPath
		}
	}

	var rendered string
	if renderStub {
		rendered, err = template.RenderStub(params)
	} else {
		rendered, err = template.RenderSite(params)
	}
	if err != nil {
		return err
	}

	if renderOut != "" {
		if err := os.WriteFile(renderOut, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", renderOut, err)
		}
		output.Success("Rendered configuration written to %s", renderOut)
		return nil
	}

	output.Print("%s", rendered)
	return nil
}

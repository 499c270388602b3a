package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/certs"
	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/deploy"
	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
	"github.com/tlsdeploy/tlsdeploy/internal/preflight"
	"github.com/tlsdeploy/tlsdeploy/internal/template"
)

var (
	provIssuer       string
	provCertName     string
	provEmail        string
	provFrontendPort int
	provBackendPort  int
	provAllowDNS     bool
	provWebroot      string
)

var provisionCmd = &cobra.Command{
	Use:   "provision <domain>",
	Short: "Provision a certificate and deploy the nginx config for a domain",
	Long: `Run the full workflow for a domain: preflight checks, certificate
issuance, configuration rendering, and safe activation.

The live configuration is snapshotted before it is touched. If the new
configuration fails the nginx syntax check, the snapshot is restored and
nginx keeps serving the previous configuration.

Examples:
  tlsdeploy provision app.example.com
  tlsdeploy provision app.example.com --issuer acme --email admin@example.com
  tlsdeploy provision app.example.com --cert-name shared-cert --frontend-port 4000
  tlsdeploy provision app.example.com --allow-dns-mismatch`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVarP(&provIssuer, "issuer", "i", config.IssuerSelfSigned, "Certificate issuer (selfsigned, acme)")
	provisionCmd.Flags().StringVar(&provCertName, "cert-name", "", "Certificate identifier (defaults to the domain)")
	provisionCmd.Flags().StringVarP(&provEmail, "email", "e", "", "ACME contact email (required for --issuer acme)")
	provisionCmd.Flags().IntVar(&provFrontendPort, "frontend-port", 3000, "Upstream port for / traffic")
	provisionCmd.Flags().IntVar(&provBackendPort, "backend-port", 3001, "Upstream port for /api and /health traffic")
	provisionCmd.Flags().BoolVar(&provAllowDNS, "allow-dns-mismatch", false, "Proceed even if the domain does not resolve to the configured server IP")
	provisionCmd.Flags().StringVar(&provWebroot, "webroot", "", "Serve ACME challenges from this directory instead of binding port 80")

	rootCmd.AddCommand(provisionCmd)
}

// ProvisionResult is the JSON shape of a completed provisioning run.
type ProvisionResult struct {
	Success    bool   `json:"success"`
	Domain     string `json:"domain"`
	Issuer     string `json:"issuer"`
	CertPath   string `json:"cert_path"`
	KeyPath    string `json:"key_path"`
	RunID      string `json:"run_id"`
	State      string `json:"state"`
	SnapshotID string `json:"snapshot_id"`
}

func runProvision(cmd *cobra.Command, args []string) error {
	domain := args[0]
	ctx := cmd.Context()

	if err := validateDomain(domain); err != nil {
		return errors.Precondition("%v", err)
	}
	if !config.IsValidIssuer(provIssuer) {
		return errors.Precondition("invalid issuer %q, valid issuers: selfsigned, acme", provIssuer)
	}
	if provIssuer == config.IssuerACME && provEmail == "" {
		return errors.Precondition("--email is required for the acme issuer")
	}

	certName := provCertName
	if certName == "" {
		certName = domain
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	const steps = 5

	// Step 1: preflight. Nothing is mutated until every check passes.
	output.Step(1, steps, "Running preflight checks")
	if err := requireRoot(); err != nil {
		return err
	}
	rt := newRuntime()
	if !rt.IsInstalled() {
		return errors.Precondition("nginx is not installed. Install it with: apt install nginx")
	}
	// DNS has to point here before the authority is asked to validate
	// the domain; a self-signed certificate has no such dependency and
	// is often issued exactly because the domain does not resolve yet.
	if provIssuer == config.IssuerACME {
		allowMismatch := provAllowDNS || cfg.AllowDNSMismatch
		if err := deps.DNSVerifier.VerifyDNS(ctx, domain, cfg.ServerIP, allowMismatch); err != nil {
			return err
		}
		if provWebroot != "" {
			// Webroot delivery relies on the running nginx answering
			// on port 80; the standalone server binds it itself.
			if err := preflight.NewChecker(cfg.Resolver).ProbePort(ctx, "127.0.0.1", 80); err != nil {
				return err
			}
		}
	}

	// Step 2: certificate.
	output.Step(2, steps, "Obtaining %s certificate %q", provIssuer, certName)
	req := certs.Request{
		Domain:       domain,
		CertName:     certName,
		ServerIP:     cfg.ServerIP,
		ValidityDays: cfg.CertValidityDays,
		Email:        provEmail,
	}
	bundle, err := obtainBundle(req)
	if err != nil {
		return err
	}

	// Step 3: render.
	output.Step(3, steps, "Rendering nginx configuration")
	rendered, err := template.RenderSite(template.Params{
		Domain:       domain,
		FrontendPort: provFrontendPort,
		BackendPort:  provBackendPort,
		SSLCert:      bundle.CertificatePath,
		SSLKey:       bundle.PrivateKeyPath,
	})
	if err != nil {
		return err
	}

	// Step 4: snapshot, write, validate, reload.
	output.Step(4, steps, "Activating configuration")
	d := newDeployer()
	res, err := d.Activate(ctx, d.Target(domain), rendered)
	if res != nil && res.SnapshotID != "" {
		output.Info("Snapshot %s taken", res.SnapshotID)
	}
	if err != nil {
		if res != nil && res.State == deploy.StateRolledBack {
			output.Error("Validation failed, snapshot %s restored", res.SnapshotID)
			output.Info("The previous configuration remains active and serving traffic unchanged")
		}
		return err
	}

	// Step 5: record the site.
	output.Step(5, steps, "Saving site configuration")
	cfg.Sites[domain] = &config.Site{
		Domain:       domain,
		CertName:     certName,
		Issuer:       provIssuer,
		FrontendPort: provFrontendPort,
		BackendPort:  provBackendPort,
		CertPath:     bundle.CertificatePath,
		KeyPath:      bundle.PrivateKeyPath,
		CreatedAt:    time.Now(),
	}
	if err := saveConfig(cfg); err != nil {
		output.Warn("Site deployed but config save failed: %v", err)
	}

	if provIssuer == config.IssuerACME {
		output.Info("Schedule renewal with: %s", certs.RenewalCommand(domain))
	}

	return outputResult(ProvisionResult{
		Success:    true,
		Domain:     domain,
		Issuer:     provIssuer,
		CertPath:   bundle.CertificatePath,
		KeyPath:    bundle.PrivateKeyPath,
		RunID:      res.RunID,
		State:      string(res.State),
		SnapshotID: res.SnapshotID,
	}, "Site %s provisioned and active (run %s)", domain, res.RunID)
}

// obtainBundle routes the request to the issuer selected by flag.
func obtainBundle(req certs.Request) (*certs.Bundle, error) {
	switch provIssuer {
	case config.IssuerACME:
		p := newACMEProvider()
		if provWebroot != "" {
			p.SetWebroot(provWebroot)
		}
		return p.Obtain(req)
	default:
		return newSelfSignedProvider().Obtain(req)
	}
}

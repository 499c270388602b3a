package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/certs"
	"github.com/tlsdeploy/tlsdeploy/internal/config"
	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/output"
	"github.com/tlsdeploy/tlsdeploy/internal/preflight"
)

var (
	certName         string
	certDays         int
	certEmail        string
	certWebroot      string
	certHTTPPort     string
	renewAll         bool
	renewForce       bool
	renewCheck       bool
	acmeDirectoryURL string
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate management",
	Long:  `Obtain, renew, and inspect TLS certificates without touching the nginx configuration.`,
}

var certSelfSignedCmd = &cobra.Command{
	Use:   "selfsigned <domain>",
	Short: "Generate a self-signed certificate",
	Long: `Generate a self-signed RSA certificate covering the domain, its
wildcard, localhost, and the configured server IP.

Examples:
  tlsdeploy cert selfsigned app.example.com
  tlsdeploy cert selfsigned app.example.com --cert-name shared --days 730`,
	Args: cobra.ExactArgs(1),
	RunE: runCertSelfSigned,
}

var certACMECmd = &cobra.Command{
	Use:   "acme <domain>",
	Short: "Obtain a certificate from an ACME authority",
	Long: `Obtain a domain-validated certificate over the HTTP-01 challenge.

The domain must resolve to this server and port 80 must be reachable.
With --webroot the challenge is served through the running nginx instead
of binding port 80 directly.

Examples:
  tlsdeploy cert acme app.example.com --email admin@example.com
  tlsdeploy cert acme app.example.com --email admin@example.com --webroot /var/www/html`,
	Args: cobra.ExactArgs(1),
	RunE: runCertACME,
}

var certRenewCmd = &cobra.Command{
	Use:   "renew [domain]",
	Short: "Renew ACME certificate(s) close to expiry",
	Long: `Renew ACME certificates that are inside their renewal window.

Examples:
  tlsdeploy cert renew app.example.com
  tlsdeploy cert renew --all
  tlsdeploy cert renew app.example.com --force
  tlsdeploy cert renew app.example.com --check`,
	RunE: runCertRenew,
}

var certInspectCmd = &cobra.Command{
	Use:   "inspect <path|domain>",
	Short: "Show certificate details",
	Long: `Show the subject, identities, and validity of a certificate. The
argument is a PEM file path or a managed domain.

Examples:
  tlsdeploy cert inspect app.example.com
  tlsdeploy cert inspect /etc/letsencrypt/live/app.example.com/fullchain.pem`,
	Args: cobra.ExactArgs(1),
	RunE: runCertInspect,
}

func init() {
	certSelfSignedCmd.Flags().StringVar(&certName, "cert-name", "", "Certificate identifier (defaults to the domain)")
	certSelfSignedCmd.Flags().IntVar(&certDays, "days", 0, "Validity in days (defaults to the configured value)")

	certACMECmd.Flags().StringVarP(&certEmail, "email", "e", "", "ACME contact email (required)")
	certACMECmd.MarkFlagRequired("email")
	certACMECmd.Flags().StringVar(&certWebroot, "webroot", "", "Serve challenges from this directory instead of binding port 80")
	certACMECmd.Flags().StringVar(&certHTTPPort, "http-port", "", "Port the standalone challenge server binds (default 80)")
	certACMECmd.Flags().StringVar(&acmeDirectoryURL, "ca-url", "", "ACME directory URL (defaults to Let's Encrypt production)")

	certRenewCmd.Flags().BoolVar(&renewAll, "all", false, "Renew every managed ACME certificate")
	certRenewCmd.Flags().BoolVar(&renewForce, "force", false, "Renew even outside the renewal window")
	certRenewCmd.Flags().BoolVar(&renewCheck, "check", false, "Verify that renewal is possible without issuing anything")
	certRenewCmd.Flags().StringVarP(&certEmail, "email", "e", "", "ACME contact email (defaults to the configured value)")

	certCmd.AddCommand(certSelfSignedCmd)
	certCmd.AddCommand(certACMECmd)
	certCmd.AddCommand(certRenewCmd)
	certCmd.AddCommand(certInspectCmd)

	rootCmd.AddCommand(certCmd)
}

func runCertSelfSigned(cmd *cobra.Command, args []string) error {
	domain := args[0]
	if err := validateDomain(domain); err != nil {
		return errors.Precondition("%v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	name := certName
	if name == "" {
		name = domain
	}
	days := certDays
	if days == 0 {
		days = cfg.CertValidityDays
	}

	bundle, err := newSelfSignedProvider().Obtain(certs.Request{
		Domain:       domain,
		CertName:     name,
		ServerIP:     cfg.ServerIP,
		ValidityDays: days,
	})
	if err != nil {
		return err
	}

	return outputResult(bundle, "Self-signed certificate %s written to %s", name, bundle.CertificatePath)
}

func runCertACME(cmd *cobra.Command, args []string) error {
	domain := args[0]
	if err := validateDomain(domain); err != nil {
		return errors.Precondition("%v", err)
	}
	if err := requireRoot(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	allowMismatch := cfg.AllowDNSMismatch
	if err := deps.DNSVerifier.VerifyDNS(cmd.Context(), domain, cfg.ServerIP, allowMismatch); err != nil {
		return err
	}

	p := newACMEProvider()
	if certWebroot != "" {
		// Webroot delivery relies on the running nginx answering on
		// port 80; the standalone server binds it itself.
		if err := preflight.NewChecker(cfg.Resolver).ProbePort(cmd.Context(), "127.0.0.1", 80); err != nil {
			return err
		}
		p.SetWebroot(certWebroot)
	}
	if certHTTPPort != "" {
		p.SetHTTPPort(certHTTPPort)
	}

	output.Info("Requesting certificate for %s...", domain)
	bundle, err := p.Obtain(certs.Request{
		Domain:   domain,
		CertName: domain,
		Email:    certEmail,
	})
	if err != nil {
		return err
	}

	output.Info("Schedule renewal with: %s", certs.RenewalCommand(domain))
	return outputResult(bundle, "Certificate for %s written to %s", domain, bundle.CertificatePath)
}

// RenewResult is the JSON shape of one renewal attempt.
type RenewResult struct {
	Domain  string `json:"domain"`
	Renewed bool   `json:"renewed"`
	Error   string `json:"error,omitempty"`
}

func runCertRenew(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !renewAll {
		return errors.Precondition("specify a domain or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	email := certEmail
	if email == "" {
		email = cfg.Email
	}

	var domains []string
	if renewAll {
		for _, site := range cfg.ListSites() {
			if site.Issuer == config.IssuerACME {
				domains = append(domains, site.Domain)
			}
		}
		if len(domains) == 0 {
			output.Info("No managed ACME certificates to renew")
			return nil
		}
	} else {
		domains = []string{args[0]}
	}

	p := newACMEProvider()

	if renewCheck {
		for _, domain := range domains {
			if err := p.VerifyRenewal(domain, email); err != nil {
				return err
			}
			output.Success("%s is renewable", domain)
		}
		return nil
	}

	var results []RenewResult
	failed := false
	for _, domain := range domains {
		_, renewed, err := p.Renew(certs.Request{Domain: domain, CertName: domain, Email: email}, renewForce)
		r := RenewResult{Domain: domain, Renewed: renewed}
		if err != nil {
			r.Error = err.Error()
			failed = true
			output.Error("%s: %v", domain, err)
		} else if renewed {
			output.Success("%s renewed", domain)
		} else {
			output.Info("%s not due for renewal", domain)
		}
		results = append(results, r)
	}

	if jsonOutput {
		if err := output.JSON(results); err != nil {
			return err
		}
	}
	if failed {
		return errors.Wrap(errors.CodeGeneration, "one or more renewals failed", nil)
	}
	return nil
}

func runCertInspect(cmd *cobra.Command, args []string) error {
	target := args[0]

	path := target
	if _, err := os.Stat(path); err != nil {
		// Not a file; resolve as a managed domain.
		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			return cfgErr
		}
		site, siteErr := cfg.GetSite(target)
		if siteErr != nil {
			return siteErr
		}
		path = site.CertPath
	}

	info, err := certs.Inspect(path)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(info)
	}

	output.Print("Subject:     %s", info.Subject)
	output.Print("Issuer:      %s", info.IssuerName)
	output.Print("DNS names:   %s", joinOrDash(info.DNSNames))
	output.Print("IPs:         %s", joinOrDash(info.IPs))
	output.Print("Valid from:  %s", info.NotBefore.Format(time.RFC3339))
	output.Print("Valid until: %s (%d days left)", info.NotAfter.Format(time.RFC3339), info.DaysLeft(time.Now()))
	if info.SelfSigned {
		output.Warn("Certificate is self-signed")
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	out := items[0]
	for _, item := range items[1:] {
		out += ", " + item
	}
	return out
}

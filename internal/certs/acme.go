package certs

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/providers/http/webroot"
	"github.com/go-acme/lego/v4/registration"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

// Filenames inside the per-domain live directory, matching the
// letsencrypt layout nginx configs reference.
const (
	FullchainFile = "fullchain.pem"
	PrivkeyFile   = "privkey.pem"
)

// RenewWindowDays is how long before expiry a certificate becomes due
// for renewal. ACME certificates are valid ~90 days; renewing in the
// last 30 matches the certbot default.
const RenewWindowDays = 30

// ACMEProvider obtains domain-validated certificates from an ACME
// authority over the HTTP-01 challenge.
type ACMEProvider struct {
	liveDir    string // per-domain bundles, <liveDir>/<domain>/
	accountDir string // ACME account key storage
	caDirURL   string
	httpPort   string // port the standalone HTTP-01 solver binds
	webroot    string // serve challenge files from here instead of binding a port
}

// NewACMEProvider creates a provider writing bundles under liveDir
// (e.g. /etc/letsencrypt/live) and keeping its account key in
// accountDir. An empty caDirURL selects the Let's Encrypt production
// directory.
func NewACMEProvider(liveDir, accountDir, caDirURL string) *ACMEProvider {
	if caDirURL == "" {
		caDirURL = lego.LEDirectoryProduction
	}
	return &ACMEProvider{
		liveDir:    liveDir,
		accountDir: accountDir,
		caDirURL:   caDirURL,
		httpPort:   "80",
	}
}

// SetHTTPPort overrides the HTTP-01 solver port. Real issuance requires
// port 80; tests use a free high port against a pebble instance.
func (p *ACMEProvider) SetHTTPPort(port string) {
	p.httpPort = port
}

// SetWebroot switches the HTTP-01 solver to webroot mode: challenge
// files are written under dir/.well-known/acme-challenge/ and served by
// the already-running nginx, instead of the solver binding port 80
// itself. This is the mode the provisioning workflow uses once a stub
// or full config for the domain is active.
func (p *ACMEProvider) SetWebroot(dir string) {
	p.webroot = dir
}

// LivePaths returns the well-known bundle paths for a domain, whether
// or not the files exist yet.
func (p *ACMEProvider) LivePaths(domain string) (certPath, keyPath string) {
	return filepath.Join(p.liveDir, domain, FullchainFile),
		filepath.Join(p.liveDir, domain, PrivkeyFile)
}

// user satisfies lego's registration.User interface.
type user struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *user) GetEmail() string                        { return u.email }
func (u *user) GetRegistration() *registration.Resource { return u.registration }
func (u *user) GetPrivateKey() crypto.PrivateKey        { return u.key }

// Obtain requests a certificate for req.Domain, solving the HTTP-01
// challenge on the provider's port, and writes the bundled chain and
// key into the live directory. The caller is responsible for the DNS
// and port-80 preconditions; Obtain assumes they hold.
func (p *ACMEProvider) Obtain(req Request) (*Bundle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Email == "" {
		return nil, errors.Precondition("certificate request: ACME issuance requires a contact email")
	}

	client, err := p.newClient(req.Email)
	if err != nil {
		return nil, err
	}

	if p.webroot != "" {
		provider, err := webroot.NewHTTPProvider(p.webroot)
		if err != nil {
			return nil, errors.Wrap(errors.CodeGeneration, "configure webroot solver", err)
		}
		if err := client.Challenge.SetHTTP01Provider(provider); err != nil {
			return nil, errors.Wrap(errors.CodeGeneration, "configure HTTP-01 solver", err)
		}
	} else if err := client.Challenge.SetHTTP01Provider(http01.NewProviderServer("", p.httpPort)); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "configure HTTP-01 solver", err)
	}

	res, err := client.Certificate.Obtain(certificate.ObtainRequest{
		Domains: []string{req.Domain},
		Bundle:  true,
	})
	if err != nil {
		return nil, errors.WrapDomain(errors.CodeGeneration, req.Domain, "obtain certificate", err)
	}

	certPath, keyPath := p.LivePaths(req.Domain)
	if err := os.MkdirAll(filepath.Dir(certPath), 0755); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "create live directory", err)
	}
	if err := writeKeyFile(keyPath, res.PrivateKey); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "write private key", err)
	}
	if err := os.WriteFile(certPath, res.Certificate, 0644); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "write certificate", err)
	}

	block, _ := pem.Decode(res.Certificate)
	if block == nil {
		return nil, errors.Wrap(errors.CodeGeneration, "decode issued certificate", nil)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "parse issued certificate", err)
	}

	logger.Info("ACME certificate obtained for %s, expires %s", req.Domain, cert.NotAfter.Format(time.RFC3339))

	return &Bundle{
		CertificatePath: certPath,
		PrivateKeyPath:  keyPath,
		NotBefore:       cert.NotBefore,
		NotAfter:        cert.NotAfter,
		Issuer:          IssuerACME,
	}, nil
}

// ShouldRenew reports whether the live certificate for domain is inside
// the renewal window. A missing or unreadable certificate counts as due.
func (p *ACMEProvider) ShouldRenew(domain string, now time.Time) bool {
	certPath, _ := p.LivePaths(domain)
	info, err := Inspect(certPath)
	if err != nil {
		return true
	}
	return info.DaysLeft(now) <= RenewWindowDays
}

// VerifyRenewal is the dry-run check that renewal is currently
// possible: the live bundle parses and the ACME directory endpoint is
// reachable with our account credentials. It issues no certificate.
func (p *ACMEProvider) VerifyRenewal(domain, email string) error {
	certPath, _ := p.LivePaths(domain)
	if _, err := Inspect(certPath); err != nil {
		return errors.WrapDomain(errors.CodeGeneration, domain, "no renewable certificate", err)
	}
	// Client construction fetches the directory document, which proves
	// the authority is reachable from this host.
	if _, err := p.newClient(email); err != nil {
		return errors.WrapDomain(errors.CodeGeneration, domain, "ACME directory unreachable", err)
	}
	return nil
}

// Renew re-obtains the certificate if it is inside the renewal window,
// or unconditionally when force is set. Scheduling recurring renewal is
// delegated to cron or a systemd timer invoking `cert renew`; see
// RenewalCommand.
func (p *ACMEProvider) Renew(req Request, force bool) (*Bundle, bool, error) {
	if !force && !p.ShouldRenew(req.Domain, time.Now()) {
		return nil, false, nil
	}
	bundle, err := p.Obtain(req)
	if err != nil {
		return nil, false, err
	}
	return bundle, true, nil
}

// RenewalCommand returns the command line an external scheduler should
// run periodically to keep the domain's certificate fresh.
func RenewalCommand(domain string) string {
	return fmt.Sprintf("tlsdeploy cert renew %s", domain)
}

// newClient builds a lego client around the persistent account key,
// registering the account on first use. Issued certificates use
// RSA-2048 keys to match the self-signed path.
func (p *ACMEProvider) newClient(email string) (*lego.Client, error) {
	key, err := p.loadOrCreateAccountKey()
	if err != nil {
		return nil, err
	}

	u := &user{email: email, key: key}
	cfg := lego.NewConfig(u)
	cfg.CADirURL = p.caDirURL
	cfg.Certificate.KeyType = certcrypto.RSA2048

	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "create ACME client", err)
	}

	reg, err := client.Registration.ResolveAccountByKey()
	if err != nil {
		reg, err = client.Registration.Register(registration.RegisterOptions{TermsOfServiceAgreed: true})
		if err != nil {
			return nil, errors.Wrap(errors.CodeGeneration, "register ACME account", err)
		}
	}
	u.registration = reg

	return client, nil
}

// loadOrCreateAccountKey returns the ECDSA P-256 account key, creating
// and persisting one on first use.
func (p *ACMEProvider) loadOrCreateAccountKey() (crypto.PrivateKey, error) {
	keyPath := filepath.Join(p.accountDir, "account.key")

	data, err := os.ReadFile(keyPath)
	if err == nil {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, errors.Wrap(errors.CodeGeneration, "decode account key", nil)
		}
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(errors.CodeGeneration, "parse account key", err)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(errors.CodeGeneration, "read account key", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "generate account key", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "encode account key", err)
	}
	if err := os.MkdirAll(p.accountDir, 0700); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "create account directory", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := writeKeyFile(keyPath, pemData); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "write account key", err)
	}

	logger.Debug("new ACME account key written to %s", keyPath)
	return key, nil
}

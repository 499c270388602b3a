package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

// DefaultValidityDays is used when a request does not specify a validity.
const DefaultValidityDays = 365

const rsaKeyBits = 2048

// SelfSignedProvider generates RSA self-signed certificates in a single
// output directory.
type SelfSignedProvider struct {
	dir string
}

// NewSelfSignedProvider creates a provider writing to dir
// (e.g. /etc/nginx/ssl/self-signed).
func NewSelfSignedProvider(dir string) *SelfSignedProvider {
	return &SelfSignedProvider{dir: dir}
}

// Dir returns the output directory.
func (p *SelfSignedProvider) Dir() string {
	return p.dir
}

// Obtain generates a fresh RSA-2048 key pair and a self-signed
// certificate for the requested domain. The subject-alternative-name
// list always covers the domain itself, a wildcard for its subdomains,
// localhost, and both the server IP and 127.0.0.1, so clients can
// connect through any of those identities without a hostname mismatch.
// Earlier bundles for the same name are overwritten in place.
func (p *SelfSignedProvider) Obtain(req Request) (*Bundle, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	days := req.ValidityDays
	if days == 0 {
		days = DefaultValidityDays
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "generate RSA key", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "generate serial number", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(time.Duration(days) * 24 * time.Hour)

	ipAddresses := []net.IP{net.ParseIP("127.0.0.1")}
	if req.ServerIP != "" {
		ipAddresses = append([]net.IP{net.ParseIP(req.ServerIP)}, ipAddresses...)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: req.Domain},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{req.Domain, "*." + req.Domain, "localhost"},
		IPAddresses:           ipAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "create certificate", err)
	}

	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "create certificate directory", err)
	}

	certPath := filepath.Join(p.dir, req.CertName+".crt")
	keyPath := filepath.Join(p.dir, req.CertName+".key")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	// Key first: if the key cannot be written there is no point in
	// leaving a certificate behind that references nothing.
	if err := writeKeyFile(keyPath, keyPEM); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "write private key", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return nil, errors.Wrap(errors.CodeGeneration, "write certificate", err)
	}

	logger.Info("self-signed certificate written: %s (valid %d days)", certPath, days)

	return &Bundle{
		CertificatePath: certPath,
		PrivateKeyPath:  keyPath,
		NotBefore:       notBefore,
		NotAfter:        notAfter,
		Issuer:          IssuerSelfSigned,
	}, nil
}

// writeKeyFile writes PEM data with owner-only permissions, tightening
// the mode explicitly in case the file already exists with a wider one.
func writeKeyFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("chmod key file: %w", err)
	}
	return nil
}

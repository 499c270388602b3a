package certs

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
)

// Issuer identifies which provider produced a bundle.
type Issuer string

// Supported issuers.
const (
	IssuerSelfSigned Issuer = "selfsigned"
	IssuerACME       Issuer = "acme"
)

// Request describes the certificate an operator wants. CertName is the
// explicit certificate identifier; it is required and never derived
// from the domain.
type Request struct {
	Domain       string
	CertName     string
	ServerIP     string
	ValidityDays int
	Email        string // ACME contact, unused for self-signed
}

// Validate checks that the request carries everything the providers
// need before any side effect occurs.
func (r *Request) Validate() error {
	if r.Domain == "" {
		return errors.Precondition("certificate request: domain is required")
	}
	if r.CertName == "" {
		return errors.Precondition("certificate request: certificate name is required")
	}
	if r.ServerIP != "" && net.ParseIP(r.ServerIP) == nil {
		return errors.Precondition("certificate request: %q is not a valid IP address", r.ServerIP)
	}
	if r.ValidityDays < 0 {
		return errors.Precondition("certificate request: validity days must be positive")
	}
	return nil
}

// Bundle is a certificate/key pair on disk plus the metadata a caller
// needs to reference or audit it.
type Bundle struct {
	CertificatePath string    `json:"certificate_path"`
	PrivateKeyPath  string    `json:"private_key_path"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	Issuer          Issuer    `json:"issuer"`
}

// Info is the parsed content of a certificate file, used by
// `cert inspect` and the audit report.
type Info struct {
	Subject    string    `json:"subject"`
	IssuerName string    `json:"issuer"`
	DNSNames   []string  `json:"dns_names"`
	IPs        []string  `json:"ips"`
	NotBefore  time.Time `json:"not_before"`
	NotAfter   time.Time `json:"not_after"`
	SelfSigned bool      `json:"self_signed"`
}

// DaysLeft returns the whole days until the certificate expires,
// negative if it already has.
func (i *Info) DaysLeft(now time.Time) int {
	return int(i.NotAfter.Sub(now).Hours() / 24)
}

// Inspect parses a PEM certificate file.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s does not contain a PEM certificate", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	ips := make([]string, 0, len(cert.IPAddresses))
	for _, ip := range cert.IPAddresses {
		ips = append(ips, ip.String())
	}

	return &Info{
		Subject:    cert.Subject.CommonName,
		IssuerName: cert.Issuer.CommonName,
		DNSNames:   cert.DNSNames,
		IPs:        ips,
		NotBefore:  cert.NotBefore,
		NotAfter:   cert.NotAfter,
		SelfSigned: cert.Subject.String() == cert.Issuer.String(),
	}, nil
}

package config

import "time"

// Site represents one managed domain: which certificate it uses and
// where its two upstream services listen.
type Site struct {
	Domain       string    `yaml:"domain"`
	CertName     string    `yaml:"cert_name"`
	Issuer       string    `yaml:"issuer"` // selfsigned, acme
	FrontendPort int       `yaml:"frontend_port"`
	BackendPort  int       `yaml:"backend_port"`
	CertPath     string    `yaml:"cert_path,omitempty"`
	KeyPath      string    `yaml:"key_path,omitempty"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// Issuer constants
const (
	IssuerSelfSigned = "selfsigned"
	IssuerACME       = "acme"
)

// ValidIssuers returns all valid certificate issuers
func ValidIssuers() []string {
	return []string{IssuerSelfSigned, IssuerACME}
}

// IsValidIssuer checks if the given issuer is valid
func IsValidIssuer(issuer string) bool {
	for _, valid := range ValidIssuers() {
		if issuer == valid {
			return true
		}
	}
	return false
}

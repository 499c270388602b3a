package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelfSignedObtain(t *testing.T) {
	dir := t.TempDir()
	provider := NewSelfSignedProvider(dir)

	req := Request{
		Domain:       "app.example.com",
		CertName:     "app",
		ServerIP:     "203.0.113.5",
		ValidityDays: 365,
	}

	bundle, err := provider.Obtain(req)
	if err != nil {
		t.Fatalf("Obtain failed: %v", err)
	}

	t.Run("paths", func(t *testing.T) {
		if bundle.CertificatePath != filepath.Join(dir, "app.crt") {
			t.Errorf("unexpected cert path: %s", bundle.CertificatePath)
		}
		if bundle.PrivateKeyPath != filepath.Join(dir, "app.key") {
			t.Errorf("unexpected key path: %s", bundle.PrivateKeyPath)
		}
		if bundle.Issuer != IssuerSelfSigned {
			t.Errorf("unexpected issuer: %s", bundle.Issuer)
		}
	})

	t.Run("validity", func(t *testing.T) {
		got := bundle.NotAfter.Sub(bundle.NotBefore)
		want := 365 * 24 * time.Hour
		if got != want {
			t.Errorf("validity = %v, want %v", got, want)
		}
	})

	t.Run("key permissions", func(t *testing.T) {
		info, err := os.Stat(bundle.PrivateKeyPath)
		if err != nil {
			t.Fatalf("stat key: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("key mode = %o, want 0600", perm)
		}

		certInfo, err := os.Stat(bundle.CertificatePath)
		if err != nil {
			t.Fatalf("stat cert: %v", err)
		}
		if perm := certInfo.Mode().Perm(); perm != 0644 {
			t.Errorf("cert mode = %o, want 0644", perm)
		}
	})

	t.Run("SAN list", func(t *testing.T) {
		cert := parseCert(t, bundle.CertificatePath)

		wantDNS := map[string]bool{"app.example.com": false, "*.app.example.com": false, "localhost": false}
		for _, name := range cert.DNSNames {
			if _, ok := wantDNS[name]; !ok {
				t.Errorf("unexpected DNS SAN: %s", name)
			}
			wantDNS[name] = true
		}
		for name, seen := range wantDNS {
			if !seen {
				t.Errorf("missing DNS SAN: %s", name)
			}
		}

		wantIPs := map[string]bool{"203.0.113.5": false, "127.0.0.1": false}
		for _, ip := range cert.IPAddresses {
			if _, ok := wantIPs[ip.String()]; !ok {
				t.Errorf("unexpected IP SAN: %s", ip)
			}
			wantIPs[ip.String()] = true
		}
		for ip, seen := range wantIPs {
			if !seen {
				t.Errorf("missing IP SAN: %s", ip)
			}
		}
	})

	t.Run("hostname verification", func(t *testing.T) {
		cert := parseCert(t, bundle.CertificatePath)
		for _, name := range []string{"app.example.com", "sub.app.example.com", "localhost", "203.0.113.5", "127.0.0.1"} {
			if err := cert.VerifyHostname(name); err != nil {
				t.Errorf("VerifyHostname(%s) failed: %v", name, err)
			}
		}
	})

	t.Run("key pair matches", func(t *testing.T) {
		if _, err := tls.LoadX509KeyPair(bundle.CertificatePath, bundle.PrivateKeyPath); err != nil {
			t.Errorf("certificate and key do not match: %v", err)
		}
	})
}

func TestSelfSignedObtainTwice(t *testing.T) {
	// Two runs with identical parameters must each produce an
	// independently verifiable bundle; the second run does not reuse
	// the first.
	dir := t.TempDir()
	provider := NewSelfSignedProvider(dir)
	req := Request{Domain: "d.example.com", CertName: "d", ServerIP: "198.51.100.1"}

	first, err := provider.Obtain(req)
	if err != nil {
		t.Fatalf("first Obtain failed: %v", err)
	}
	firstCert := parseCert(t, first.CertificatePath)

	second, err := provider.Obtain(req)
	if err != nil {
		t.Fatalf("second Obtain failed: %v", err)
	}
	secondCert := parseCert(t, second.CertificatePath)

	if firstCert.SerialNumber.Cmp(secondCert.SerialNumber) == 0 {
		t.Error("second run should generate a fresh certificate, not reuse the first")
	}
	if _, err := tls.LoadX509KeyPair(second.CertificatePath, second.PrivateKeyPath); err != nil {
		t.Errorf("second bundle not independently valid: %v", err)
	}
}

func TestSelfSignedDefaults(t *testing.T) {
	provider := NewSelfSignedProvider(t.TempDir())

	bundle, err := provider.Obtain(Request{Domain: "x.example.com", CertName: "x"})
	if err != nil {
		t.Fatalf("Obtain failed: %v", err)
	}
	if got := bundle.NotAfter.Sub(bundle.NotBefore); got != DefaultValidityDays*24*time.Hour {
		t.Errorf("default validity = %v", got)
	}

	// Without a server IP only the loopback address is added.
	cert := parseCert(t, bundle.CertificatePath)
	if len(cert.IPAddresses) != 1 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("unexpected IP SANs: %v", cert.IPAddresses)
	}
}

func TestSelfSignedRequestValidation(t *testing.T) {
	provider := NewSelfSignedProvider(t.TempDir())

	testCases := []struct {
		name string
		req  Request
	}{
		{"missing domain", Request{CertName: "x"}},
		{"missing cert name", Request{Domain: "x.example.com"}},
		{"bad server IP", Request{Domain: "x.example.com", CertName: "x", ServerIP: "not-an-ip"}},
		{"negative validity", Request{Domain: "x.example.com", CertName: "x", ValidityDays: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := provider.Obtain(tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSelfSignedUnwritableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	parent := t.TempDir()
	if err := os.Chmod(parent, 0555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	defer os.Chmod(parent, 0755)

	provider := NewSelfSignedProvider(filepath.Join(parent, "ssl"))
	if _, err := provider.Obtain(Request{Domain: "x.example.com", CertName: "x"}); err == nil {
		t.Error("expected error for unwritable output directory")
	}
}

func parseCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cert: %v", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		t.Fatal("no PEM block in certificate file")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	return cert
}

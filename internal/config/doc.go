// Package config manages the tlsdeploy configuration and the managed
// site definitions stored in YAML format.
//
// Configuration lives in the user's home directory at
// ~/.config/tlsdeploy/config.yaml. It holds server-wide defaults (the
// server's public IP, the ACME contact email, the DNS resolver used for
// precondition checks) and one entry per managed site.
//
// Example config.yaml:
//
//	server_ip: 203.0.113.5
//	email: ops@example.com
//	resolver: 8.8.8.8:53
//	cert_validity_days: 365
//	allow_dns_mismatch: false
//	sites:
//	  app.example.com:
//	    domain: app.example.com
//	    cert_name: app
//	    issuer: selfsigned
//	    frontend_port: 3000
//	    backend_port: 3001
//	    created_at: 2026-08-01T10:00:00Z
//
// The certificate identifier (cert_name) is always explicit: it names
// the files written under the self-signed directory and is never
// guessed from the domain.
//
// # Thread Safety
//
// Config operations are NOT thread-safe. The CLI loads, mutates, and
// saves the config within a single sequential run.
package config

// Package template renders nginx server blocks from embedded templates.
//
// Rendering is pure text substitution: the only input is the parameter
// set and the only output is the rendered string. Every placeholder a
// template uses must have a value before execution starts; a missing
// parameter is a hard error, never a silent empty substitution, because
// an empty proxy target is worse than a failed deploy.
//
// Two templates exist:
//
//   - site: the full pair of server blocks for one domain, an HTTP
//     listener that redirects to HTTPS plus an HTTPS listener that
//     terminates TLS and reverse-proxies /, /api, and /health to the
//     configured upstream ports.
//   - stub: a bare HTTP block serving only the ACME challenge path,
//     used while the first certificate for a domain is being issued.
package template

// Package certs produces certificate/key bundles for a domain, either
// by self-signing or by obtaining one from an ACME authority.
//
// Both providers satisfy the same contract: given a Request they write
// a key and a certificate to their provider-specific location and
// return a Bundle describing the result. The key file is written
// owner-read/write only (0600); the certificate is world-readable
// (0644). Neither provider touches the live nginx configuration.
//
// Self-signed bundles land in one directory as <name>.crt / <name>.key.
// ACME bundles follow the letsencrypt layout:
// <live>/<domain>/fullchain.pem and privkey.pem.
package certs

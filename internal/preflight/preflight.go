// Package preflight runs the precondition checks that must pass before
// the workflow mutates anything: DNS resolution against the expected
// server IP, port-80 reachability for the ACME challenge, and root
// privileges for writes under /etc. All checks are side-effect free, so
// a failed precondition is always safe to retry after fixing it.
package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/miekg/dns"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

const (
	queryTimeout = 5 * time.Second
	dialTimeout  = 5 * time.Second
	maxRetries   = 3
)

// Checker resolves domains against a fixed resolver and probes TCP
// reachability.
type Checker struct {
	resolver string // host:port of the DNS server to query
	client   *dns.Client
	dialer   *net.Dialer
}

// NewChecker creates a checker querying the given resolver
// (e.g. "8.8.8.8:53").
func NewChecker(resolver string) *Checker {
	return &Checker{
		resolver: resolver,
		client:   &dns.Client{Timeout: queryTimeout},
		dialer:   &net.Dialer{Timeout: dialTimeout},
	}
}

// Resolve returns the A and AAAA records for domain. Transient network
// failures are retried with exponential backoff; an authoritative empty
// answer is returned as-is.
func (c *Checker) Resolve(ctx context.Context, domain string) ([]net.IP, error) {
	var ips []net.IP

	operation := func() error {
		ips = ips[:0]
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			msg := new(dns.Msg)
			msg.SetQuestion(dns.Fqdn(domain), qtype)
			msg.RecursionDesired = true

			reply, _, err := c.client.ExchangeContext(ctx, msg, c.resolver)
			if err != nil {
				return fmt.Errorf("query %s for %s: %w", c.resolver, domain, err)
			}
			for _, rr := range reply.Answer {
				switch record := rr.(type) {
				case *dns.A:
					ips = append(ips, record.A)
				case *dns.AAAA:
					ips = append(ips, record.AAAA)
				}
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.Wrap(errors.CodePrecondition, "DNS resolution failed", err)
	}

	logger.Debug("resolved %s via %s: %v", domain, c.resolver, ips)
	return ips, nil
}

// VerifyDNS checks that domain resolves to serverIP. Anything short of
// a matching record is a precondition error, unless allowMismatch is
// set, in which case the discrepancy is logged and accepted; that
// covers a wrong answer, an empty answer, and an unset server IP
// alike. There is no interactive confirmation path: automation either
// allows the mismatch explicitly or the run stops.
func (c *Checker) VerifyDNS(ctx context.Context, domain, serverIP string, allowMismatch bool) error {
	expected := net.ParseIP(serverIP)
	if expected == nil {
		if allowMismatch {
			logger.Warn("no valid server IP configured (%q); skipping DNS verification for %s", serverIP, domain)
			return nil
		}
		return errors.Precondition("server IP %q is not a valid IP address (set server_ip or allow_dns_mismatch)", serverIP)
	}

	ips, err := c.Resolve(ctx, domain)
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		if allowMismatch {
			logger.Warn("%s does not resolve yet; continuing because DNS mismatch is allowed", domain)
			return nil
		}
		return errors.WrapDomain(errors.CodePrecondition, domain,
			"does not resolve to any address (set allow_dns_mismatch to override)",
			errors.ErrDNSMismatch)
	}

	for _, ip := range ips {
		if ip.Equal(expected) {
			return nil
		}
	}

	if allowMismatch {
		logger.Warn("%s resolves to %v, not %s; continuing because DNS mismatch is allowed", domain, ips, serverIP)
		return nil
	}
	return errors.WrapDomain(errors.CodePrecondition, domain,
		fmt.Sprintf("resolves to %v, expected %s (set allow_dns_mismatch to override)", ips, serverIP),
		errors.ErrDNSMismatch)
}

// ProbePort reports whether a TCP connection to host:port succeeds
// within the dial timeout. Used to confirm port 80 is reachable before
// an HTTP-01 challenge.
func (c *Checker) ProbePort(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Precondition("port %d on %s is not reachable: %v", port, host, err)
	}
	_ = conn.Close()
	return nil
}

// geteuid is swappable so tests can simulate both privilege states.
var geteuid = os.Geteuid

// RequireRoot returns an error unless the process runs with effective
// UID 0. Commands writing under /etc call this before doing anything.
func RequireRoot() error {
	if geteuid() != 0 {
		return errors.ErrRootRequired
	}
	return nil
}

package dns

import (
	"context"
	"net"
	"slices"
)

// MockResolver is a Resolver used for testing. Record maps are keyed by FQDN
// with trailing dot.
type MockResolver struct {
	A    map[string][]string
	AAAA map[string][]string

	// Fail contains names whose lookup returns a temporary error (SERVFAIL).
	Fail []string
}

var _ Resolver = MockResolver{}

// ensureFQDN ensures the name ends with a dot.
func ensureFQDN(name string) string {
	if len(name) == 0 || name[len(name)-1] != '.' {
		return name + "."
	}
	return name
}

// LookupIP returns the configured A and AAAA records for the given domain.
func (r MockResolver) LookupIP(ctx context.Context, domain string) ([]net.IP, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fqdn := ensureFQDN(domain)
	if slices.Contains(r.Fail, fqdn) {
		return nil, ErrServFail
	}

	var ips []net.IP
	for _, ip := range r.A[fqdn] {
		ips = append(ips, net.ParseIP(ip))
	}
	for _, ip := range r.AAAA[fqdn] {
		ips = append(ips, net.ParseIP(ip))
	}

	if len(ips) == 0 {
		return nil, ErrNotFound
	}
	return ips, nil
}

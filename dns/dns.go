// Package dns resolves server hostnames for the SMTP dialer.
package dns

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrNotFound indicates the name does not exist (NXDOMAIN) or has no
	// address records.
	ErrNotFound = errors.New("dns: name not found")

	// ErrServFail indicates a temporary server-side failure.
	ErrServFail = errors.New("dns: server failure")

	// ErrRefused indicates the server refused the query.
	ErrRefused = errors.New("dns: query refused")

	// ErrTimeout indicates the query timed out.
	ErrTimeout = errors.New("dns: query timeout")
)

// Resolver turns a hostname into the addresses the dialer can connect to.
type Resolver interface {
	// LookupIP retrieves the A and AAAA records for a domain.
	LookupIP(ctx context.Context, domain string) ([]net.IP, error)
}

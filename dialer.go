package wren

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/boyceby/wren/dns"
)

// Dialer provides methods for establishing SMTP connections.
type Dialer struct {
	Host string
	Port int

	// Resolver resolves Host before dialing. When nil, or when Host is
	// already a literal IP, the address is dialed as given and resolution is
	// left to the operating system.
	Resolver dns.Resolver

	// LocalName is the domain announced in HELO.
	LocalName string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	Logger *slog.Logger
}

// NewDialer creates a new Dialer with sensible defaults.
func NewDialer(host string, port int) *Dialer {
	return &Dialer{
		Host:           host,
		Port:           port,
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   1 * time.Minute,
	}
}

// Dial establishes a new connection and completes the HELO exchange.
func (d *Dialer) Dial() (*Client, error) {
	return d.DialContext(context.Background())
}

// DialContext establishes a new connection with context support and
// completes the HELO exchange.
func (d *Dialer) DialContext(ctx context.Context) (*Client, error) {
	config := &ClientConfig{
		LocalName:      d.LocalName,
		ConnectTimeout: d.ConnectTimeout,
		ReadTimeout:    d.ReadTimeout,
		WriteTimeout:   d.WriteTimeout,
		Logger:         d.Logger,
	}

	client := NewClient(config)

	var err error
	if d.Resolver != nil && net.ParseIP(d.Host) == nil {
		err = d.dialResolved(ctx, client)
	} else {
		err = client.DialContext(ctx, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
	}
	if err != nil {
		return nil, err
	}

	if err := client.Hello(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// dialResolved resolves the host and tries each address in turn.
func (d *Dialer) dialResolved(ctx context.Context, client *Client) error {
	ips, err := d.Resolver.LookupIP(ctx, d.Host)
	if err != nil {
		return fmt.Errorf("smtp: resolve %s: %w", d.Host, err)
	}

	port := strconv.Itoa(d.Port)
	var lastErr error
	for _, ip := range ips {
		lastErr = client.DialContext(ctx, net.JoinHostPort(ip.String(), port))
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// DialAndSend is a convenience method that connects, sends a transaction,
// and disconnects.
func (d *Dialer) DialAndSend(tx *Transaction) error {
	client, err := d.Dial()
	if err != nil {
		return err
	}

	if err := client.Send(tx); err != nil {
		client.Close()
		return err
	}
	return client.Quit()
}

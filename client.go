package wren

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ClientConfig holds configuration for the SMTP client.
type ClientConfig struct {
	// LocalName is the domain announced in HELO (default: "localhost").
	LocalName      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxLineLength  int
	Logger         *slog.Logger
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		LocalName:      "localhost",
		ConnectTimeout: 30 * time.Second,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   1 * time.Minute,
		MaxLineLength:  2048,
	}
}

// ProtocolError reports a server reply that failed to match the grammar the
// conversation expected at some step. There is no recovery: the connection is
// torn down and the error surfaces to the caller.
type ProtocolError struct {
	// Step names the conversation step that failed, e.g. "MAIL FROM".
	Step string

	// Sent is the command line that elicited the reply, empty for the greeting.
	Sent string

	// Received is the raw reply line.
	Received string

	// Err is the underlying reply-grammar failure.
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smtp: protocol violation at %s: unexpected reply %q", e.Step, e.Received)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Client drives one strictly sequential SMTP conversation: send one command,
// block for exactly one reply, validate it against the reply grammar for the
// expected code, proceed. Any mismatched reply is fatal to the connection.
type Client struct {
	config *ClientConfig
	logger *slog.Logger

	mu     sync.Mutex
	conn   net.Conn
	reader *lineReader
	closed bool
}

// NewClient creates a new SMTP client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	if config.LocalName == "" {
		config.LocalName = "localhost"
	}
	if config.MaxLineLength == 0 {
		config.MaxLineLength = 2048
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		config: config,
		logger: logger,
	}
}

// Dial connects to the SMTP server (e.g., "mail.example.com:2525") and reads
// the greeting.
func (c *Client) Dial(address string) error {
	return c.DialContext(context.Background(), address)
}

// DialContext connects to the SMTP server with a context and reads the
// greeting.
func (c *Client) DialContext(ctx context.Context, address string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	connectTimeout := c.config.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: connectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("smtp: dial failed: %w", err)
	}
	return c.startLocked(conn)
}

// Connect takes over an already-connected bidirectional stream and reads the
// greeting. The caller hands over ownership; the client closes the stream.
func (c *Client) Connect(conn net.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	return c.startLocked(conn)
}

func (c *Client) startLocked(conn net.Conn) error {
	c.conn = conn
	c.reader = newLineReader(conn, c.config.MaxLineLength)

	// Greeting arrives unprompted.
	if _, err := c.expectLocked("greeting", "", CodeServiceReady); err != nil {
		c.teardownLocked()
		return err
	}
	return nil
}

// Hello sends HELO and waits for the 250 reply.
func (c *Client) Hello() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNoConnection
	}
	return c.stepLocked("HELO", "HELO "+c.config.LocalName, CodeOK)
}

// Send runs one full mail transaction: MAIL FROM, one RCPT TO per recipient
// in order, DATA, the data lines, the end-of-data marker, each acknowledged
// before the next command goes out. Hello must have succeeded first.
func (c *Client) Send(tx *Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNoConnection
	}
	if len(tx.To) == 0 {
		return ErrNoRecipients
	}

	if err := c.stepLocked("MAIL FROM", "MAIL FROM:"+tx.From.String(), CodeOK); err != nil {
		return err
	}
	for _, rcpt := range tx.To {
		if err := c.stepLocked("RCPT TO", "RCPT TO:"+rcpt.String(), CodeOK); err != nil {
			return err
		}
	}
	if err := c.stepLocked("DATA", "DATA", CodeStartMailInput); err != nil {
		return err
	}

	// Data lines and the end-of-data marker go out unacknowledged; the one
	// 250 arrives after the marker.
	for _, line := range tx.Lines {
		if err := c.writeLineLocked(line); err != nil {
			c.teardownLocked()
			return err
		}
	}
	return c.stepLocked("end of data", ".", CodeOK)
}

// Quit sends QUIT, waits for the 221 reply, and closes the connection.
func (c *Client) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNoConnection
	}
	err := c.stepLocked("QUIT", "QUIT", CodeServiceClosing)
	c.teardownLocked()
	return err
}

// Close closes the connection without the QUIT exchange.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.teardownLocked()
	return nil
}

// stepLocked sends one command line and validates the single reply against
// the grammar for the expected code. Any failure tears the connection down.
func (c *Client) stepLocked(step, command string, code SMTPCode) error {
	if err := c.writeLineLocked(command); err != nil {
		c.teardownLocked()
		return fmt.Errorf("smtp: write %s: %w", step, err)
	}
	if _, err := c.expectLocked(step, command, code); err != nil {
		c.teardownLocked()
		return err
	}
	return nil
}

// expectLocked reads exactly one reply line and validates it.
func (c *Client) expectLocked(step, sent string, code SMTPCode) (string, error) {
	if c.config.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
			return "", err
		}
	}
	line, err := c.reader.ReadLine()
	if err != nil {
		return "", fmt.Errorf("smtp: read %s reply: %w", step, err)
	}

	text, err := ParseReply(NewCursor(line), code)
	if err != nil {
		return "", &ProtocolError{Step: step, Sent: sent, Received: line, Err: err}
	}
	c.logger.Debug("reply", "step", step, "code", int(code), "text", text)
	return text, nil
}

func (c *Client) writeLineLocked(line string) error {
	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) teardownLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
}

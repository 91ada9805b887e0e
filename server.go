package wren

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Server is an SMTP server that handles concurrent connections. Each
// accepted connection runs its own session on its own goroutine; sessions
// share nothing but the delivery sink.
type Server struct {
	config   ServerConfig
	listener net.Listener

	// connections tracks active connections
	connMu      sync.Mutex
	connections map[net.Conn]struct{}
	connCount   atomic.Int64

	// shutdown coordination
	ctx        context.Context
	cancel     context.CancelFunc
	shutdownWg sync.WaitGroup
	closed     atomic.Bool
}

// NewServer creates a new SMTP server with the given configuration.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Hostname == "" {
		return nil, errors.New("smtp: hostname is required")
	}

	// Apply defaults
	if config.Addr == "" {
		config.Addr = ":2525"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Minute
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 1 * time.Minute
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if config.MaxLineLength == 0 {
		config.MaxLineLength = 2048
	}
	if config.Sink == nil {
		config.Sink = NullSink{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:      config,
		connections: make(map[net.Conn]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// ListenAndServe starts the SMTP server on the configured address.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("smtp: failed to listen: %w", err)
	}
	return s.Serve(listener)
}

// Serve accepts connections on the listener and handles them.
func (s *Server) Serve(listener net.Listener) error {
	s.listener = listener

	s.config.Logger.Info("SMTP server started",
		slog.String("addr", listener.Addr().String()),
		slog.String("hostname", s.config.Hostname),
	)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return ErrServerClosed
			}
			s.config.Logger.Error("accept error", slog.Any("error", err))
			continue
		}

		// Check connection limit
		if s.config.MaxConnections > 0 && s.connCount.Load() >= int64(s.config.MaxConnections) {
			s.config.Logger.Warn("connection limit reached",
				slog.String("remote", conn.RemoteAddr().String()),
			)
			_ = conn.Close()
			continue
		}

		s.shutdownWg.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown gracefully shuts down the server: it stops accepting connections
// and waits for in-flight sessions to finish, dropping whatever is still open
// when the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	s.cancel()

	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.closeConnections()
		return ctx.Err()
	}
}

// Close immediately closes the server and all connections.
func (s *Server) Close() error {
	s.closed.Store(true)
	s.cancel()

	if s.listener != nil {
		_ = s.listener.Close()
	}

	s.closeConnections()
	return nil
}

func (s *Server) closeConnections() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.connections {
		_ = conn.Close()
	}
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int64 {
	return s.connCount.Load()
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.shutdownWg.Done()

	// Track connection
	s.connMu.Lock()
	s.connections[conn] = struct{}{}
	s.connMu.Unlock()
	s.connCount.Add(1)

	defer func() {
		s.connMu.Lock()
		delete(s.connections, conn)
		s.connMu.Unlock()
		s.connCount.Add(-1)
		_ = conn.Close()
	}()

	connID := ulid.Make().String()
	logger := s.config.Logger.With(
		slog.String("conn_id", connID),
		slog.String("remote", conn.RemoteAddr().String()),
	)

	logger.Info("client connected")

	session := NewSession(s.config.Hostname, remoteIP(conn.RemoteAddr()), s.config.Sink, logger)

	if err := s.writeResponse(conn, session.Greeting()); err != nil {
		logger.Error("write error", slog.Any("error", err))
		return
	}

	s.sessionLoop(conn, session, logger)

	logger.Info("client disconnected", slog.String("state", session.State().String()))
}

// sessionLoop reads lines off the connection and feeds them to the session
// until the client quits, the stream ends, or something fatal happens.
func (s *Server) sessionLoop(conn net.Conn, session *Session, logger *slog.Logger) {
	reader := newLineReader(conn, s.config.MaxLineLength)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			return
		}

		line, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF || errors.Is(err, net.ErrClosed) {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				logger.Warn("read timeout")
				return
			}
			if errors.Is(err, ErrLineTooLong) {
				_ = s.writeResponse(conn, ResponseSyntaxError())
				return
			}
			logger.Error("read error", slog.Any("error", err))
			return
		}

		resp, done, err := session.Handle(s.ctx, line)
		if err != nil {
			// Delivery failed; answering 250 would be a lie. Drop the
			// connection and keep serving the others.
			return
		}
		if resp != nil {
			if err := s.writeResponse(conn, resp); err != nil {
				logger.Error("write error", slog.Any("error", err))
				return
			}
		}
		if done {
			return
		}
	}
}

// writeResponse sends a single response line to the client.
func (s *Server) writeResponse(conn net.Conn, resp *Response) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
		return err
	}
	_, err := conn.Write([]byte(resp.String() + "\n"))
	return err
}

// remoteIP extracts the bare IP from a network address, falling back to the
// full string form for addresses without a port.
func remoteIP(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

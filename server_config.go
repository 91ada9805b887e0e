package wren

import (
	"log/slog"
	"time"
)

// ServerConfig contains configuration options for the SMTP server.
type ServerConfig struct {
	// Hostname is announced in the greeting and closing responses.
	Hostname string

	// Addr is the listen address for ListenAndServe.
	Addr string

	// Sink receives delivered transactions. NullSink when nil.
	Sink Sink

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxLineLength   int
	MaxConnections  int

	Logger *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":2525",
		ReadTimeout:     5 * time.Minute,
		WriteTimeout:    1 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		MaxLineLength:   2048,
		Logger:          slog.Default(),
	}
}

package wren

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// SessionState tracks where one connection stands in the command sequence.
type SessionState int

const (
	// StateConnected means the greeting has been sent and HELO is expected.
	StateConnected SessionState = iota

	// StateGreeted means HELO was accepted and MAIL FROM is expected.
	StateGreeted

	// StateMail means MAIL FROM was accepted and the first RCPT TO is expected.
	StateMail

	// StateRcpt means at least one RCPT TO was accepted; more RCPT TO or DATA
	// are expected.
	StateRcpt

	// StateData means DATA was accepted; lines accumulate until the
	// end-of-data marker.
	StateData

	// StateQuit means a well-formed QUIT ended the session.
	StateQuit
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateGreeted:
		return "greeted"
	case StateMail:
		return "mail"
	case StateRcpt:
		return "rcpt"
	case StateData:
		return "data"
	case StateQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// endOfData is the line that terminates a data block.
const endOfData = ".\n"

// Session is one connection's server-side state machine. It owns the
// in-progress transaction and never shares state with other sessions; the
// delivery sink is the only collaborator reached from more than one session.
type Session struct {
	hostname string
	remoteIP string
	sink     Sink
	logger   *slog.Logger

	state SessionState
	tx    *Transaction
}

// NewSession returns a session awaiting HELO. hostname is announced in the
// greeting and closing responses; remoteIP is echoed in the HELO reply.
func NewSession(hostname, remoteIP string, sink Sink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = NullSink{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		hostname: hostname,
		remoteIP: remoteIP,
		sink:     sink,
		logger:   logger,
		state:    StateConnected,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return s.state
}

// Greeting returns the banner response sent when the connection opens.
func (s *Session) Greeting() *Response {
	return ResponseServiceReady(s.hostname)
}

// Handle processes one complete line, terminator included, and returns the
// response to write back. done reports that a well-formed QUIT ended the
// session. A non-nil error means delivery failed and the connection can no
// longer be answered truthfully; the caller should drop it.
func (s *Session) Handle(ctx context.Context, line string) (resp *Response, done bool, err error) {
	if s.state == StateData {
		return s.handleDataLine(ctx, line)
	}

	cmd := Classify(line)

	if cmd.Verb == CmdUnknown {
		return ResponseCommandUnrecognized(), false, nil
	}

	// QUIT is legal in every state. A malformed QUIT keeps the state.
	if cmd.Verb == CmdQuit {
		if !cmd.ArgsValid {
			return ResponseSyntaxError(), false, nil
		}
		s.state = StateQuit
		s.tx = nil
		return ResponseServiceClosing(s.hostname), true, nil
	}

	if !s.expects(cmd.Verb) {
		return ResponseBadSequence(), false, nil
	}

	if !cmd.ArgsValid {
		return ResponseSyntaxError(), false, nil
	}

	switch cmd.Verb {
	case CmdHelo:
		s.state = StateGreeted
		return ResponseHello(s.remoteIP), false, nil

	case CmdMail:
		s.tx = NewTransaction()
		s.tx.From = cmd.Path
		s.state = StateMail
		s.logger.Debug("transaction opened", "tx_id", s.tx.ID, "from", cmd.Path.String())
		return ResponseOK(), false, nil

	case CmdRcpt:
		s.tx.AddRecipient(cmd.Path)
		s.state = StateRcpt
		return ResponseOK(), false, nil

	case CmdData:
		s.state = StateData
		return ResponseStartMailInput(), false, nil
	}

	return ResponseBadSequence(), false, nil
}

// expects reports whether the verb fits the current state. QUIT and
// unrecognized lines are handled before this is consulted.
func (s *Session) expects(v Verb) bool {
	switch s.state {
	case StateConnected:
		return v == CmdHelo
	case StateGreeted:
		return v == CmdMail
	case StateMail:
		return v == CmdRcpt
	case StateRcpt:
		return v == CmdRcpt || v == CmdData
	default:
		return false
	}
}

// handleDataLine accumulates one data line, or on the end-of-data marker
// delivers the transaction and resets for the next MAIL FROM.
func (s *Session) handleDataLine(ctx context.Context, line string) (*Response, bool, error) {
	if line != endOfData {
		s.tx.AddLine(strings.TrimSuffix(line, "\n"))
		return nil, false, nil
	}

	tx := s.tx
	s.tx = nil
	s.state = StateGreeted

	if err := s.sink.Deliver(ctx, tx); err != nil {
		s.logger.Error("delivery failed", "tx_id", tx.ID, "error", err)
		return nil, false, err
	}
	s.logger.Info("transaction delivered",
		"tx_id", tx.ID,
		"from", tx.From.String(),
		"recipients", len(tx.To),
		"lines", len(tx.Lines))
	return ResponseOK(), false, nil
}

package wren

import (
	"errors"
	"fmt"
	"regexp"
)

// Grammar production patterns. Every pattern is anchored so Cursor.Consume
// can only ever strip a prefix.
var (
	reWhitespace = regexp.MustCompile(`^[ \t]+`)
	reNullspace  = regexp.MustCompile(`^[ \t]*`)
	reCRLF       = regexp.MustCompile(`^\n`)
	reDomain     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z][A-Za-z0-9]*)*`)
	reString     = regexp.MustCompile(`^[^<>()\[\]\\.,;:@" \t\n]+`)
	reText       = regexp.MustCompile(`^[ -~]+`)

	reHelo      = regexp.MustCompile(`^HELO`)
	reMail      = regexp.MustCompile(`^MAIL`)
	reFromColon = regexp.MustCompile(`^FROM:`)
	reRcpt      = regexp.MustCompile(`^RCPT`)
	reToColon   = regexp.MustCompile(`^TO:`)
	reData      = regexp.MustCompile(`^DATA`)
	reQuit      = regexp.MustCompile(`^QUIT`)

	reAt     = regexp.MustCompile(`^@`)
	reLAngle = regexp.MustCompile(`^<`)
	reRAngle = regexp.MustCompile(`^>`)
	reComma  = regexp.MustCompile(`^,`)

	reReplyTo = map[SMTPCode]*regexp.Regexp{
		CodeServiceReady:   regexp.MustCompile(`^220`),
		CodeServiceClosing: regexp.MustCompile(`^221`),
		CodeOK:             regexp.MustCompile(`^250`),
		CodeStartMailInput: regexp.MustCompile(`^354`),
	}
)

// ParseError reports that input violated the grammar while parsing under a
// named production rule. It is always local to one parse attempt and is
// resolved into a NotRecognizedError or BadArgumentsError before it reaches
// the session or the client driver.
type ParseError struct {
	Production string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("smtp: cannot parse <%s>", e.Production)
}

// NotRecognizedError reports that the leading keyword of a line did not match
// any known command, or matched only as a prefix of a longer token.
type NotRecognizedError struct {
	Production string
}

func (e *NotRecognizedError) Error() string {
	return fmt.Sprintf("smtp: command not recognized as <%s>", e.Production)
}

// BadArgumentsError reports that a command keyword was recognized but the
// content following it violates the grammar. The wrapped error names the
// production where parsing failed.
type BadArgumentsError struct {
	Err error
}

func (e *BadArgumentsError) Error() string {
	return "smtp: syntax error in parameters or arguments: " + e.Err.Error()
}

func (e *BadArgumentsError) Unwrap() error {
	return e.Err
}

func badArguments(err error) error {
	return &BadArgumentsError{Err: err}
}

// notRecognized reports whether err marks a line whose keyword never matched.
func notRecognized(err error) bool {
	var nr *NotRecognizedError
	return errors.As(err, &nr)
}

func parseWhitespace(c *Cursor) error {
	if _, ok := c.Consume(reWhitespace); !ok {
		return &ParseError{Production: "whitespace"}
	}
	return nil
}

func parseNullspace(c *Cursor) {
	// Zero-width match always succeeds.
	c.Consume(reNullspace)
}

func parseCRLF(c *Cursor) error {
	if _, ok := c.Consume(reCRLF); !ok {
		return &ParseError{Production: "CRLF"}
	}
	return nil
}

func parseDomain(c *Cursor) (string, error) {
	domain, ok := c.Consume(reDomain)
	if !ok {
		return "", &ParseError{Production: "domain"}
	}
	return domain, nil
}

func parseLocalPart(c *Cursor) (string, error) {
	s, ok := c.Consume(reString)
	if !ok {
		return "", &ParseError{Production: "string"}
	}
	return s, nil
}

func parseText(c *Cursor) (string, error) {
	s, ok := c.Consume(reText)
	if !ok {
		return "", &ParseError{Production: "arbitrary-text"}
	}
	return s, nil
}

// parseMailbox parses <local-part> "@" <domain>.
func parseMailbox(c *Cursor) (Mailbox, error) {
	local, err := parseLocalPart(c)
	if err != nil {
		return Mailbox{}, err
	}
	if _, ok := c.Consume(reAt); !ok {
		return Mailbox{}, &ParseError{Production: "mailbox"}
	}
	domain, err := parseDomain(c)
	if err != nil {
		return Mailbox{}, err
	}
	return Mailbox{LocalPart: local, Domain: domain}, nil
}

// parsePath parses "<" <mailbox> ">". The same production serves both the
// reverse-path and forward-paths.
func parsePath(c *Cursor) (Path, error) {
	if _, ok := c.Consume(reLAngle); !ok {
		return Path{}, &ParseError{Production: "path"}
	}
	mb, err := parseMailbox(c)
	if err != nil {
		return Path{}, err
	}
	if _, ok := c.Consume(reRAngle); !ok {
		return Path{}, &ParseError{Production: "path"}
	}
	return Path{Mailbox: mb}, nil
}

// atTokenBoundary is the one-character lookahead used after a command keyword
// has been consumed: only end of input, space, tab, or the line terminator
// may follow. Anything else means the keyword was a prefix of a longer,
// unrelated token (HELOX must not be accepted as HELO).
func atTokenBoundary(c *Cursor) bool {
	switch c.First() {
	case 0, ' ', '\t', '\n':
		return true
	}
	return false
}

// ParseHelo parses "HELO" <whitespace> <arbitrary-text> <nullspace> <CRLF>.
// The returned text is the client's stated domain.
func ParseHelo(c *Cursor) (string, error) {
	if _, ok := c.Consume(reHelo); !ok {
		return "", &NotRecognizedError{Production: "helo-msg"}
	}
	if !atTokenBoundary(c) {
		return "", &NotRecognizedError{Production: "helo-msg"}
	}
	if err := parseWhitespace(c); err != nil {
		return "", badArguments(err)
	}
	text, err := parseText(c)
	if err != nil {
		return "", badArguments(err)
	}
	parseNullspace(c)
	if err := parseCRLF(c); err != nil {
		return "", badArguments(err)
	}
	return text, nil
}

// ParseMailFrom parses "MAIL" <whitespace> "FROM:" <nullspace> <reverse-path>
// <nullspace> <CRLF>. A failure anywhere in the keyword portion, including
// the separating whitespace and "FROM:", classifies as not recognized.
func ParseMailFrom(c *Cursor) (Path, error) {
	return parsePathCommand(c, reMail, reFromColon, "mail-from-cmd")
}

// ParseRcptTo parses "RCPT" <whitespace> "TO:" <nullspace> <forward-path>
// <nullspace> <CRLF>.
func ParseRcptTo(c *Cursor) (Path, error) {
	return parsePathCommand(c, reRcpt, reToColon, "rcpt-to-cmd")
}

func parsePathCommand(c *Cursor, verb, colon *regexp.Regexp, production string) (Path, error) {
	if _, ok := c.Consume(verb); !ok {
		return Path{}, &NotRecognizedError{Production: production}
	}
	if err := parseWhitespace(c); err != nil {
		return Path{}, &NotRecognizedError{Production: production}
	}
	if _, ok := c.Consume(colon); !ok {
		return Path{}, &NotRecognizedError{Production: production}
	}
	parseNullspace(c)
	path, err := parsePath(c)
	if err != nil {
		return Path{}, badArguments(err)
	}
	parseNullspace(c)
	if err := parseCRLF(c); err != nil {
		return Path{}, badArguments(err)
	}
	return path, nil
}

// ParseData parses "DATA" <nullspace> <CRLF>.
func ParseData(c *Cursor) error {
	return parseBareCommand(c, reData, "data-cmd")
}

// ParseQuit parses "QUIT" <nullspace> <CRLF>.
func ParseQuit(c *Cursor) error {
	return parseBareCommand(c, reQuit, "quit-cmd")
}

func parseBareCommand(c *Cursor, keyword *regexp.Regexp, production string) error {
	if _, ok := c.Consume(keyword); !ok {
		return &NotRecognizedError{Production: production}
	}
	if !atTokenBoundary(c) {
		return &NotRecognizedError{Production: production}
	}
	parseNullspace(c)
	if err := parseCRLF(c); err != nil {
		return badArguments(err)
	}
	return nil
}

// ParseReply validates a server reply line against the grammar for the given
// code: the numeric code, whitespace, arbitrary text, and the line
// terminator. The reply text is returned on success.
func ParseReply(c *Cursor, code SMTPCode) (string, error) {
	re, ok := reReplyTo[code]
	if !ok {
		return "", fmt.Errorf("smtp: no reply grammar for code %d", code)
	}
	production := fmt.Sprintf("%d-reply", code)
	if _, ok := c.Consume(re); !ok {
		return "", &ParseError{Production: production}
	}
	if err := parseWhitespace(c); err != nil {
		return "", err
	}
	text, err := parseText(c)
	if err != nil {
		return "", err
	}
	if err := parseCRLF(c); err != nil {
		return "", err
	}
	return text, nil
}

// ParseMailboxString parses a complete string as a single mailbox.
// Trailing content after the mailbox is an error.
func ParseMailboxString(s string) (Mailbox, error) {
	c := NewCursor(s)
	mb, err := parseMailbox(c)
	if err != nil {
		return Mailbox{}, err
	}
	if !c.Empty() {
		return Mailbox{}, &ParseError{Production: "mailbox"}
	}
	return mb, nil
}

// ParsePathString parses a complete string as a bracketed path.
func ParsePathString(s string) (Path, error) {
	c := NewCursor(s)
	p, err := parsePath(c)
	if err != nil {
		return Path{}, err
	}
	if !c.Empty() {
		return Path{}, &ParseError{Production: "path"}
	}
	return p, nil
}

// ParseMailboxList parses a comma-separated mailbox list, as entered for the
// forward-paths of an outgoing transaction. Separators are a comma followed
// by optional whitespace.
func ParseMailboxList(s string) ([]Mailbox, error) {
	c := NewCursor(s)
	var boxes []Mailbox
	for {
		mb, err := parseMailbox(c)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, mb)
		if c.Empty() {
			return boxes, nil
		}
		if _, ok := c.Consume(reComma); !ok {
			return nil, &ParseError{Production: "comma-sep-mailboxes"}
		}
		parseNullspace(c)
	}
}

package wren

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Mailbox represents an email address split into its two grammar parts.
type Mailbox struct {
	// LocalPart is the portion before the @ sign.
	LocalPart string `json:"local_part"`

	// Domain is the portion after the @ sign.
	Domain string `json:"domain"`
}

// String returns the address in the standard "local-part@domain" format.
func (m Mailbox) String() string {
	if m.LocalPart == "" && m.Domain == "" {
		return ""
	}
	return m.LocalPart + "@" + m.Domain
}

// Path represents a reverse-path or forward-path: a mailbox in angle
// brackets as it travels in MAIL FROM and RCPT TO commands.
type Path struct {
	Mailbox Mailbox `json:"mailbox"`
}

// IsZero reports whether the path carries no mailbox.
func (p Path) IsZero() bool {
	return p.Mailbox.LocalPart == "" && p.Mailbox.Domain == ""
}

// String returns the path in angle bracket format as used on the wire.
func (p Path) String() string {
	return "<" + p.Mailbox.String() + ">"
}

// Transaction is one in-progress or delivered mail transaction: the
// reverse-path, the forward-paths in arrival order (duplicates allowed), and
// the message data lines in original order, exclusive of the end-of-data
// marker.
type Transaction struct {
	// ID uniquely identifies the transaction for logs and journal records.
	ID string `json:"id"`

	// From is the reverse-path accepted via MAIL FROM.
	From Path `json:"from"`

	// To is the list of forward-paths accepted via RCPT TO.
	To []Path `json:"to"`

	// Lines holds the message data lines, line terminators stripped.
	Lines []string `json:"lines,omitempty"`

	// ReceivedAt is when the transaction was opened.
	ReceivedAt time.Time `json:"received_at"`
}

// NewTransaction creates an empty transaction with a fresh ID.
func NewTransaction() *Transaction {
	return &Transaction{
		ID:         ulid.Make().String(),
		ReceivedAt: time.Now(),
	}
}

// AddRecipient appends a forward-path. Duplicates are kept; arrival order is
// preserved.
func (t *Transaction) AddRecipient(p Path) {
	t.To = append(t.To, p)
}

// AddLine appends one message data line, terminator stripped.
func (t *Transaction) AddLine(line string) {
	t.Lines = append(t.Lines, line)
}

// RecipientDomains returns the distinct recipient domains in first-arrival
// order. Delivery appends one record per domain returned here.
func (t *Transaction) RecipientDomains() []string {
	seen := make(map[string]struct{}, len(t.To))
	domains := make([]string, 0, len(t.To))
	for _, p := range t.To {
		d := p.Mailbox.Domain
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	return domains
}

// Render returns the transaction as text lines for an append-only delivery
// record: the reverse-path, each forward-path in order, the data lines
// verbatim, and a trailing blank line separating records.
func (t *Transaction) Render() []string {
	lines := make([]string, 0, len(t.To)+len(t.Lines)+2)
	lines = append(lines, "From: "+t.From.String())
	for _, p := range t.To {
		lines = append(lines, "To: "+p.String())
	}
	lines = append(lines, t.Lines...)
	lines = append(lines, "")
	return lines
}

// ToJSON serializes the transaction to JSON bytes.
func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

// ToJSONIndent serializes the transaction to pretty-printed JSON bytes.
func (t *Transaction) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// FromJSON deserializes a transaction from JSON bytes.
func FromJSON(data []byte) (*Transaction, error) {
	var t Transaction
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

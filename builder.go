package wren

import (
	"errors"
	"fmt"
	"strings"
)

// TransactionBuilder provides a fluent API for composing outgoing
// transactions. Addresses are validated against the mailbox grammar as they
// are added; Build reports every accumulated problem at once.
type TransactionBuilder struct {
	tx     *Transaction
	errors []error
}

// NewTransactionBuilder creates a new TransactionBuilder instance.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: NewTransaction(),
	}
}

// From sets the reverse-path from a bare "local@domain" address.
func (b *TransactionBuilder) From(address string) *TransactionBuilder {
	mbox, err := ParseMailboxString(address)
	if err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid from address %q: %w", address, err))
		return b
	}
	b.tx.From = Path{Mailbox: mbox}
	return b
}

// FromPath sets the reverse-path directly.
func (b *TransactionBuilder) FromPath(p Path) *TransactionBuilder {
	b.tx.From = p
	return b
}

// To adds recipients from bare "local@domain" addresses.
func (b *TransactionBuilder) To(addresses ...string) *TransactionBuilder {
	for _, addr := range addresses {
		mbox, err := ParseMailboxString(addr)
		if err != nil {
			b.errors = append(b.errors, fmt.Errorf("invalid to address %q: %w", addr, err))
			continue
		}
		b.tx.AddRecipient(Path{Mailbox: mbox})
	}
	return b
}

// ToList adds recipients from a comma-separated address list.
func (b *TransactionBuilder) ToList(list string) *TransactionBuilder {
	mboxes, err := ParseMailboxList(list)
	if err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid recipient list %q: %w", list, err))
		return b
	}
	for _, mbox := range mboxes {
		b.tx.AddRecipient(Path{Mailbox: mbox})
	}
	return b
}

// ToPath adds recipients directly.
func (b *TransactionBuilder) ToPath(paths ...Path) *TransactionBuilder {
	for _, p := range paths {
		b.tx.AddRecipient(p)
	}
	return b
}

// Line appends one message data line, without terminator.
func (b *TransactionBuilder) Line(line string) *TransactionBuilder {
	switch {
	case strings.ContainsRune(line, '\n'):
		b.errors = append(b.errors, fmt.Errorf("data line %q contains a newline", line))
	case line == ".":
		// A bare dot line would terminate the data block early.
		b.errors = append(b.errors, errors.New(`data line "." collides with the end-of-data marker`))
	default:
		b.tx.AddLine(line)
	}
	return b
}

// Lines appends several message data lines.
func (b *TransactionBuilder) Lines(lines ...string) *TransactionBuilder {
	for _, line := range lines {
		b.Line(line)
	}
	return b
}

// Body appends a newline-separated block of text as individual data lines.
func (b *TransactionBuilder) Body(text string) *TransactionBuilder {
	return b.Lines(strings.Split(strings.TrimSuffix(text, "\n"), "\n")...)
}

// Build returns the composed transaction, or every accumulated error.
func (b *TransactionBuilder) Build() (*Transaction, error) {
	errs := b.errors
	if b.tx.From.IsZero() {
		errs = append(errs, errors.New("no sender specified"))
	}
	if len(b.tx.To) == 0 {
		errs = append(errs, ErrNoRecipients)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b.tx, nil
}

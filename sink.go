package wren

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sink receives completed mail transactions. Implementations must tolerate
// concurrent deliveries from independent sessions without interleaving the
// lines of two records.
type Sink interface {
	// Deliver persists one terminated transaction.
	Deliver(ctx context.Context, tx *Transaction) error
}

// NullSink discards every transaction. Useful for tests and for running a
// server whose only job is to exercise the protocol.
type NullSink struct{}

// Deliver discards the transaction.
func (NullSink) Deliver(context.Context, *Transaction) error {
	return nil
}

// ForwardFileSink appends a rendered record to one file per distinct
// recipient domain under a base directory. Appends to the same domain file
// are serialized with a per-domain lock so records from concurrent sessions
// never interleave.
type ForwardFileSink struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewForwardFileSink creates the base directory if needed and returns a sink
// writing domain files beneath it.
func NewForwardFileSink(dir string) (*ForwardFileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("smtp: create forward directory: %w", err)
	}
	return &ForwardFileSink{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Deliver appends the rendered transaction record to the file of every
// distinct recipient domain, in first-arrival order.
func (s *ForwardFileSink) Deliver(ctx context.Context, tx *Transaction) error {
	record := strings.Join(tx.Render(), "\n") + "\n"
	for _, domain := range tx.RecipientDomains() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.appendRecord(domain, record); err != nil {
			return fmt.Errorf("smtp: deliver %s to %s: %w", tx.ID, domain, err)
		}
	}
	return nil
}

func (s *ForwardFileSink) appendRecord(domain, record string) error {
	lock := s.domainLock(domain)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, domain), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(record); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *ForwardFileSink) domainLock(domain string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[domain]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[domain] = lock
	}
	return lock
}

// JournalSink appends every delivered transaction as one MessagePack record
// to a single journal file. Records are self-delimiting, so the journal can
// be read back without framing.
type JournalSink struct {
	mu   sync.Mutex
	path string
}

// NewJournalSink returns a sink appending MessagePack records to path.
func NewJournalSink(path string) (*JournalSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("smtp: create journal directory: %w", err)
	}
	return &JournalSink{path: path}, nil
}

// Deliver encodes the transaction and appends it to the journal.
func (s *JournalSink) Deliver(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := tx.ToMessagePack()
	if err != nil {
		return fmt.Errorf("smtp: encode %s: %w", tx.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("smtp: open journal: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("smtp: append %s: %w", tx.ID, err)
	}
	return f.Close()
}

// ReadJournal decodes every transaction record from a journal file.
func ReadJournal(path string) ([]*Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var txs []*Transaction
	for len(data) > 0 {
		tx := &Transaction{}
		data, err = tx.UnmarshalMsg(data)
		if err != nil {
			return txs, fmt.Errorf("smtp: corrupt journal record %d: %w", len(txs), err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// MultiSink fans one delivery out to several sinks in order, stopping at the
// first failure.
type MultiSink []Sink

// Deliver delivers to each sink in order.
func (m MultiSink) Deliver(ctx context.Context, tx *Transaction) error {
	for _, sink := range m {
		if err := sink.Deliver(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

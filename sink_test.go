package wren

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func deliveredTransaction(t *testing.T, lines ...string) *Transaction {
	t.Helper()
	tx, err := NewTransactionBuilder().
		From("a@x.com").
		To("b@y.com").
		Lines(lines...).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestForwardFileSinkWritesPerDomain(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewForwardFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	tx, err := NewTransactionBuilder().
		From("a@x.com").
		To("b@y.com", "c@z.com", "d@y.com").
		Lines("Hello world").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if err := sink.Deliver(context.Background(), tx); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	for _, domain := range []string{"y.com", "z.com"} {
		data, err := os.ReadFile(filepath.Join(dir, domain))
		if err != nil {
			t.Fatalf("read %s: %v", domain, err)
		}
		want := strings.Join([]string{
			"From: <a@x.com>",
			"To: <b@y.com>",
			"To: <c@z.com>",
			"To: <d@y.com>",
			"Hello world",
			"",
		}, "\n") + "\n"
		if string(data) != want {
			t.Errorf("%s record = %q, want %q", domain, data, want)
		}
	}
}

func TestForwardFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewForwardFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	first := deliveredTransaction(t, "first")
	second := deliveredTransaction(t, "second")
	if err := sink.Deliver(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if err := sink.Deliver(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "y.com"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "first") || !strings.Contains(content, "second") {
		t.Errorf("append lost a record: %q", content)
	}
	if strings.Index(content, "first") > strings.Index(content, "second") {
		t.Error("records out of order")
	}
}

func TestForwardFileSinkConcurrentDeliveriesDoNotInterleave(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewForwardFileSink(dir)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := deliveredTransaction(t, "line one", "line two", "line three")
			if err := sink.Deliver(context.Background(), tx); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(filepath.Join(dir, "y.com"))
	if err != nil {
		t.Fatal(err)
	}

	// Every record must appear intact: records never interleave.
	record := strings.Join([]string{
		"From: <a@x.com>",
		"To: <b@y.com>",
		"line one",
		"line two",
		"line three",
		"",
	}, "\n") + "\n"
	if got := strings.Count(string(data), record); got != writers {
		t.Errorf("found %d intact records, want %d", got, writers)
	}
}

func TestJournalSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.msgpack")
	sink, err := NewJournalSink(path)
	if err != nil {
		t.Fatal(err)
	}

	first := deliveredTransaction(t, "first message")
	second := deliveredTransaction(t, "second message")
	for _, tx := range []*Transaction{first, second} {
		if err := sink.Deliver(context.Background(), tx); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}

	txs, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("read %d records, want 2", len(txs))
	}
	if txs[0].ID != first.ID || txs[1].ID != second.ID {
		t.Errorf("IDs = %q, %q; want %q, %q", txs[0].ID, txs[1].ID, first.ID, second.ID)
	}
	if txs[0].From.String() != "<a@x.com>" {
		t.Errorf("from = %q", txs[0].From.String())
	}
	if len(txs[1].Lines) != 1 || txs[1].Lines[0] != "second message" {
		t.Errorf("lines = %v", txs[1].Lines)
	}
}

func TestMultiSinkStopsOnFirstFailure(t *testing.T) {
	good := &captureSink{}
	bad := &captureSink{err: os.ErrPermission}
	after := &captureSink{}

	sink := MultiSink{good, bad, after}
	err := sink.Deliver(context.Background(), deliveredTransaction(t, "x"))
	if err == nil {
		t.Fatal("expected failure from middle sink")
	}
	if len(good.delivered()) != 1 {
		t.Error("first sink skipped")
	}
	if len(after.delivered()) != 0 {
		t.Error("delivery continued past the failure")
	}
}

func TestNullSink(t *testing.T) {
	if err := (NullSink{}).Deliver(context.Background(), deliveredTransaction(t, "x")); err != nil {
		t.Fatal(err)
	}
}

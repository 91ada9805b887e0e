package wren

import (
	"errors"
	"io"
	"testing"
)

// chunkReader yields its script one slice per Read call, regardless of the
// caller's buffer size, simulating arbitrary network chunking.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func chunks(parts ...string) *chunkReader {
	r := &chunkReader{}
	for _, p := range parts {
		r.chunks = append(r.chunks, []byte(p))
	}
	return r
}

func readAllLines(t *testing.T, lr *lineReader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := lr.ReadLine()
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestLineReaderSplitsMultiLineChunk(t *testing.T) {
	lr := newLineReader(chunks("HELO a\nMAIL FROM:<a@x.com>\nQUIT\n"), 0)
	got := readAllLines(t, lr)
	want := []string{"HELO a\n", "MAIL FROM:<a@x.com>\n", "QUIT\n"}
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLineReaderJoinsSplitLine(t *testing.T) {
	lr := newLineReader(chunks("HE", "LO clie", "nt.example", "\n"), 0)
	line, err := lr.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if line != "HELO client.example\n" {
		t.Errorf("line = %q", line)
	}
}

func TestLineReaderMixedBoundaries(t *testing.T) {
	lr := newLineReader(chunks("first\nsec", "ond\nthird\nfou", "rth\n"), 0)
	got := readAllLines(t, lr)
	want := []string{"first\n", "second\n", "third\n", "fourth\n"}
	if len(got) != len(want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLineReaderEmptyLines(t *testing.T) {
	lr := newLineReader(chunks("\n\nx\n"), 0)
	got := readAllLines(t, lr)
	if len(got) != 3 || got[0] != "\n" || got[1] != "\n" || got[2] != "x\n" {
		t.Errorf("lines = %q", got)
	}
}

func TestLineReaderUnterminatedTail(t *testing.T) {
	lr := newLineReader(chunks("complete\nincomplete"), 0)
	line, err := lr.ReadLine()
	if err != nil || line != "complete\n" {
		t.Fatalf("first line = %q, %v", line, err)
	}
	if _, err := lr.ReadLine(); err != io.ErrUnexpectedEOF {
		t.Errorf("err = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestLineReaderMaxLine(t *testing.T) {
	lr := newLineReader(chunks("aaaaaaaaaa\n"), 5)
	if _, err := lr.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("err = %v, want ErrLineTooLong", err)
	}

	// Over-limit input without a terminator must not buffer forever.
	lr = newLineReader(chunks("aaaaaaaaaa"), 5)
	if _, err := lr.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Errorf("err = %v, want ErrLineTooLong", err)
	}
}

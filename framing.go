package wren

import (
	"bytes"
	"io"
)

// lineReader frames newline-terminated lines out of a byte stream. It reads
// from the underlying connection in arbitrary-sized chunks into a buffer and
// pops exactly one line, terminator included, per call. The buffer is drained
// completely before more bytes are requested, so a chunk carrying several
// lines yields them one at a time without touching the connection again. The
// same framing applies to command lines and data lines.
type lineReader struct {
	r       io.Reader
	buf     []byte
	chunk   []byte
	maxLine int
}

const readChunkSize = 1024

func newLineReader(r io.Reader, maxLine int) *lineReader {
	return &lineReader{
		r:       r,
		chunk:   make([]byte, readChunkSize),
		maxLine: maxLine,
	}
}

// ReadLine returns the next complete line including its newline terminator.
// It blocks reading the connection only when the buffer holds no complete
// line. A stream ending without a terminator yields io.ErrUnexpectedEOF if
// bytes remain buffered, io.EOF otherwise.
func (lr *lineReader) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(lr.buf, '\n'); i >= 0 {
			line := string(lr.buf[:i+1])
			lr.buf = lr.buf[i+1:]
			if lr.maxLine > 0 && len(line) > lr.maxLine {
				return "", ErrLineTooLong
			}
			return line, nil
		}
		if lr.maxLine > 0 && len(lr.buf) > lr.maxLine {
			return "", ErrLineTooLong
		}

		n, err := lr.r.Read(lr.chunk)
		if n > 0 {
			lr.buf = append(lr.buf, lr.chunk[:n]...)
			continue
		}
		if err != nil {
			if err == io.EOF && len(lr.buf) > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
	}
}

package wren

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// MessagePack encoding of delivered transaction records, written by hand
// against the msgp runtime. Paths travel in their wire form ("<local@domain>")
// and are re-parsed through the grammar on decode, so a journal can only ever
// hold records that round-trip through the same productions the server
// accepted them with.

// MarshalMsg implements msgp.Marshaler, appending the encoded transaction to b.
func (t *Transaction) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 5)

	b = msgp.AppendString(b, "id")
	b = msgp.AppendString(b, t.ID)

	b = msgp.AppendString(b, "from")
	b = msgp.AppendString(b, t.From.String())

	b = msgp.AppendString(b, "to")
	b = msgp.AppendArrayHeader(b, uint32(len(t.To)))
	for _, p := range t.To {
		b = msgp.AppendString(b, p.String())
	}

	b = msgp.AppendString(b, "lines")
	b = msgp.AppendArrayHeader(b, uint32(len(t.Lines)))
	for _, line := range t.Lines {
		b = msgp.AppendString(b, line)
	}

	b = msgp.AppendString(b, "received_at")
	b = msgp.AppendTime(b, t.ReceivedAt)

	return b, nil
}

// Msgsize implements msgp.Sizer, returning an upper bound on the encoded size.
func (t *Transaction) Msgsize() int {
	size := msgp.MapHeaderSize
	size += msgp.StringPrefixSize + len("id") + msgp.StringPrefixSize + len(t.ID)
	size += msgp.StringPrefixSize + len("from") + msgp.StringPrefixSize + len(t.From.String())
	size += msgp.StringPrefixSize + len("to") + msgp.ArrayHeaderSize
	for _, p := range t.To {
		size += msgp.StringPrefixSize + len(p.String())
	}
	size += msgp.StringPrefixSize + len("lines") + msgp.ArrayHeaderSize
	for _, line := range t.Lines {
		size += msgp.StringPrefixSize + len(line)
	}
	size += msgp.StringPrefixSize + len("received_at") + msgp.TimeSize
	return size
}

// UnmarshalMsg implements msgp.Unmarshaler, decoding one transaction from b
// and returning the remaining bytes.
func (t *Transaction) UnmarshalMsg(b []byte) ([]byte, error) {
	fields, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}

	for i := uint32(0); i < fields; i++ {
		var key []byte
		key, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, err
		}

		switch string(key) {
		case "id":
			t.ID, b, err = msgp.ReadStringBytes(b)
			if err != nil {
				return b, err
			}
		case "from":
			var raw string
			raw, b, err = msgp.ReadStringBytes(b)
			if err != nil {
				return b, err
			}
			t.From, err = ParsePathString(raw)
			if err != nil {
				return b, fmt.Errorf("invalid reverse-path %q: %w", raw, err)
			}
		case "to":
			var n uint32
			n, b, err = msgp.ReadArrayHeaderBytes(b)
			if err != nil {
				return b, err
			}
			t.To = make([]Path, 0, n)
			for j := uint32(0); j < n; j++ {
				var raw string
				raw, b, err = msgp.ReadStringBytes(b)
				if err != nil {
					return b, err
				}
				p, err := ParsePathString(raw)
				if err != nil {
					return b, fmt.Errorf("invalid forward-path %q: %w", raw, err)
				}
				t.To = append(t.To, p)
			}
		case "lines":
			var n uint32
			n, b, err = msgp.ReadArrayHeaderBytes(b)
			if err != nil {
				return b, err
			}
			t.Lines = make([]string, 0, n)
			for j := uint32(0); j < n; j++ {
				var line string
				line, b, err = msgp.ReadStringBytes(b)
				if err != nil {
					return b, err
				}
				t.Lines = append(t.Lines, line)
			}
		case "received_at":
			t.ReceivedAt, b, err = msgp.ReadTimeBytes(b)
			if err != nil {
				return b, err
			}
		default:
			b, err = msgp.Skip(b)
			if err != nil {
				return b, err
			}
		}
	}

	return b, nil
}

// ToMessagePack serializes the transaction to MessagePack bytes.
func (t *Transaction) ToMessagePack() ([]byte, error) {
	return t.MarshalMsg(make([]byte, 0, t.Msgsize()))
}

// FromMessagePack deserializes a transaction from MessagePack bytes.
func FromMessagePack(data []byte) (*Transaction, error) {
	var t Transaction
	if _, err := t.UnmarshalMsg(data); err != nil {
		return nil, err
	}
	return &t, nil
}

package wren

import (
	"regexp"
	"testing"
)

func TestCursorConsume(t *testing.T) {
	re := regexp.MustCompile(`^HELO`)

	c := NewCursor("HELO there\n")
	matched, ok := c.Consume(re)
	if !ok {
		t.Fatal("expected HELO to match")
	}
	if matched != "HELO" {
		t.Errorf("matched = %q, want %q", matched, "HELO")
	}
	if c.Rest() != " there\n" {
		t.Errorf("rest = %q, want %q", c.Rest(), " there\n")
	}

	// A failed consume must not advance.
	if _, ok := c.Consume(re); ok {
		t.Fatal("expected second HELO not to match")
	}
	if c.Rest() != " there\n" {
		t.Errorf("rest after failed consume = %q, want unchanged", c.Rest())
	}
}

func TestCursorConsumeOnlyMatchesPrefix(t *testing.T) {
	c := NewCursor("xxHELO\n")
	if _, ok := c.Consume(regexp.MustCompile(`^HELO`)); ok {
		t.Fatal("anchored pattern must not match mid-input")
	}
}

func TestCursorFirstAndEmpty(t *testing.T) {
	c := NewCursor("a")
	if c.Empty() {
		t.Fatal("cursor with input should not be empty")
	}
	if c.First() != 'a' {
		t.Errorf("First() = %q, want 'a'", c.First())
	}

	c.Consume(regexp.MustCompile(`^a`))
	if !c.Empty() {
		t.Fatal("cursor should be empty after consuming everything")
	}
	if c.First() != 0 {
		t.Errorf("First() on empty cursor = %q, want 0", c.First())
	}
}

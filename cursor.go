package wren

import "regexp"

// Cursor is a mutable view over the unconsumed suffix of a message string.
// A Cursor is created per parse attempt and discarded afterwards; consumption
// only ever removes a matched prefix, it never inserts or reorders content.
type Cursor struct {
	rest string
}

// NewCursor creates a Cursor positioned at the start of input.
func NewCursor(input string) *Cursor {
	return &Cursor{rest: input}
}

// Consume attempts to match re anchored at the start of the remaining text.
// On success it returns the matched text and advances the cursor past it.
// On failure the cursor is left unchanged and ok is false.
//
// The patterns used with Consume must be anchored with "^"; this is the only
// primitive the grammar layer builds on.
func (c *Cursor) Consume(re *regexp.Regexp) (matched string, ok bool) {
	loc := re.FindStringIndex(c.rest)
	if loc == nil {
		return "", false
	}
	matched = c.rest[:loc[1]]
	c.rest = c.rest[loc[1]:]
	return matched, true
}

// Empty reports whether the cursor has consumed all input.
func (c *Cursor) Empty() bool {
	return c.rest == ""
}

// First returns the next unconsumed byte, or zero if the cursor is empty.
// Used for one-character lookahead when deciding between the two command
// error classes.
func (c *Cursor) First() byte {
	if c.rest == "" {
		return 0
	}
	return c.rest[0]
}

// Rest returns the unconsumed suffix.
func (c *Cursor) Rest() string {
	return c.rest
}

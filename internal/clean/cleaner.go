// Package clean normalizes free-text columns of CRM exports before they are written to the database.
package clean

import (
	"fmt"
	"strings"

	"github.com/vvka-141/crmingest/internal/table"
)

// DefaultBadChars is the set of characters stripped from text columns:
// NUL, newline, carriage return, tab, single and double quote, backslash, percent, underscore and semicolon.
const DefaultBadChars = "\x00\n\r\t'\"\\%_;"

// Cleaner replaces every problematic character with a single space and trims the result.
// Consecutive problematic characters are not collapsed.
type Cleaner struct {
	bad map[rune]struct{}
}

// New returns a Cleaner for the given set of problematic characters.
// A plain space in the set is ignored since it is the replacement character.
func New(chars string) *Cleaner {
	c := &Cleaner{bad: make(map[rune]struct{}, len(chars))}
	for _, r := range chars {
		if r == ' ' {
			continue
		}
		c.bad[r] = struct{}{}
	}
	return c
}

// Default returns a Cleaner using DefaultBadChars.
func Default() *Cleaner {
	return New(DefaultBadChars)
}

// String cleans a single value.
func (c *Cleaner) String(s string) string {
	s = strings.Map(func(r rune) rune {
		if _, ok := c.bad[r]; ok {
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Columns cleans every cell of the named columns in place.
// If any column is missing, the table is left unmodified and the error wraps table.ErrUnknownColumn.
func (c *Cleaner) Columns(t *table.Table, cols ...string) error {
	if err := t.Map(c.String, cols...); err != nil {
		return fmt.Errorf("clean columns: %w", err)
	}
	return nil
}

package model

import (
	"fmt"
	"strings"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// RowError describes one unparsable cell.
type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Column, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// RowErrors collects every unparsable cell of a file. It matches crmingest.ErrInvalidSource.
type RowErrors []RowError

func (es RowErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d invalid value(s)", len(es))
	for i, e := range es {
		if i == crmingest.MaxRowErrorsShown {
			fmt.Fprintf(&b, "\n  ... and %d more", len(es)-i)
			break
		}
		b.WriteString("\n  ")
		b.WriteString(e.Error())
	}
	return b.String()
}

func (es RowErrors) Is(target error) bool {
	return target == crmingest.ErrInvalidSource
}

func (es RowErrors) orNil() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

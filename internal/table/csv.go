package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const bom = "\ufeff"

// Read parses a delimited file. The first record is the header; blank records are skipped.
// Header cells are trimmed and a leading UTF-8 byte order mark is removed.
func Read(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file: missing header")
		}
		return nil, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		t.Append(line, rec...)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Write renders the table as a delimited file with a header row.
func Write(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

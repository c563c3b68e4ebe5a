package table

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(t *Table) [][]string {
	out := make([][]string, t.Len())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

func TestRead_CommaSeparated(t *testing.T) {
	in := "\ufeffName, Email Address\nJane Doe,jane@example.com\n\n,\n\"Smith, Bob\",bob@example.com\n"

	tbl, err := Read(strings.NewReader(in), ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Email Address"}, tbl.Header())
	want := [][]string{
		{"Jane Doe", "jane@example.com"},
		{"Smith, Bob", "bob@example.com"},
	}
	if diff := cmp.Diff(want, rows(tbl)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, tbl.Line(0))
	assert.Equal(t, 5, tbl.Line(1))
}

func TestRead_TabSeparatedWithRaggedRows(t *testing.T) {
	in := "Invoice #\tClient Name\tTotal\n1001\tAcme\n1002\tGlobex\t10.00\textra\n"

	tbl, err := Read(strings.NewReader(in), '\t')
	require.NoError(t, err)

	want := [][]string{
		{"1001", "Acme", ""},
		{"1002", "Globex", "10.00"},
	}
	if diff := cmp.Diff(want, rows(tbl)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), ',')
	assert.Error(t, err)
}

func TestRename(t *testing.T) {
	tbl := New("Name", " email address ", "Untouched")
	tbl.Append(0, "a", "b", "c")

	tbl.Rename(map[string]string{"Name": "full_name", "Email Address": "email_address", "Missing": "x"})

	assert.Equal(t, []string{"full_name", "email_address", "Untouched"}, tbl.Header())
	assert.Equal(t, "b", tbl.Get(0, "email_address"))
}

func TestEnsureColumns(t *testing.T) {
	tbl := New("full_name")
	tbl.Append(0, "Jane")

	added := tbl.EnsureColumns("full_name", "tax", "total")

	assert.Equal(t, []string{"tax", "total"}, added)
	assert.Equal(t, []string{"Jane", "", ""}, tbl.Row(0))
	assert.Nil(t, tbl.EnsureColumns("tax"))
}

func TestMap_UnknownColumnLeavesTableUntouched(t *testing.T) {
	tbl := New("a", "b")
	tbl.Append(0, "x", "y")

	err := tbl.Map(strings.ToUpper, "a", "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
	assert.Equal(t, []string{"x", "y"}, tbl.Row(0))

	require.NoError(t, tbl.Map(strings.ToUpper, "a"))
	assert.Equal(t, []string{"X", "y"}, tbl.Row(0))
}

func TestRead_ByteOrderMarkBeforePaddedHeader(t *testing.T) {
	in := "\ufeff Name ,Email Address\nJane Doe,jane@example.com\n"

	tbl, err := Read(strings.NewReader(in), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Email Address"}, tbl.Header())

	tbl.Rename(map[string]string{"Name": "full_name"})
	assert.Equal(t, "Jane Doe", tbl.Get(0, "full_name"))
}

func TestWrite(t *testing.T) {
	tbl := New("full_name", "email_address")
	tbl.Append(0, "Doe, Jane", "jane@example.com")

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl, ','))

	assert.Equal(t, "full_name,email_address\n\"Doe, Jane\",jane@example.com\n", buf.String())
}

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/crmingest/internal/table"
	"github.com/vvka-141/crmingest/pkg/crmingest"
)

func ptr(v int64) *int64 { return &v }

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-07-03", "2025-07-03"},
		{"07/03/2025", "2025-07-03"},
		{"7/3/2025", "2025-07-03"},
		{"Jul 3, 2025", "2025-07-03"},
		{"2025-07-03 14:30:00", "2025-07-03"},
		{"2025-07-03T14:30:00Z", "2025-07-03"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}

	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"1234.5", "1234.5", true},
		{"$1,234.56", "1234.56", true},
		{"(12.50)", "-12.5", true},
		{"$(12.50)", "-12.5", true},
		{"( $1,000.00 )", "-1000", true},
		{"-$3.00", "-3", true},
		{"0", "0", true},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got.Decimal), "got %s", got.Decimal)
			}
		})
	}

	_, err := ParseAmount("twelve")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	v, err := ParseID("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), *v)

	v, err = ParseID("678.0")
	require.NoError(t, err)
	assert.Equal(t, int64(678), *v)

	v, err = ParseID("")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseID("12.5")
	assert.Error(t, err)
}

func TestMapping(t *testing.T) {
	m := Mapping(crmingest.EntityEstimates, map[string]string{"Quote No": ColEstimateNumber})

	assert.Equal(t, ColEstimateNumber, m["Estimate #"])
	assert.Equal(t, ColTax, m["Sales tax"])
	assert.Equal(t, ColEstimateNumber, m["Quote No"])
	assert.Contains(t, Required(crmingest.EntityInvoices), ColPaymentReceived)
	assert.Equal(t, []string{ColFullName}, CleanedColumns(crmingest.EntityInvoices))
	assert.Len(t, CleanedColumns(crmingest.EntityClients), 7)
}

func TestParseEstimates_CollectsRowErrors(t *testing.T) {
	tbl := table.New(Required(crmingest.EntityEstimates)...)
	tbl.Append(2, "E-1", "Jane Doe", "100", "8", "108", "2025-07-01", "2025-06-30")
	tbl.Append(3, "E-2", "Bob", "abc", "", "", "not a date", "")
	ingested := DateOf(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	out, err := ParseEstimates(tbl, ingested)

	require.Error(t, err)
	assert.True(t, errors.Is(err, crmingest.ErrInvalidSource))
	var rowErrs RowErrors
	require.True(t, errors.As(err, &rowErrs))
	require.Len(t, rowErrs, 2)
	assert.Equal(t, 3, rowErrs[0].Line)
	assert.Equal(t, ColSubtotal, rowErrs[0].Column)
	assert.Equal(t, ColDateIssued, rowErrs[1].Column)

	require.Len(t, out, 2)
	assert.Equal(t, "E-1", out[0].Number)
	assert.Equal(t, "2025-06-30", out[0].DateCreated.String())
	assert.Equal(t, ingested, out[0].IngestedDate)
	assert.False(t, out[1].Tax.Valid)
}

func TestParseInvoices(t *testing.T) {
	tbl := table.New(Required(crmingest.EntityInvoices)...)
	tbl.Append(2, "I-9", "Acme", "10", "1", "11", "7/2/2025", "7/1/2025", "$11.00")

	out, err := ParseInvoices(tbl, Date{})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "I-9", out[0].Number)
	assert.True(t, out[0].PaymentReceivedLessRefunds.Decimal.Equal(decimal.NewFromInt(11)))
	assert.Equal(t, 2, out[0].Line)
}

func TestParseClients(t *testing.T) {
	tbl := table.New(Required(crmingest.EntityClients)...)
	tbl.Append(4, "Jane Doe", "jane@example.com", "555", "", "1 Main", "", "Springfield", "IL", "62701", "", "42")

	out, err := ParseClients(tbl, Date{})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, SourceExport, out[0].Source)
	assert.Equal(t, int64(42), *out[0].JoistClientID)
	assert.Equal(t, "Springfield", out[0].City)
}

func TestDedupeClients(t *testing.T) {
	in := []Client{
		{FullName: "Jane", JoistClientID: ptr(1), Line: 2},
		{FullName: "Bob", Line: 3},
		{FullName: "Jane", JoistClientID: ptr(7), Line: 4},
		{FullName: "Bob", JoistClientID: ptr(2), Line: 5},
		{FullName: "Jane", JoistClientID: ptr(7), Line: 6},
	}

	kept, dups := DedupeClients(in)

	require.Len(t, kept, 2)
	assert.Equal(t, "Jane", kept[0].FullName)
	assert.Equal(t, 4, kept[0].Line)
	assert.Equal(t, "Bob", kept[1].FullName)
	assert.Equal(t, 5, kept[1].Line)

	var dupLines []int
	for _, d := range dups {
		dupLines = append(dupLines, d.Line)
	}
	assert.Equal(t, []int{2, 3, 6}, dupLines)
}

func TestDate(t *testing.T) {
	a := DateOf(time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC))
	b := DateOf(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "2025-01-02", a.String())
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, a.Before(Date{}))
	assert.False(t, Date{}.Before(a))
}

package model

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vvka-141/crmingest/internal/table"
)

type rowParser struct {
	t    *table.Table
	i    int
	errs *RowErrors
}

func (p rowParser) text(col string) string {
	return strings.TrimSpace(p.t.Get(p.i, col))
}

func (p rowParser) date(col string) Date {
	d, err := ParseDate(p.t.Get(p.i, col))
	if err != nil {
		*p.errs = append(*p.errs, RowError{Line: p.t.Line(p.i), Column: col, Err: err})
	}
	return d
}

func (p rowParser) amount(col string) decimal.NullDecimal {
	a, err := ParseAmount(p.t.Get(p.i, col))
	if err != nil {
		*p.errs = append(*p.errs, RowError{Line: p.t.Line(p.i), Column: col, Err: err})
	}
	return a
}

func (p rowParser) id(col string) *int64 {
	v, err := ParseID(p.t.Get(p.i, col))
	if err != nil {
		*p.errs = append(*p.errs, RowError{Line: p.t.Line(p.i), Column: col, Err: err})
	}
	return v
}

// ParseClients converts a renamed and cleaned clients table into records.
// The error, if any, is a RowErrors listing every bad cell.
func ParseClients(t *table.Table, ingested Date) ([]Client, error) {
	var errs RowErrors
	out := make([]Client, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		p := rowParser{t: t, i: i, errs: &errs}
		out = append(out, Client{
			FullName:      p.text(ColFullName),
			EmailAddress:  p.text(ColEmailAddress),
			PhoneMobile:   p.text(ColPhoneMobile),
			PhoneOther:    p.text(ColPhoneOther),
			Address:       p.text(ColAddress),
			Address2:      p.text(ColAddress2),
			City:          p.text(ColCity),
			StateProvince: p.text(ColStateProvince),
			ZipPostalCode: p.text(ColZipPostalCode),
			PrivateNotes:  p.text(ColPrivateNotes),
			JoistClientID: p.id(ColJoistClientID),
			Source:        SourceExport,
			IngestedDate:  ingested,
			Line:          t.Line(i),
		})
	}
	return out, errs.orNil()
}

// ParseEstimates converts a renamed and cleaned estimates table into records.
func ParseEstimates(t *table.Table, ingested Date) ([]Estimate, error) {
	var errs RowErrors
	out := make([]Estimate, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		p := rowParser{t: t, i: i, errs: &errs}
		out = append(out, Estimate{
			Number:       p.text(ColEstimateNumber),
			FullName:     p.text(ColFullName),
			Subtotal:     p.amount(ColSubtotal),
			Tax:          p.amount(ColTax),
			Total:        p.amount(ColTotal),
			DateIssued:   p.date(ColDateIssued),
			DateCreated:  p.date(ColDateCreated),
			IngestedDate: ingested,
			Line:         t.Line(i),
		})
	}
	return out, errs.orNil()
}

// ParseInvoices converts a renamed and cleaned invoices table into records.
func ParseInvoices(t *table.Table, ingested Date) ([]Invoice, error) {
	var errs RowErrors
	out := make([]Invoice, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		p := rowParser{t: t, i: i, errs: &errs}
		out = append(out, Invoice{
			Number:                     p.text(ColInvoiceNumber),
			FullName:                   p.text(ColFullName),
			Subtotal:                   p.amount(ColSubtotal),
			Tax:                        p.amount(ColTax),
			Total:                      p.amount(ColTotal),
			DateIssued:                 p.date(ColDateIssued),
			DateCreated:                p.date(ColDateCreated),
			PaymentReceivedLessRefunds: p.amount(ColPaymentReceived),
			IngestedDate:               ingested,
			Line:                       t.Line(i),
		})
	}
	return out, errs.orNil()
}

// DedupeClients keeps one client per full name: the one with the highest
// Joist client id (a missing id ranks lowest; ties keep the earlier row).
// Discarded rows are returned separately, in input order.
// Kept clients are returned in order of each name's first appearance.
func DedupeClients(clients []Client) (kept, dups []Client) {
	best := make(map[string]int, len(clients))
	var order []string
	for i, c := range clients {
		j, seen := best[c.FullName]
		if !seen {
			best[c.FullName] = i
			order = append(order, c.FullName)
			continue
		}
		if higherID(c.JoistClientID, clients[j].JoistClientID) {
			best[c.FullName] = i
		}
	}
	winners := make(map[int]bool, len(best))
	for _, name := range order {
		winners[best[name]] = true
		kept = append(kept, clients[best[name]])
	}
	for i, c := range clients {
		if !winners[i] {
			dups = append(dups, c)
		}
	}
	return kept, dups
}

func higherID(a, b *int64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a > *b
	}
}

package model

import "github.com/vvka-141/crmingest/pkg/crmingest"

// Column maps one CRM export header to its database column.
type Column struct {
	Header string
	Name   string
}

// Database column names shared by more than one entity.
const (
	ColFullName     = "full_name"
	ColSubtotal     = "subtotal"
	ColTax          = "tax"
	ColTotal        = "total"
	ColDateIssued   = "date_issued"
	ColDateCreated  = "date_created"
	ColIngestedDate = "ingested_date"
)

// Client columns.
const (
	ColEmailAddress  = "email_address"
	ColPhoneMobile   = "phone_mobile"
	ColPhoneOther    = "phone_other"
	ColAddress       = "address"
	ColAddress2      = "address_2"
	ColCity          = "city"
	ColStateProvince = "state_province"
	ColZipPostalCode = "zip_postal_code"
	ColPrivateNotes  = "private_notes"
	ColJoistClientID = "joist_client_id"
)

// Document columns.
const (
	ColEstimateNumber  = "estimate_number"
	ColInvoiceNumber   = "invoice_number"
	ColPaymentReceived = "payment_received_less_refunds"
)

var clientColumns = []Column{
	{"Name", ColFullName},
	{"Email Address", ColEmailAddress},
	{"Phone (mobile)", ColPhoneMobile},
	{"Phone (other)", ColPhoneOther},
	{"Address", ColAddress},
	{"Address 2", ColAddress2},
	{"City", ColCity},
	{"State / Province", ColStateProvince},
	{"Zip / Postal Code", ColZipPostalCode},
	{"Private Notes", ColPrivateNotes},
	{"**(Do not change this) Joist Client ID", ColJoistClientID},
}

var estimateColumns = []Column{
	{"Estimate #", ColEstimateNumber},
	{"Client Name", ColFullName},
	{"Subtotal", ColSubtotal},
	{"Tax", ColTax},
	{"Total", ColTotal},
	{"Date Issued", ColDateIssued},
	{"Date Created", ColDateCreated},
}

var invoiceColumns = []Column{
	{"Invoice #", ColInvoiceNumber},
	{"Client Name", ColFullName},
	{"Subtotal", ColSubtotal},
	{"Tax", ColTax},
	{"Total", ColTotal},
	{"Date Issued", ColDateIssued},
	{"Date Created", ColDateCreated},
	{"Payment Received Less Refunds", ColPaymentReceived},
}

// builtinAliases covers header spellings used by older exports.
var builtinAliases = map[crmingest.Entity]map[string]string{
	crmingest.EntityEstimates: {"Sales tax": ColTax},
	crmingest.EntityInvoices:  {"Sales tax": ColTax},
}

// Columns returns the export-header mapping for an entity.
func Columns(e crmingest.Entity) []Column {
	switch e {
	case crmingest.EntityClients:
		return clientColumns
	case crmingest.EntityEstimates:
		return estimateColumns
	case crmingest.EntityInvoices:
		return invoiceColumns
	}
	return nil
}

// Mapping returns header -> column renames for an entity, merged with extra aliases.
// Extra aliases override built-in ones with the same header.
func Mapping(e crmingest.Entity, extra map[string]string) map[string]string {
	m := make(map[string]string)
	for _, c := range Columns(e) {
		m[c.Header] = c.Name
	}
	for h, n := range builtinAliases[e] {
		m[h] = n
	}
	for h, n := range extra {
		m[h] = n
	}
	return m
}

// Required returns the database columns an entity table must have after renaming.
func Required(e crmingest.Entity) []string {
	cols := Columns(e)
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// CleanedColumns returns the free-text columns run through the column cleaner.
func CleanedColumns(e crmingest.Entity) []string {
	if e == crmingest.EntityClients {
		return []string{
			ColFullName, ColEmailAddress, ColAddress, ColAddress2,
			ColCity, ColStateProvince, ColPrivateNotes,
		}
	}
	return []string{ColFullName}
}

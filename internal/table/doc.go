// Package table holds the in-memory tabular model an export file is read into
// before it is cleaned and parsed into entity records.
//
// A Table is a header plus string rows. Each row remembers the physical line
// it came from so parse errors can point at the offending line of the export.
// Reading and writing go through encoding/csv with a configurable delimiter:
// the CRM exports clients and estimates as comma-separated files and invoices
// as tab-separated files.
package table

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client sources.
const (
	SourceExport      = "export"
	SourcePlaceholder = "placeholder"
)

// Date is a calendar date that may be NULL.
type Date struct {
	Time  time.Time
	Valid bool
}

// DateOf returns a valid Date truncated to midnight UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

// String renders the date as YYYY-MM-DD, or "" when NULL.
func (d Date) String() string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(time.DateOnly)
}

// Before reports whether d is a valid date earlier than o, or o is NULL and d is not.
func (d Date) Before(o Date) bool {
	if !d.Valid {
		return false
	}
	return !o.Valid || d.Time.Before(o.Time)
}

// Client is one customer, keyed by FullName. Empty strings are stored as NULL.
type Client struct {
	FullName      string
	EmailAddress  string
	PhoneMobile   string
	PhoneOther    string
	Address       string
	Address2      string
	City          string
	StateProvince string
	ZipPostalCode string
	PrivateNotes  string
	JoistClientID *int64
	JoinDate      Date
	Source        string
	IngestedDate  Date

	// Line is the export line the client was read from (0 for placeholders).
	Line int
}

// Placeholder returns a client carrying only a name, used when a referencing
// document names a client the export does not contain.
func Placeholder(name string, ingested Date) Client {
	return Client{FullName: name, Source: SourcePlaceholder, IngestedDate: ingested}
}

// Estimate is one quote sent to a client, keyed by Number.
type Estimate struct {
	Number       string
	FullName     string
	Subtotal     decimal.NullDecimal
	Tax          decimal.NullDecimal
	Total        decimal.NullDecimal
	DateIssued   Date
	DateCreated  Date
	IngestedDate Date
	Line         int
}

// Invoice is one bill sent to a client, keyed by Number.
type Invoice struct {
	Number                     string
	FullName                   string
	Subtotal                   decimal.NullDecimal
	Tax                        decimal.NullDecimal
	Total                      decimal.NullDecimal
	DateIssued                 Date
	DateCreated                Date
	PaymentReceivedLessRefunds decimal.NullDecimal
	IngestedDate               Date
	Line                       int
}

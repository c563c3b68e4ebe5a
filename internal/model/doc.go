// Package model defines the three CRM entities and how rows of a cleaned
// export table are parsed into them.
//
// Each entity has a column mapping from the CRM export header to the
// database column name, a list of required columns (added empty when an
// export omits them) and a list of free-text columns that go through the
// column cleaner. Amounts are decimal.NullDecimal; an empty cell is NULL.
//
// Parse errors are collected per row rather than returned on the first bad
// cell, so an operator fixing an export sees every offending line at once.
package model

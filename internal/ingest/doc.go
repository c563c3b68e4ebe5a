// Package ingest loads one month of CRM exports into a store.
//
// A run has three phases:
//
//	Prepare  read, rename, clean and parse every selected export; no database access
//	Apply    run the entity loaders in load order (clients, estimates, invoices)
//	Record   store an ingest_runs row and write a JSON manifest
//
// Estimates and invoices reference clients by full_name. The clients step
// always runs first, and the estimates and invoices loaders insert any
// referenced client that is still missing (from the export when it has the
// name, otherwise as a placeholder) in the same transaction as their rows.
package ingest

// Package checksum fingerprints export files so an ingest run can record
// exactly which files it loaded.
//
// The checksum is SHA-256 after removing a UTF-8 byte order mark, converting
// CRLF and CR line endings to LF and dropping trailing blank lines, so
// re-saving an export on another platform does not look like a new file.
// It is the value stored in ingest_runs and compared by the sources command.
package checksum

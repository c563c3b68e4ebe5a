// Package logging provides concrete implementations of the crmingest.Logger interface:
// a console logger for the operator, zap-backed JSON-lines file loggers kept
// per entity under the log directory, and Tee to write to both.
package logging

// Package observability provides the bot's operator-facing diagnostics: a
// structured JSON Lines event journal, metrics and threshold alerts derived
// from it, notifiers that deliver those alerts, and the local console on
// which the admin key and error traces are printed.
package observability

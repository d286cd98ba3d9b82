// Package validation runs field validators and whole-record validators
// against a record and collects the resulting messages per field. Validation
// never fails with an error value: problems are data (Errors). Panics raised
// by validators are programming errors and propagate to the caller.
package validation

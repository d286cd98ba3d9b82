// Package orchestrator wires adapters, the record store, option loaders,
// renderers and themes into one entry point that opens dialog sessions and
// renders them.
package orchestrator

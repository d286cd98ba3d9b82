// Package model defines the field descriptors dialogs are built from. A Field
// carries the presentational metadata shared by every control (label, tab,
// required/disabled flags, validators) plus a Control variant describing how
// the value is edited: plain text, long text, numeric, single choice, multi
// choice, free tags, date, date-time, static display or a custom component.
// Dispatch sites switch exhaustively over the concrete Control types.
//
// Choice values are EntityReferences: either a raw identifier or an
// {id, label} pair. NormalizeReference and References collapse both shapes
// into Reference values so equality and labelling do not depend on how the
// record was loaded.
package model

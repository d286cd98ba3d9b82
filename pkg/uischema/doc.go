// Package uischema loads declarative entity catalogs: one document lists the
// entity types, their tabs, field descriptors, defaults and an optional CUE
// schema used as the record validator. Documents may be JSON or YAML and are
// read from any fs.FS so catalogs can be embedded or loaded from disk.
package uischema

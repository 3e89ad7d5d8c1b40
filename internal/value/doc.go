// Package value holds the scalar value model shared by the node store, the
// property façade and the pass journal.
//
// Node values are plain Go values (float64, int64, bool, string and string
// enums). Value is the sealed, kind-tagged form used when a value leaves the
// engine: snapshots, journal rows and golden files. Range and Options describe
// the declared domain of a property.
package value

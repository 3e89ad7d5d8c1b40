// Package twinrx models the TwinRX dual-channel superheterodyne receiver
// front-end on top of the resolution engine.
//
// A Board owns one engine container and two Frontends, built in the fixed
// order NewBoard, NewFrontend("0"), NewFrontend("1"), Initialize. Each
// Frontend exposes a property tree over its channel's nodes; the Board
// exposes the shared nodes (LO export source, hopping, antenna mapping,
// calibration mode).
//
// Node names are namespaced by channel ("0/freq/desired") or by "com" for
// shared state ("com/LO1/export_source"). Workers are pure: the derived
// register-level Settings are handed to the Control collaborator by a pass
// observer after each resolution pass.
package twinrx

// Package node is the typed key/value store behind a board.
//
// Every data and property node of a board lives in one Store. A node has a
// fixed Go type chosen at creation, an optional coercer applied on every
// write, an optional publisher consulted by passive reads, a dirty flag and a
// logical write stamp. The store is not safe for concurrent use; the engine
// container serialises access with its board lock.
package node

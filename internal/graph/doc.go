// Package graph turns a set of workers with declared read and write sets
// into an executable resolution order.
//
// Build derives the worker precedence relation (A precedes B when A writes a
// node B reads), rejects conflicting or cyclic declarations, and orders the
// workers topologically with registration order as the tie-break. Workers
// access nodes only through a Scope, which enforces the declared sets.
package graph

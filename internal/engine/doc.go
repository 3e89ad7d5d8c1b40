// Package engine resolves a board's node graph to a fixed point.
//
// A Container owns one board: the node store, the registered workers, the
// resolution plan and a single lock guarding all of them. Callers declare
// nodes and workers, call Initialize once, and then read and write nodes
// through the container. Every write that requests resolution runs a pass:
// the Resolver re-runs, in plan order, only the workers whose inputs
// changed, repeating until no node is dirty or the iteration budget is
// spent.
//
// Thread-safety model:
//   - every exported Container method takes the board lock
//   - workers and observers run with the lock held and must not call back
//     into the container
//   - the Resolver itself is not locked and rejects re-entrant passes
package engine

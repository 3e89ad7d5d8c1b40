// Package journal records resolution passes in SQLite.
//
// A journal holds three tables: sessions (one per board container), passes
// (one per resolution pass that ran a worker) and changes (the new value of
// every node a pass changed). Values are stored as canonical JSON, so two
// journals of the same sequence of writes are identical.
//
// Recorder plugs the journal into a container as a pass observer:
//
//	j, err := journal.Open("twinrx.db")
//	...
//	rec := journal.NewRecorder(j, "twinrx", "C")
//	b, err := twinrx.NewBoard(0x95, ctrl, twinrx.WithEngineOptions(engine.WithObserver(rec)))
//
// Reads go through Filter, which compiles to parameterized SQL ordered by
// pass sequence.
package journal

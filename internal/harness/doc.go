// Package harness runs YAML board scenarios.
//
// A scenario builds a simulated board, performs a sequence of property reads
// and writes, and checks the result:
//
//	name: highband_retune
//	description: "Channel 0 moves to the high band"
//	revision: 0x95
//	flow:
//	  - target: "0"
//	    set: freq/value
//	    value: 2.4e9
//	    expect: 2.4e9
//	  - target: "0"
//	    get: los/LO1/freq/value
//	    expect: 3.65e9
//	assertions:
//	  - type: settings
//	    key: 0/signal_path
//	    expect: highband
//	  - type: worker_ran
//	    worker: 0/freq_path
//	    step: 1
//	snapshot:
//	  - target: "0"
//	    path: freq/value
//
// # Assertion Types
//
//   - property: a property reads the expected value
//   - settings: a flattened hardware settings field has the expected value
//   - worker_ran: a worker ran in some pass, optionally during one step
//   - changed: a pass changed a node, optionally during one step
//   - pass_count: the number of passes, optionally during one step
//
// Values compare by canonical form, so 30 matches 30.0 and a string matches
// any string-typed enum with the same text.
//
// # Determinism
//
// Every run uses a fixed session id and tags passes with the number of the
// flow step that triggered them. Passes run while the board is built are
// tagged step 0. RunWithGolden compares the listed snapshot properties
// against testdata/golden/<name>.golden.
package harness

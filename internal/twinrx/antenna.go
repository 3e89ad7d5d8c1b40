package twinrx

import "github.com/roach88/twinrx/internal/graph"

// antennaWorker assigns connectors to channels so that no two channels
// share one.
//
// On a collision an enabled channel beats a disabled one; between equals
// the most recent request wins. The losing channel moves to the free
// connector, and a loss between two enabled channels is published on the
// conflict node. Calibration is routed only into an enabled channel.
type antennaWorker struct {
	in, out []string
}

func newAntennaWorker() *antennaWorker {
	w := &antennaWorker{in: []string{nodeCalModeDesired}}
	for _, ch := range Channels {
		w.in = append(w.in, chNode(ch, nodeAntDesired), chNode(ch, nodeEnabled))
		w.out = append(w.out, chNode(ch, nodeAntCoerced))
	}
	w.out = append(w.out, nodeAntMapping, nodeCalModeCoerced, nodeDiagAntConflict)
	return w
}

func (w *antennaWorker) Name() string     { return "antenna" }
func (w *antennaWorker) Reads() []string  { return w.in }
func (w *antennaWorker) Writes() []string { return w.out }

func (w *antennaWorker) Run(s *graph.Scope) error {
	ant := make(map[string]Antenna, len(Channels))
	enabled := make(map[string]bool, len(Channels))
	for _, ch := range Channels {
		ant[ch] = graph.In[Antenna](s, chNode(ch, nodeAntDesired))
		enabled[ch] = graph.In[bool](s, chNode(ch, nodeEnabled))
	}

	conflict := ""
	if ant[Ch0] == ant[Ch1] {
		keep := Ch0
		switch {
		case enabled[Ch0] != enabled[Ch1]:
			if enabled[Ch1] {
				keep = Ch1
			}
		case graph.Stamp(s, chNode(Ch1, nodeAntDesired)) > graph.Stamp(s, chNode(Ch0, nodeAntDesired)):
			keep = Ch1
		}
		moved := other(keep)
		ant[moved] = ant[moved].flip()
		if enabled[Ch0] && enabled[Ch1] {
			conflict = "ch" + moved
		}
	}

	mapping := AntNative
	if ant[Ch0] == AntRX2 {
		mapping = AntSwapped
	}

	cal := graph.In[CalMode](s, nodeCalModeDesired)
	if (cal == CalCh0 && !enabled[Ch0]) || (cal == CalCh1 && !enabled[Ch1]) {
		cal = CalDisabled
	}

	for _, ch := range Channels {
		graph.Out(s, chNode(ch, nodeAntCoerced), ant[ch])
	}
	graph.Out(s, nodeAntMapping, mapping)
	graph.Out(s, nodeCalModeCoerced, cal)
	graph.Out(s, nodeDiagAntConflict, conflict)
	return nil
}

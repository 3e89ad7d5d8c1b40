package twinrx

import (
	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/value"
)

// DefaultSynthStep is the LO synthesizer frequency resolution in Hz.
const DefaultSynthStep = 100e3

// loConfigWorker settles LO sources and the export bus for both channels.
//
// A channel may export only while it drives its own synthesizer. When both
// channels request a valid export, the most recent request wins and the
// other reads back false; the loser is published on the conflict node.
type loConfigWorker struct {
	in, out []string
}

func newLOConfigWorker() *loConfigWorker {
	w := &loConfigWorker{}
	for _, ch := range Channels {
		w.in = append(w.in, chNode(ch, nodeSource), chNode(ch, nodeExportDesired))
		w.out = append(w.out,
			chNode(ch, loSource(LO1)),
			chNode(ch, loSource(LO2)),
			chNode(ch, nodeExportCoerced),
		)
	}
	for _, st := range Stages {
		w.out = append(w.out, comExportSource(st))
	}
	w.out = append(w.out, nodeDiagExportConflict)
	return w
}

func (w *loConfigWorker) Name() string     { return "lo_config" }
func (w *loConfigWorker) Reads() []string  { return w.in }
func (w *loConfigWorker) Writes() []string { return w.out }

func (w *loConfigWorker) Run(s *graph.Scope) error {
	var exporters []string
	for _, ch := range Channels {
		src := graph.In[LOSource](s, chNode(ch, nodeSource))
		for _, st := range Stages {
			graph.Out(s, chNode(ch, loSource(st)), src)
		}
		if graph.In[bool](s, chNode(ch, nodeExportDesired)) && src.ownsSynth() {
			exporters = append(exporters, ch)
		}
	}

	conflict := ""
	if len(exporters) == 2 {
		s0 := graph.Stamp(s, chNode(Ch0, nodeExportDesired))
		s1 := graph.Stamp(s, chNode(Ch1, nodeExportDesired))
		winner := Ch0
		if s1 > s0 {
			winner = Ch1
		}
		conflict = string(exportOf(other(winner)))
		exporters = []string{winner}
	}

	export := ExportDisabled
	if len(exporters) == 1 {
		export = exportOf(exporters[0])
	}
	for _, ch := range Channels {
		graph.Out(s, chNode(ch, nodeExportCoerced), export == exportOf(ch))
	}
	for _, st := range Stages {
		graph.Out(s, comExportSource(st), export)
	}
	graph.Out(s, nodeDiagExportConflict, conflict)
	return nil
}

// loMappingWorker decides which synthesizer serves each channel for one
// stage. With hopping enabled and one synthesizer idle, the channels on the
// busy synthesizer ping-pong between both.
type loMappingWorker struct {
	stage   Stage
	in, out []string
}

func newLOMappingWorker(st Stage) *loMappingWorker {
	w := &loMappingWorker{stage: st, in: []string{comHopping(st)}}
	for _, ch := range Channels {
		w.in = append(w.in, chNode(ch, loSource(st)))
		w.out = append(w.out, chNode(ch, loMapping(st)))
	}
	return w
}

func (w *loMappingWorker) Name() string     { return "lo_mapping/" + string(w.stage) }
func (w *loMappingWorker) Reads() []string  { return w.in }
func (w *loMappingWorker) Writes() []string { return w.out }

func (w *loMappingWorker) Run(s *graph.Scope) error {
	mapping := make(map[string]SynthMapping, len(Channels))
	used := make(map[SynthMapping]bool)
	for _, ch := range Channels {
		m := MappingNone
		switch src := graph.In[LOSource](s, chNode(ch, loSource(w.stage))); {
		case src.ownsSynth():
			m = synthOf(ch)
		case src == SourceCompanion:
			m = synthOf(other(ch))
		}
		mapping[ch] = m
		if m != MappingNone {
			used[m] = true
		}
	}
	if graph.In[bool](s, comHopping(w.stage)) && len(used) == 1 {
		for ch, m := range mapping {
			if m != MappingNone {
				mapping[ch] = MappingShared
			}
		}
	}
	for _, ch := range Channels {
		graph.Out(s, chNode(ch, loMapping(w.stage)), mapping[ch])
	}
	return nil
}

// synthWorker coerces both channels' LO frequencies and charge pump
// currents for one stage.
//
// A channel that drives a synthesizer gets its target snapped to the step.
// A companion channel follows the channel owning the synthesizer it uses,
// and an external channel follows the other channel while that one exports.
type synthWorker struct {
	stage   Stage
	step    float64
	cp      value.Range
	in, out []string
}

func newSynthWorker(st Stage, step float64, cp value.Range) *synthWorker {
	w := &synthWorker{stage: st, step: step, cp: cp, in: []string{comExportSource(st)}}
	for _, ch := range Channels {
		w.in = append(w.in,
			chNode(ch, loTarget(st)),
			chNode(ch, loSource(st)),
			chNode(ch, loCPDesired(st)),
		)
		w.out = append(w.out,
			chNode(ch, loFreqCoerced(st)),
			chNode(ch, loCPCoerced(st)),
		)
	}
	return w
}

func (w *synthWorker) Name() string     { return "synth/" + string(w.stage) }
func (w *synthWorker) Reads() []string  { return w.in }
func (w *synthWorker) Writes() []string { return w.out }

func (w *synthWorker) Run(s *graph.Scope) error {
	export := graph.In[ExportSource](s, comExportSource(w.stage))
	freq := make(map[string]float64, len(Channels))
	cp := make(map[string]float64, len(Channels))
	src := make(map[string]LOSource, len(Channels))
	for _, ch := range Channels {
		src[ch] = graph.In[LOSource](s, chNode(ch, loSource(w.stage)))
		freq[ch] = snap(graph.In[float64](s, chNode(ch, loTarget(w.stage))), w.step, LORange[w.stage])
		cp[ch] = w.cp.Clip(graph.In[float64](s, chNode(ch, loCPDesired(w.stage))))
	}

	for _, ch := range Channels {
		o := other(ch)
		pinned := (src[ch] == SourceCompanion && src[o].ownsSynth()) ||
			(src[ch] == SourceExternal && export == exportOf(o))
		if pinned {
			graph.Out(s, chNode(ch, loFreqCoerced(w.stage)), freq[o])
			graph.Out(s, chNode(ch, loCPCoerced(w.stage)), cp[o])
			continue
		}
		graph.Out(s, chNode(ch, loFreqCoerced(w.stage)), freq[ch])
		graph.Out(s, chNode(ch, loCPCoerced(w.stage)), cp[ch])
	}
	return nil
}

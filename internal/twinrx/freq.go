package twinrx

import (
	"math"

	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/value"
)

// Tuning constants, in Hz.
const (
	DefaultFreq = 1.0e9
	DefaultIF   = 150e6
	Bandwidth   = 80e6

	bandSplit    = 1.8e9
	if1Lowband   = 2.345e9
	if1Highband  = 1.25e9
	lo1HighMax   = 5.1e9
	fixedLO1Max  = 50e6
	fixedLO1Freq = 2.395e9
)

// Property ranges.
var (
	FreqRange      = value.MustRange(value.Span(10e6, 6.0e9))
	BandwidthRange = value.MustRange(value.Point(Bandwidth))
	IFRange        = value.MustRange(
		value.Span(-DefaultIF-Bandwidth/2, -DefaultIF+Bandwidth/2),
		value.Span(DefaultIF-Bandwidth/2, DefaultIF+Bandwidth/2),
	)
	LORange = map[Stage]value.Range{
		LO1: value.MustRange(value.Span(2.0e9, 6.8e9)),
		LO2: value.MustRange(value.Span(1.0e9, 3.0e9)),
	}
)

var (
	lbPreselEdges = []float64{0.5e9, 0.8e9, 1.2e9}
	hbPreselEdges = []float64{3.0e9, 4.1e9, 5.1e9}
	preselPaths   = []Presel{PreselPath1, PreselPath2, PreselPath3, PreselPath4}
)

// FreqPlan is the path and LO choice for one RF request.
type FreqPlan struct {
	Path           SignalPath
	LBPresel       Presel
	HBPresel       Presel
	LBPreampPresel bool
	Inj            map[Stage]InjSide
	LO             map[Stage]float64
}

// override is a manual LO request; zero means automatic.
type override map[Stage]float64

// PlanFreq picks the signal path, injection sides and LO frequencies for rf
// and the signed final IF. LO1 is snapped to step so that the first IF can
// absorb the snapping error; LO2 is left for the synthesizer to snap.
func PlanFreq(rf, ifFreq, step float64) FreqPlan {
	return planFreq(rf, ifFreq, step, nil)
}

func planFreq(rf, ifFreq, step float64, manual override) FreqPlan {
	rf = FreqRange.Clip(rf)
	p := FreqPlan{
		Path:     PathHighband,
		LBPresel: band(rf, lbPreselEdges),
		HBPresel: band(rf, hbPreselEdges),
		Inj:      map[Stage]InjSide{LO1: InjHighSide, LO2: InjLowSide},
		LO:       make(map[Stage]float64, 2),
	}
	if1 := if1Highband
	if rf <= bandSplit {
		p.Path = PathLowband
		p.LBPreampPresel = rf > lbPreselEdges[1]
		if1 = if1Lowband
	}

	var lo1 float64
	switch {
	case manual[LO1] != 0:
		lo1 = LORange[LO1].Clip(manual[LO1])
	case rf <= fixedLO1Max:
		lo1 = snap(fixedLO1Freq, step, LORange[LO1])
	case rf <= lo1HighMax:
		lo1 = snap(rf+if1, step, LORange[LO1])
	default:
		lo1 = snap(rf-if1, step, LORange[LO1])
	}
	if rf > lo1HighMax && manual[LO1] == 0 {
		p.Inj[LO1] = InjLowSide
	}
	if manual[LO1] == 0 {
		if1 = math.Abs(lo1 - rf)
	}
	p.LO[LO1] = lo1

	if ifFreq < 0 {
		p.Inj[LO2] = InjHighSide
	}
	if manual[LO2] != 0 {
		p.LO[LO2] = LORange[LO2].Clip(manual[LO2])
	} else {
		p.LO[LO2] = LORange[LO2].Clip(if1 - ifFreq)
	}
	return p
}

func band(rf float64, edges []float64) Presel {
	for i, e := range edges {
		if rf <= e {
			return preselPaths[i]
		}
	}
	return preselPaths[len(edges)]
}

func snap(f, step float64, r value.Range) float64 {
	if step > 0 {
		f = math.Round(f/step) * step
	}
	return r.Clip(f)
}

// CoerceFreq reconstructs the RF frequency from the coerced LOs and the
// final IF, clipped to the tunable range.
func CoerceFreq(lo1, lo2, ifFreq float64, inj1, inj2 InjSide) float64 {
	var if1 float64
	if inj2 == InjLowSide {
		if1 = lo2 + math.Abs(ifFreq)
	} else {
		if1 = lo2 - math.Abs(ifFreq)
	}
	var rf float64
	if inj1 == InjHighSide {
		rf = lo1 - if1
	} else {
		rf = lo1 + if1
	}
	return FreqRange.Clip(rf)
}

// freqPathWorker plans one channel's tuning.
type freqPathWorker struct {
	ch      string
	step    float64
	in, out []string
}

func newFreqPathWorker(ch string, step float64) *freqPathWorker {
	w := &freqPathWorker{ch: ch, step: step}
	w.in = []string{
		chNode(ch, nodeFreqDesired),
		chNode(ch, nodeIFCoerced),
		chNode(ch, loFreqDesired(LO1)),
		chNode(ch, loFreqDesired(LO2)),
	}
	w.out = []string{
		chNode(ch, nodeSignalPath),
		chNode(ch, nodeLBPresel),
		chNode(ch, nodeHBPresel),
		chNode(ch, nodeLBPreampPresel),
		chNode(ch, loInjSide(LO1)),
		chNode(ch, loInjSide(LO2)),
		chNode(ch, loTarget(LO1)),
		chNode(ch, loTarget(LO2)),
	}
	return w
}

func (w *freqPathWorker) Name() string     { return chNode(w.ch, "freq_path") }
func (w *freqPathWorker) Reads() []string  { return w.in }
func (w *freqPathWorker) Writes() []string { return w.out }

// Run applies a manual LO value only while it is newer than the last RF
// request.
func (w *freqPathWorker) Run(s *graph.Scope) error {
	rf := graph.In[float64](s, chNode(w.ch, nodeFreqDesired))
	rfStamp := graph.Stamp(s, chNode(w.ch, nodeFreqDesired))
	manual := override{}
	for _, st := range Stages {
		name := chNode(w.ch, loFreqDesired(st))
		if f := graph.In[float64](s, name); f != 0 && graph.Stamp(s, name) > rfStamp {
			manual[st] = f
		}
	}
	p := planFreq(rf, graph.In[float64](s, chNode(w.ch, nodeIFCoerced)), w.step, manual)

	graph.Out(s, chNode(w.ch, nodeSignalPath), p.Path)
	graph.Out(s, chNode(w.ch, nodeLBPresel), p.LBPresel)
	graph.Out(s, chNode(w.ch, nodeHBPresel), p.HBPresel)
	graph.Out(s, chNode(w.ch, nodeLBPreampPresel), p.LBPreampPresel)
	for _, st := range Stages {
		graph.Out(s, chNode(w.ch, loInjSide(st)), p.Inj[st])
		graph.Out(s, chNode(w.ch, loTarget(st)), p.LO[st])
	}
	return nil
}

// freqCoercionWorker republishes the RF frequency the coerced LOs achieve.
type freqCoercionWorker struct {
	ch      string
	in, out []string
}

func newFreqCoercionWorker(ch string) *freqCoercionWorker {
	return &freqCoercionWorker{
		ch: ch,
		in: []string{
			chNode(ch, loFreqCoerced(LO1)),
			chNode(ch, loFreqCoerced(LO2)),
			chNode(ch, loInjSide(LO1)),
			chNode(ch, loInjSide(LO2)),
			chNode(ch, nodeIFCoerced),
			chNode(ch, nodeNyquistFold),
		},
		out: []string{
			chNode(ch, nodeFreqCoerced),
			chNode(ch, nodeSpectrumInv),
		},
	}
}

func (w *freqCoercionWorker) Name() string     { return chNode(w.ch, "freq_coercion") }
func (w *freqCoercionWorker) Reads() []string  { return w.in }
func (w *freqCoercionWorker) Writes() []string { return w.out }

func (w *freqCoercionWorker) Run(s *graph.Scope) error {
	inj1 := graph.In[InjSide](s, chNode(w.ch, loInjSide(LO1)))
	inj2 := graph.In[InjSide](s, chNode(w.ch, loInjSide(LO2)))
	rf := CoerceFreq(
		graph.In[float64](s, chNode(w.ch, loFreqCoerced(LO1))),
		graph.In[float64](s, chNode(w.ch, loFreqCoerced(LO2))),
		graph.In[float64](s, chNode(w.ch, nodeIFCoerced)),
		inj1, inj2,
	)
	inverted := graph.In[bool](s, chNode(w.ch, nodeNyquistFold))
	inverted = inverted != (inj1 == InjHighSide)
	inverted = inverted != (inj2 == InjHighSide)

	graph.Out(s, chNode(w.ch, nodeFreqCoerced), rf)
	graph.Out(s, chNode(w.ch, nodeSpectrumInv), inverted)
	return nil
}

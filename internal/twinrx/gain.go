package twinrx

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/value"
)

// Gain stage limits in dB.
const (
	AttenMax    int64 = 31
	Preamp1Gain       = 14.0
	Preamp2Gain       = 17.0
	passiveMax        = 2 * float64(AttenMax)
)

// GainRange is the total channel gain range.
var GainRange = value.MustRange(value.Stepped(0, 93, 1))

// preampSets lists preamp combinations by increasing gain.
var preampSets = []struct {
	p1, p2 bool
	gain   float64
}{
	{false, false, 0},
	{true, false, Preamp1Gain},
	{false, true, Preamp2Gain},
	{true, true, Preamp1Gain + Preamp2Gain},
}

// GainStages is a partition of the channel gain. The two attenuators each
// contribute 31 dB minus their setting.
type GainStages struct {
	InputAtten int64
	BandAtten  int64
	Preamp1    bool
	Preamp2    bool
}

// Gains returns the per-stage gains in signal order: input, band, preamp1,
// preamp2.
func (g GainStages) Gains() []float64 {
	out := []float64{float64(AttenMax - g.InputAtten), float64(AttenMax - g.BandAtten), 0, 0}
	if g.Preamp1 {
		out[2] = Preamp1Gain
	}
	if g.Preamp2 {
		out[3] = Preamp2Gain
	}
	return out
}

// Total returns the summed gain.
func (g GainStages) Total() float64 { return floats.Sum(g.Gains()) }

// PartitionGain splits total, coerced to GainRange, across the stages.
//
// Preamps are used only when the passive stages cannot reach the gain,
// except in the low-noise profile, which switches both in as soon as the
// gain exceeds one attenuator's span.
func PartitionGain(total float64, profile GainProfile) GainStages {
	total = GainRange.Clip(total)

	set := -1
	for i, ps := range preampSets {
		if ps.gain <= total && total <= passiveMax+ps.gain {
			if set < 0 || (profile == ProfileLowNoise && total > float64(AttenMax)) {
				set = i
			}
		}
	}
	if set < 0 {
		return GainStages{InputAtten: AttenMax, BandAtten: AttenMax}
	}
	ps := preampSets[set]

	atten := int64(passiveMax - (total - ps.gain))
	g := GainStages{Preamp1: ps.p1, Preamp2: ps.p2}
	switch profile {
	case ProfileLowDistortion:
		g.InputAtten = min(atten, AttenMax)
		g.BandAtten = atten - g.InputAtten
	case ProfileLowNoise:
		g.BandAtten = min(atten, AttenMax)
		g.InputAtten = atten - g.BandAtten
	default:
		g.InputAtten = atten / 2
		g.BandAtten = atten - g.InputAtten
	}
	return g
}

// chanGainWorker applies the gain partition to one channel.
type chanGainWorker struct {
	ch      string
	in, out []string
}

func newChanGainWorker(ch string) *chanGainWorker {
	return &chanGainWorker{
		ch: ch,
		in: []string{
			chNode(ch, nodeGain),
			chNode(ch, nodeGainProfile),
			chNode(ch, nodeSignalPath),
		},
		out: []string{
			chNode(ch, nodeInputAtten),
			chNode(ch, nodeLBAtten),
			chNode(ch, nodeHBAtten),
			chNode(ch, nodePreamp1),
			chNode(ch, nodePreamp2),
		},
	}
}

func (w *chanGainWorker) Name() string     { return chNode(w.ch, "chan_gain") }
func (w *chanGainWorker) Reads() []string  { return w.in }
func (w *chanGainWorker) Writes() []string { return w.out }

// Run parks the unused band's attenuator at maximum. A partition that does
// not add up to the requested gain fails the pass.
func (w *chanGainWorker) Run(s *graph.Scope) error {
	want := GainRange.Clip(graph.In[float64](s, chNode(w.ch, nodeGain)))
	g := PartitionGain(want, graph.In[GainProfile](s, chNode(w.ch, nodeGainProfile)))
	if got := g.Total(); got != want {
		return fmt.Errorf("gain partition sums to %g dB, want %g dB", got, want)
	}
	path := graph.In[SignalPath](s, chNode(w.ch, nodeSignalPath))

	lb, hb := g.BandAtten, AttenMax
	preamp1 := PreampLowband
	if path == PathHighband {
		lb, hb = AttenMax, g.BandAtten
		preamp1 = PreampHighband
	}
	if !g.Preamp1 {
		preamp1 = PreampBypass
	}

	graph.Out(s, chNode(w.ch, nodeInputAtten), g.InputAtten)
	graph.Out(s, chNode(w.ch, nodeLBAtten), lb)
	graph.Out(s, chNode(w.ch, nodeHBAtten), hb)
	graph.Out(s, chNode(w.ch, nodePreamp1), preamp1)
	graph.Out(s, chNode(w.ch, nodePreamp2), g.Preamp2)
	return nil
}

// antGainWorker copies each channel's front stages to the connector that
// feeds it. The calibration target's connector is muted.
type antGainWorker struct {
	in, out []string
}

func newAntGainWorker() *antGainWorker {
	w := &antGainWorker{in: []string{nodeAntMapping, nodeCalModeCoerced}}
	for _, ch := range Channels {
		w.in = append(w.in,
			chNode(ch, nodeInputAtten),
			chNode(ch, nodePreamp1),
			chNode(ch, nodePreamp2),
			chNode(ch, nodeLBPreampPresel),
		)
		w.out = append(w.out,
			chNode(ch, nodeAntInputAtten),
			chNode(ch, nodeAntPreamp1),
			chNode(ch, nodeAntPreamp2),
			chNode(ch, nodeAntLBPreampPresel),
		)
	}
	return w
}

func (w *antGainWorker) Name() string     { return "ant_gain" }
func (w *antGainWorker) Reads() []string  { return w.in }
func (w *antGainWorker) Writes() []string { return w.out }

func (w *antGainWorker) Run(s *graph.Scope) error {
	mapping := graph.In[AntMapping](s, nodeAntMapping)
	cal := graph.In[CalMode](s, nodeCalModeCoerced)

	// Connector "0" is RX1, connector "1" is RX2.
	for _, conn := range Channels {
		ch := conn
		if mapping == AntSwapped {
			ch = other(conn)
		}
		atten := graph.In[int64](s, chNode(ch, nodeInputAtten))
		p1 := graph.In[PreampState](s, chNode(ch, nodePreamp1))
		p2 := graph.In[bool](s, chNode(ch, nodePreamp2))
		presel := graph.In[bool](s, chNode(ch, nodeLBPreampPresel))
		if cal != CalDisabled && cal == calOf(ch) {
			atten, p1, p2, presel = AttenMax, PreampBypass, false, false
		}
		graph.Out(s, chNode(conn, nodeAntInputAtten), atten)
		graph.Out(s, chNode(conn, nodeAntPreamp1), p1)
		graph.Out(s, chNode(conn, nodeAntPreamp2), p2)
		graph.Out(s, chNode(conn, nodeAntLBPreampPresel), presel)
	}
	return nil
}

func calOf(ch string) CalMode {
	if ch == Ch0 {
		return CalCh0
	}
	return CalCh1
}

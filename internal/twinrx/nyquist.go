package twinrx

import (
	"math"

	"github.com/roach88/twinrx/internal/graph"
)

// DefaultADCRate is the digitizer sample rate in samples per second.
const DefaultADCRate = 200e6

// CoerceIF moves the final IF so that the band IF ± bw/2 sits inside a
// single Nyquist zone of rate while staying in IFRange. The sign of the
// request is kept. It returns the coerced IF, the frequency the digital
// down-converter sees after sampling, and whether sampling folds the
// spectrum. NaN is treated as the lowest positive IF.
func CoerceIF(desired, rate, bw float64) (ifFreq, alias float64, folded bool) {
	sign := 1.0
	if desired < 0 {
		sign = -1
	}
	upper := IFRange[len(IFRange)-1]
	lo, hi := upper.Start, upper.Stop
	want := math.Max(lo, math.Min(hi, math.Abs(desired)))
	if math.IsNaN(want) {
		want = lo
	}

	best, found := want, false
	half := rate / 2
	if rate > 0 {
		for k := 0.0; k*half < hi+bw; k++ {
			zlo := math.Max(k*half+bw/2, lo)
			zhi := math.Min((k+1)*half-bw/2, hi)
			if zlo > zhi {
				continue
			}
			c := math.Max(zlo, math.Min(zhi, want))
			if !found || math.Abs(c-want) < math.Abs(best-want) {
				best, found = c, true
			}
		}
	}

	alias, folded = fold(best, rate)
	return sign * best, alias, folded
}

func fold(f, rate float64) (float64, bool) {
	if rate <= 0 {
		return f, false
	}
	half := rate / 2
	zone := math.Floor(f / half)
	if math.Mod(zone, 2) == 0 {
		return f - zone*half, false
	}
	return (zone+1)*half - f, true
}

// nyquistWorker keeps one channel's IF band clear of the Nyquist edges.
type nyquistWorker struct {
	ch      string
	rate    float64
	in, out []string
}

func newNyquistWorker(ch string, rate float64) *nyquistWorker {
	return &nyquistWorker{
		ch:   ch,
		rate: rate,
		in:   []string{chNode(ch, nodeIFDesired)},
		out: []string{
			chNode(ch, nodeIFCoerced),
			chNode(ch, nodeIFAlias),
			chNode(ch, nodeNyquistFold),
		},
	}
}

func (w *nyquistWorker) Name() string     { return chNode(w.ch, "nyquist") }
func (w *nyquistWorker) Reads() []string  { return w.in }
func (w *nyquistWorker) Writes() []string { return w.out }

func (w *nyquistWorker) Run(s *graph.Scope) error {
	ifc, alias, folded := CoerceIF(graph.In[float64](s, chNode(w.ch, nodeIFDesired)), w.rate, Bandwidth)
	graph.Out(s, chNode(w.ch, nodeIFCoerced), ifc)
	graph.Out(s, chNode(w.ch, nodeIFAlias), alias)
	graph.Out(s, chNode(w.ch, nodeNyquistFold), folded)
	return nil
}

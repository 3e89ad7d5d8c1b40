package twinrx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

// sweep returns n evenly spaced frequencies from lo to hi inclusive.
func sweep(lo, hi float64, n int) []float64 {
	return floats.Span(make([]float64, n), lo, hi)
}

// TestPlanFreq_Sweep tests that the planned LOs reconstruct the request
// within one synthesizer step for both IF signs.
func TestPlanFreq_Sweep(t *testing.T) {
	for _, ifFreq := range []float64{DefaultIF, -DefaultIF, 110e6, -190e6} {
		for _, f := range append(sweep(10e6, 6e9, 1201), 50e6, 1.8e9, 5.1e9) {
			p := PlanFreq(f, ifFreq, DefaultSynthStep)
			lo1 := snap(p.LO[LO1], DefaultSynthStep, LORange[LO1])
			lo2 := snap(p.LO[LO2], DefaultSynthStep, LORange[LO2])
			if !assert.True(t, LORange[LO1].Contains(lo1), "f=%g if=%g lo1=%g", f, ifFreq, lo1) {
				return
			}
			if !assert.True(t, LORange[LO2].Contains(lo2), "f=%g if=%g lo2=%g", f, ifFreq, lo2) {
				return
			}
			rf := CoerceFreq(lo1, lo2, ifFreq, p.Inj[LO1], p.Inj[LO2])
			if !assert.InDelta(t, f, rf, DefaultSynthStep, "f=%g if=%g", f, ifFreq) {
				return
			}
		}
	}
}

// TestPlanFreq_Bands tests path, preselector and injection selection.
func TestPlanFreq_Bands(t *testing.T) {
	tests := []struct {
		name   string
		rf     float64
		path   SignalPath
		lb, hb Presel
		preamp bool
		inj1   InjSide
	}{
		{"fixed LO", 30e6, PathLowband, PreselPath1, PreselPath1, false, InjHighSide},
		{"low lowband", 400e6, PathLowband, PreselPath1, PreselPath1, false, InjHighSide},
		{"mid lowband", 700e6, PathLowband, PreselPath2, PreselPath1, false, InjHighSide},
		{"preamp presel", 1.0e9, PathLowband, PreselPath3, PreselPath1, true, InjHighSide},
		{"band split", 1.8e9, PathLowband, PreselPath4, PreselPath1, true, InjHighSide},
		{"low highband", 2.4e9, PathHighband, PreselPath4, PreselPath1, false, InjHighSide},
		{"mid highband", 4.0e9, PathHighband, PreselPath4, PreselPath2, false, InjHighSide},
		{"high side edge", 5.1e9, PathHighband, PreselPath4, PreselPath3, false, InjHighSide},
		{"low side", 5.5e9, PathHighband, PreselPath4, PreselPath4, false, InjLowSide},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanFreq(tt.rf, DefaultIF, DefaultSynthStep)
			assert.Equal(t, tt.path, p.Path)
			assert.Equal(t, tt.lb, p.LBPresel)
			assert.Equal(t, tt.hb, p.HBPresel)
			assert.Equal(t, tt.preamp, p.LBPreampPresel)
			assert.Equal(t, tt.inj1, p.Inj[LO1])
			assert.Equal(t, InjLowSide, p.Inj[LO2])
		})
	}

	assert.Equal(t, fixedLO1Freq, PlanFreq(10e6, DefaultIF, DefaultSynthStep).LO[LO1])
	assert.Equal(t, InjHighSide, PlanFreq(1e9, -DefaultIF, DefaultSynthStep).Inj[LO2])
}

// TestPlanFreq_Manual tests manual LO values.
func TestPlanFreq_Manual(t *testing.T) {
	p := planFreq(1e9, DefaultIF, DefaultSynthStep, override{LO1: 9e9, LO2: 1.5e9})
	assert.Equal(t, 6.8e9, p.LO[LO1])
	assert.Equal(t, 1.5e9, p.LO[LO2])
}

// TestPlanFreq_NonFinite tests that NaN and infinite requests plan like the
// nearest band edge, with both LOs in range.
func TestPlanFreq_NonFinite(t *testing.T) {
	tests := []struct {
		name string
		rf   float64
		edge float64
	}{
		{"nan", math.NaN(), FreqRange.Start()},
		{"+inf", math.Inf(1), FreqRange.Stop()},
		{"-inf", math.Inf(-1), FreqRange.Start()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanFreq(tt.rf, DefaultIF, 100e3)
			assert.Equal(t, PlanFreq(tt.edge, DefaultIF, 100e3), p)
			for _, st := range Stages {
				assert.True(t, LORange[st].Contains(p.LO[st]), "%s %g", st, p.LO[st])
			}
		})
	}
}

// TestCoerceIF tests Nyquist zone placement.
func TestCoerceIF(t *testing.T) {
	tests := []struct {
		name    string
		desired float64
		rate    float64
		want    float64
		alias   float64
		folded  bool
	}{
		{"default", 150e6, 200e6, 150e6, 50e6, true},
		{"negative", -150e6, 200e6, -150e6, 50e6, true},
		{"pulled off zone edge", 110e6, 200e6, 140e6, 60e6, true},
		{"clipped to band", 300e6, 200e6, 160e6, 40e6, true},
		{"zero", 0, 200e6, 140e6, 60e6, true},
		{"faster adc", 150e6, 250e6, 165e6, 85e6, true},
		{"first zone", 150e6, 500e6, 150e6, 150e6, false},
		{"nan", math.NaN(), 200e6, 140e6, 60e6, true},
		{"+inf", math.Inf(1), 200e6, 160e6, 40e6, true},
		{"-inf", math.Inf(-1), 200e6, -160e6, 40e6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, alias, folded := CoerceIF(tt.desired, tt.rate, Bandwidth)
			assert.InDelta(t, tt.want, got, 1e-3)
			assert.InDelta(t, tt.alias, alias, 1e-3)
			assert.Equal(t, tt.folded, folded)
		})
	}
}

// TestCoerceFreq tests RF reconstruction and clipping.
func TestCoerceFreq(t *testing.T) {
	assert.Equal(t, 1e9, CoerceFreq(3.345e9, 2.195e9, 150e6, InjHighSide, InjLowSide))
	assert.Equal(t, 1e9, CoerceFreq(3.345e9, 2.495e9, -150e6, InjHighSide, InjHighSide))
	assert.Equal(t, 6e9, CoerceFreq(4.75e9, 1.1e9, 150e6, InjLowSide, InjLowSide))
	assert.Equal(t, 6e9, CoerceFreq(6.8e9, 1.0e9, 150e6, InjLowSide, InjLowSide))
}

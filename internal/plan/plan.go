// Package plan reads HCL tune plans and applies them to a board.
//
// A plan is a sequence of property writes:
//
//	board {
//	  cal_mode = "disabled"
//	}
//
//	channel "0" {
//	  freq    = 2.4 * GHz
//	  if_freq = -150 * MHz
//	  gain    = 30
//	  prop "los/LO1/charge_pump/value" {
//	    value = 1.2 * uA
//	  }
//	}
//
// Blocks apply in file order and writes within a block in source order, so
// a plan replays the same sequence of writes every time. The unit variables
// Hz, kHz, MHz, GHz, s, ms, us, ns and uA are defined, as are the min, max,
// abs, floor and ceil functions.
package plan

import (
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// BoardTarget is the target of writes to the board property tree.
const BoardTarget = "board"

// Step is one property write.
type Step struct {
	// Target is BoardTarget or a channel name.
	Target string
	Path   string
	Value  any
	Range  hcl.Range
}

// Plan is a parsed tune plan.
type Plan struct {
	Name  string
	Steps []Step
}

type planFile struct {
	Boards   []*boardBlock   `hcl:"board,block"`
	Channels []*channelBlock `hcl:"channel,block"`
}

type boardBlock struct {
	CalMode    hcl.Expression `hcl:"cal_mode,optional"`
	LO1Hopping hcl.Expression `hcl:"lo1_hopping,optional"`
	LO2Hopping hcl.Expression `hcl:"lo2_hopping,optional"`
	Props      []*propBlock   `hcl:"prop,block"`
}

func (b *boardBlock) settings() []setting {
	return []setting{
		{"cal_mode/value", b.CalMode},
		{"los/LO1/hopping", b.LO1Hopping},
		{"los/LO2/hopping", b.LO2Hopping},
	}
}

type channelBlock struct {
	Name        string         `hcl:"name,label"`
	Freq        hcl.Expression `hcl:"freq,optional"`
	IFFreq      hcl.Expression `hcl:"if_freq,optional"`
	Bandwidth   hcl.Expression `hcl:"bandwidth,optional"`
	Gain        hcl.Expression `hcl:"gain,optional"`
	GainProfile hcl.Expression `hcl:"gain_profile,optional"`
	Antenna     hcl.Expression `hcl:"antenna,optional"`
	Enabled     hcl.Expression `hcl:"enabled,optional"`
	Source      hcl.Expression `hcl:"source,optional"`
	Export      hcl.Expression `hcl:"export,optional"`
	LO1Freq     hcl.Expression `hcl:"lo1_freq,optional"`
	LO2Freq     hcl.Expression `hcl:"lo2_freq,optional"`
	CommandTime hcl.Expression `hcl:"command_time,optional"`
	Props       []*propBlock   `hcl:"prop,block"`
}

func (b *channelBlock) settings() []setting {
	return []setting{
		{"freq/value", b.Freq},
		{"if_freq/value", b.IFFreq},
		{"bandwidth/value", b.Bandwidth},
		{"gains/all/value", b.Gain},
		{"gains/all/profile/value", b.GainProfile},
		{"antenna/value", b.Antenna},
		{"enabled", b.Enabled},
		{"los/all/source/value", b.Source},
		{"los/all/export", b.Export},
		{"los/LO1/freq/value", b.LO1Freq},
		{"los/LO2/freq/value", b.LO2Freq},
		{"time/cmd", b.CommandTime},
	}
}

type propBlock struct {
	Path  string         `hcl:"path,label"`
	Value hcl.Expression `hcl:"value"`
}

// setting pairs a property path with the expression assigned to it. Absent
// optional attributes decode to a null expression.
type setting struct {
	path string
	expr hcl.Expression
}

// EvalContext returns the variables and functions available to plans.
func EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"Hz":  cty.NumberFloatVal(1),
			"kHz": cty.NumberFloatVal(1e3),
			"MHz": cty.NumberFloatVal(1e6),
			"GHz": cty.NumberFloatVal(1e9),
			"s":   cty.NumberFloatVal(1),
			"ms":  cty.NumberFloatVal(1e-3),
			"us":  cty.NumberFloatVal(1e-6),
			"ns":  cty.NumberFloatVal(1e-9),
			"uA":  cty.NumberFloatVal(1e-6),
		},
		Functions: map[string]function.Function{
			"min":   stdlib.MinFunc,
			"max":   stdlib.MaxFunc,
			"abs":   stdlib.AbsoluteFunc,
			"floor": stdlib.FloorFunc,
			"ceil":  stdlib.CeilFunc,
		},
	}
}

// Load parses a plan file.
func Load(path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(src, path)
}

// Parse parses plan source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Plan, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse plan %s: %w", filename, diags)
	}

	ctx := EvalContext()
	var pf planFile
	if diags := gohcl.DecodeBody(file.Body, ctx, &pf); diags.HasErrors() {
		return nil, fmt.Errorf("decode plan %s: %w", filename, diags)
	}

	var steps []Step
	for _, b := range pf.Boards {
		s, err := blockSteps(ctx, BoardTarget, b.settings(), b.Props)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", filename, err)
		}
		steps = append(steps, s...)
	}
	for _, b := range pf.Channels {
		s, err := blockSteps(ctx, b.Name, b.settings(), b.Props)
		if err != nil {
			return nil, fmt.Errorf("plan %s: channel %q: %w", filename, b.Name, err)
		}
		steps = append(steps, s...)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Range.Start.Byte < steps[j].Range.Start.Byte
	})
	return &Plan{Name: filename, Steps: steps}, nil
}

func blockSteps(ctx *hcl.EvalContext, target string, settings []setting, props []*propBlock) ([]Step, error) {
	for _, p := range props {
		settings = append(settings, setting{path: p.Path, expr: p.Value})
	}

	var steps []Step
	for _, s := range settings {
		val, diags := s.expr.Value(ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		if val.IsNull() {
			continue
		}
		v, err := goValue(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", s.expr.Range(), s.path, err)
		}
		steps = append(steps, Step{Target: target, Path: s.path, Value: v, Range: s.expr.Range()})
	}
	return steps, nil
}

// goValue converts a primitive cty value. Whole numbers become int64 so
// integer properties take them without a float round trip.
func goValue(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("value must be known")
	}
	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Bool:
		return val.True(), nil
	case cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, fmt.Errorf("unsupported type %s", val.Type().FriendlyName())
	}
}

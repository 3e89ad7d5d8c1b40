package twinrx

import (
	"context"
	"log/slog"
	"slices"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/node"
)

type snapshotReader struct {
	sn  node.Snapshot
	err error
}

func lookup[T any](r *snapshotReader, name string) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := node.Lookup[T](r.sn, name)
	if err != nil {
		r.err = err
	}
	return v
}

// SettingsFrom derives the hardware settings from a pass snapshot.
func SettingsFrom(sn node.Snapshot) (Settings, error) {
	r := &snapshotReader{sn: sn}
	s := Settings{
		Channels:     make(map[string]ChannelSettings, len(Channels)),
		Antennas:     make(map[string]AntennaSettings, len(Channels)),
		ExportSource: make(map[Stage]ExportSource, len(Stages)),
		Hopping:      make(map[Stage]bool, len(Stages)),
		AntMapping:   lookup[AntMapping](r, nodeAntMapping),
		CalMode:      lookup[CalMode](r, nodeCalModeCoerced),
	}
	for _, st := range Stages {
		s.ExportSource[st] = lookup[ExportSource](r, comExportSource(st))
		s.Hopping[st] = lookup[bool](r, comHopping(st))
	}

	for _, ch := range Channels {
		cs := ChannelSettings{
			SignalPath:       lookup[SignalPath](r, chNode(ch, nodeSignalPath)),
			LBPresel:         lookup[Presel](r, chNode(ch, nodeLBPresel)),
			HBPresel:         lookup[Presel](r, chNode(ch, nodeHBPresel)),
			LBPreampPresel:   lookup[bool](r, chNode(ch, nodeLBPreampPresel)),
			InputAtten:       lookup[int64](r, chNode(ch, nodeInputAtten)),
			LBAtten:          lookup[int64](r, chNode(ch, nodeLBAtten)),
			HBAtten:          lookup[int64](r, chNode(ch, nodeHBAtten)),
			Preamp1:          lookup[PreampState](r, chNode(ch, nodePreamp1)),
			Preamp2:          lookup[bool](r, chNode(ch, nodePreamp2)),
			LOSource:         make(map[Stage]LOSource, len(Stages)),
			LOFreq:           make(map[Stage]float64, len(Stages)),
			ChargePump:       make(map[Stage]float64, len(Stages)),
			SynthMapping:     make(map[Stage]SynthMapping, len(Stages)),
			IFAlias:          lookup[float64](r, chNode(ch, nodeIFAlias)),
			SpectrumInverted: lookup[bool](r, chNode(ch, nodeSpectrumInv)),
			FrontendTime:     lookup[float64](r, chNode(ch, nodeTimeFrontend)),
		}
		for _, st := range Stages {
			cs.LOSource[st] = lookup[LOSource](r, chNode(ch, loSource(st)))
			cs.LOFreq[st] = lookup[float64](r, chNode(ch, loFreqCoerced(st)))
			cs.ChargePump[st] = lookup[float64](r, chNode(ch, loCPCoerced(st)))
			cs.SynthMapping[st] = lookup[SynthMapping](r, chNode(ch, loMapping(st)))
		}
		s.Channels[ch] = cs

		s.Antennas[ch] = AntennaSettings{
			InputAtten:     lookup[int64](r, chNode(ch, nodeAntInputAtten)),
			Preamp1:        lookup[PreampState](r, chNode(ch, nodeAntPreamp1)),
			Preamp2:        lookup[bool](r, chNode(ch, nodeAntPreamp2)),
			LBPreampPresel: lookup[bool](r, chNode(ch, nodeAntLBPreampPresel)),
		}
	}
	if r.err != nil {
		return Settings{}, r.err
	}
	return s, nil
}

// applyObserver hands every pass's settings to the hardware.
type applyObserver struct {
	ctrl Control
}

func (o applyObserver) Observe(ctx context.Context, p *engine.Pass) error {
	s, err := SettingsFrom(p.Snapshot)
	if err != nil {
		return err
	}
	return o.ctrl.Apply(ctx, s)
}

// conflictObserver reports topology conflicts settled during a pass.
type conflictObserver struct {
	log *slog.Logger
}

func (o conflictObserver) Observe(_ context.Context, p *engine.Pass) error {
	for _, name := range []string{nodeDiagExportConflict, nodeDiagAntConflict} {
		if !slices.Contains(p.Changed, name) {
			continue
		}
		loser, err := node.Lookup[string](p.Snapshot, name)
		if err != nil {
			return err
		}
		if loser != "" {
			o.log.Warn("topology conflict settled", "node", name, "overridden", loser, "seq", p.Seq)
		}
	}
	return nil
}

// Flatten returns the settings keyed by slash-separated field paths, such as
// "0/signal_path", "0/LO1/freq", "ant/1/input_atten" or "export_source/LO2".
// Values keep their Go types.
func (s Settings) Flatten() map[string]any {
	out := map[string]any{
		"ant_mapping": s.AntMapping,
		"cal_mode":    s.CalMode,
	}
	for st, src := range s.ExportSource {
		out["export_source/"+string(st)] = src
	}
	for st, on := range s.Hopping {
		out["hopping/"+string(st)] = on
	}
	for ch, c := range s.Channels {
		p := ch + "/"
		out[p+"signal_path"] = c.SignalPath
		out[p+"lb_presel"] = c.LBPresel
		out[p+"hb_presel"] = c.HBPresel
		out[p+"lb_preamp_presel"] = c.LBPreampPresel
		out[p+"input_atten"] = c.InputAtten
		out[p+"lb_atten"] = c.LBAtten
		out[p+"hb_atten"] = c.HBAtten
		out[p+"preamp1"] = c.Preamp1
		out[p+"preamp2"] = c.Preamp2
		out[p+"if_alias"] = c.IFAlias
		out[p+"spectrum_inverted"] = c.SpectrumInverted
		out[p+"frontend_time"] = c.FrontendTime
		for _, st := range Stages {
			sp := p + string(st) + "/"
			out[sp+"source"] = c.LOSource[st]
			out[sp+"freq"] = c.LOFreq[st]
			out[sp+"charge_pump"] = c.ChargePump[st]
			out[sp+"synth"] = c.SynthMapping[st]
		}
	}
	for idx, a := range s.Antennas {
		p := "ant/" + idx + "/"
		out[p+"input_atten"] = a.InputAtten
		out[p+"preamp1"] = a.Preamp1
		out[p+"preamp2"] = a.Preamp2
		out[p+"lb_preamp_presel"] = a.LBPreampPresel
	}
	return out
}

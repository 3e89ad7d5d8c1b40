package twinrx

import (
	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/node"
)

// Per-channel node paths. The full node name is "<ch>/<path>".
const (
	nodeTimeCmd      = "time/cmd"
	nodeTimeFrontend = "time/rx_frontend"

	nodeFreqDesired   = "freq/desired"
	nodeFreqCoerced   = "freq/coerced"
	nodeIFDesired     = "if_freq/desired"
	nodeIFCoerced     = "if_freq/coerced"
	nodeSource        = "los/all/source"
	nodeExportDesired = "los/all/export/desired"
	nodeExportCoerced = "los/all/export/coerced"

	nodeGain        = "gain"
	nodeGainProfile = "gain_profile"
	nodeAntDesired  = "antenna/desired"
	nodeAntCoerced  = "antenna/coerced"
	nodeEnabled     = "enabled"
	nodeLOLocked    = "sensors/lo_locked"

	nodeSignalPath     = "ch/signal_path"
	nodeLBPresel       = "ch/lb_presel"
	nodeHBPresel       = "ch/hb_presel"
	nodeLBPreampPresel = "ch/lb_preamp_presel"
	nodeIFAlias        = "ch/if_alias"
	nodeNyquistFold    = "ch/nyquist_inverted"
	nodeSpectrumInv    = "ch/spectrum_inverted"
	nodeInputAtten     = "ch/input_atten"
	nodeLBAtten        = "ch/lb_atten"
	nodeHBAtten        = "ch/hb_atten"
	nodePreamp1        = "ch/preamp1"
	nodePreamp2        = "ch/preamp2"

	nodeAntInputAtten     = "ant/input_atten"
	nodeAntPreamp1        = "ant/preamp1"
	nodeAntPreamp2        = "ant/preamp2"
	nodeAntLBPreampPresel = "ant/lb_preamp_presel"
)

// Shared node names.
const (
	nodeAntMapping         = "com/ant_mapping"
	nodeCalModeDesired     = "com/cal_mode/desired"
	nodeCalModeCoerced     = "com/cal_mode/coerced"
	nodeDiagExportConflict = "com/diag/lo_export_conflict"
	nodeDiagAntConflict    = "com/diag/antenna_conflict"
)

func chNode(ch, path string) string { return ch + "/" + path }

func loFreqDesired(st Stage) string { return "los/" + string(st) + "/freq/desired" }
func loFreqCoerced(st Stage) string { return "los/" + string(st) + "/freq/coerced" }
func loCPDesired(st Stage) string   { return "los/" + string(st) + "/charge_pump/desired" }
func loCPCoerced(st Stage) string   { return "los/" + string(st) + "/charge_pump/coerced" }
func loTarget(st Stage) string      { return "ch/" + string(st) + "/freq/target" }
func loInjSide(st Stage) string     { return "ch/" + string(st) + "/inj_side" }
func loSource(st Stage) string      { return "ch/" + string(st) + "/source" }
func loMapping(st Stage) string     { return "synth/" + string(st) + "/mapping" }

func comExportSource(st Stage) string { return "com/" + string(st) + "/export_source" }
func comHopping(st Stage) string      { return "com/synth/" + string(st) + "/hopping_enabled" }

// NodeName returns the full node name of a per-channel path, for tools that
// inspect snapshots.
func NodeName(ch, path string) string { return chNode(ch, path) }

var (
	userNode  = node.WithAccess(node.UserProperty)
	coercedBy = node.WithAccess(node.Property)
)

func declareShared(c *engine.Container) error {
	for _, st := range Stages {
		if err := engine.Declare(c, comExportSource(st), ExportDisabled); err != nil {
			return err
		}
		if err := engine.Declare(c, comHopping(st), false, userNode); err != nil {
			return err
		}
	}
	if err := engine.Declare(c, nodeAntMapping, AntNative); err != nil {
		return err
	}
	if err := engine.Declare(c, nodeCalModeDesired, CalDisabled, userNode, node.WithCoercer(coerceCalMode)); err != nil {
		return err
	}
	if err := engine.Declare(c, nodeCalModeCoerced, CalDisabled, coercedBy); err != nil {
		return err
	}
	if err := engine.Declare(c, nodeDiagExportConflict, ""); err != nil {
		return err
	}
	return engine.Declare(c, nodeDiagAntConflict, "")
}

func defaultAntenna(ch string) Antenna {
	if ch == Ch0 {
		return AntRX1
	}
	return AntRX2
}

// declareChannel creates every node of one channel. Nodes are declared
// through a small accumulator so the first failure wins.
func declareChannel(c *engine.Container, ch string, rev Revision, locked func() (bool, error)) error {
	d := declarer{c: c, ch: ch}

	declare(&d, nodeTimeCmd, 0.0, userNode)
	declare(&d, nodeTimeFrontend, 0.0)

	declare(&d, nodeFreqDesired, DefaultFreq, userNode)
	declare(&d, nodeFreqCoerced, DefaultFreq, coercedBy)
	declare(&d, nodeIFDesired, DefaultIF, userNode)
	declare(&d, nodeIFCoerced, DefaultIF, coercedBy)

	declare(&d, nodeSource, SourceInternal, userNode, node.WithCoercer(coerceSource))
	declare(&d, nodeExportDesired, false, userNode)
	declare(&d, nodeExportCoerced, false, coercedBy)

	for _, st := range Stages {
		declare(&d, loFreqDesired(st), 0.0, userNode)
		declare(&d, loFreqCoerced(st), 0.0, coercedBy)
		declare(&d, loCPDesired(st), rev.ChargePumpDefault[st], userNode)
		declare(&d, loCPCoerced(st), rev.ChargePumpDefault[st], coercedBy)
		declare(&d, loTarget(st), 0.0)
		declare(&d, loInjSide(st), InjLowSide)
		declare(&d, loSource(st), SourceInternal)
		declare(&d, loMapping(st), MappingNone)
	}

	declare(&d, nodeGain, 0.0, userNode, node.WithCoercer(GainRange.Clip))
	declare(&d, nodeGainProfile, ProfileDefault, userNode, node.WithCoercer(coerceProfile))
	declare(&d, nodeAntDesired, defaultAntenna(ch), userNode, node.WithCoercer(func(a Antenna) Antenna {
		if a.valid() {
			return a
		}
		return defaultAntenna(ch)
	}))
	declare(&d, nodeAntCoerced, defaultAntenna(ch), coercedBy)
	declare(&d, nodeEnabled, false, userNode)
	declare(&d, nodeLOLocked, false, node.WithPublisher(locked))

	declare(&d, nodeSignalPath, PathLowband)
	declare(&d, nodeLBPresel, PreselPath1)
	declare(&d, nodeHBPresel, PreselPath1)
	declare(&d, nodeLBPreampPresel, false)
	declare(&d, nodeIFAlias, 0.0)
	declare(&d, nodeNyquistFold, false)
	declare(&d, nodeSpectrumInv, false)
	declare(&d, nodeInputAtten, int64(0))
	declare(&d, nodeLBAtten, int64(0))
	declare(&d, nodeHBAtten, int64(0))
	declare(&d, nodePreamp1, PreampBypass)
	declare(&d, nodePreamp2, false)

	declare(&d, nodeAntInputAtten, int64(0))
	declare(&d, nodeAntPreamp1, PreampBypass)
	declare(&d, nodeAntPreamp2, false)
	declare(&d, nodeAntLBPreampPresel, false)
	return d.err
}

type declarer struct {
	c   *engine.Container
	ch  string
	err error
}

func declare[T comparable](d *declarer, path string, initial T, opts ...node.Option) {
	if d.err != nil {
		return
	}
	d.err = engine.Declare(d.c, chNode(d.ch, path), initial, opts...)
}

func coerceSource(s LOSource) LOSource {
	switch s {
	case SourceInternal, SourceExternal, SourceCompanion, SourceDisabled, SourceReimport:
		return s
	}
	return SourceInternal
}

func coerceProfile(p GainProfile) GainProfile {
	switch p {
	case ProfileLowNoise, ProfileLowDistortion, ProfileDefault:
		return p
	}
	return ProfileDefault
}

func coerceCalMode(m CalMode) CalMode {
	switch m {
	case CalDisabled, CalCh0, CalCh1:
		return m
	}
	return CalDisabled
}

package twinrx

// Stage names one of the two LO stages.
type Stage string

const (
	LO1 Stage = "LO1"
	LO2 Stage = "LO2"
)

// Stages lists the LO stages in signal order.
var Stages = []Stage{LO1, LO2}

// Channel names. A board has exactly these two front-ends.
const (
	Ch0 = "0"
	Ch1 = "1"
)

// Channels lists the channel names in construction order.
var Channels = []string{Ch0, Ch1}

func other(ch string) string {
	if ch == Ch0 {
		return Ch1
	}
	return Ch0
}

// InjSide is the side of the signal a mixer's LO sits on.
type InjSide string

const (
	InjLowSide  InjSide = "low"
	InjHighSide InjSide = "high"
)

// SignalPath selects the lowband or highband RF path.
type SignalPath string

const (
	PathLowband  SignalPath = "lowband"
	PathHighband SignalPath = "highband"
)

// Presel is a preselector filter bank position.
type Presel string

const (
	PreselPath1 Presel = "path1"
	PreselPath2 Presel = "path2"
	PreselPath3 Presel = "path3"
	PreselPath4 Presel = "path4"
)

// PreampState is the first preamplifier's routing.
type PreampState string

const (
	PreampBypass   PreampState = "bypass"
	PreampLowband  PreampState = "lowband"
	PreampHighband PreampState = "highband"
)

// LOSource is a channel's LO source selection.
type LOSource string

const (
	SourceInternal  LOSource = "internal"
	SourceExternal  LOSource = "external"
	SourceCompanion LOSource = "companion"
	SourceDisabled  LOSource = "disabled"
	SourceReimport  LOSource = "reimport"
)

// SourceOptions lists the LO source selections in display order.
var SourceOptions = []string{
	string(SourceInternal), string(SourceExternal), string(SourceCompanion),
	string(SourceDisabled), string(SourceReimport),
}

// ownsSynth reports whether a channel with this source drives its own
// synthesizer.
func (s LOSource) ownsSynth() bool {
	return s == SourceInternal || s == SourceReimport
}

// ExportSource names the channel whose synthesizer drives the LO export bus.
type ExportSource string

const (
	ExportDisabled ExportSource = "disabled"
	ExportCh0      ExportSource = "ch0"
	ExportCh1      ExportSource = "ch1"
)

func exportOf(ch string) ExportSource {
	if ch == Ch0 {
		return ExportCh0
	}
	return ExportCh1
}

// SynthMapping records which synthesizer serves a channel's LO stage.
type SynthMapping string

const (
	MappingNone   SynthMapping = "none"
	MappingCh0    SynthMapping = "ch0"
	MappingCh1    SynthMapping = "ch1"
	MappingShared SynthMapping = "shared"
)

func synthOf(ch string) SynthMapping {
	if ch == Ch0 {
		return MappingCh0
	}
	return MappingCh1
}

// Antenna is a physical connector name.
type Antenna string

const (
	AntRX1 Antenna = "RX1"
	AntRX2 Antenna = "RX2"
)

// AntennaOptions lists the connectors.
var AntennaOptions = []string{string(AntRX1), string(AntRX2)}

func (a Antenna) valid() bool { return a == AntRX1 || a == AntRX2 }

func (a Antenna) flip() Antenna {
	if a == AntRX1 {
		return AntRX2
	}
	return AntRX1
}

// AntMapping is the connector-to-channel mapping mode.
type AntMapping string

const (
	AntNative  AntMapping = "NATIVE"
	AntSwapped AntMapping = "SWAPPED"
)

// CalMode routes the calibration tone into one channel.
type CalMode string

const (
	CalDisabled CalMode = "disabled"
	CalCh0      CalMode = "ch0"
	CalCh1      CalMode = "ch1"
)

// CalModeOptions lists the calibration modes.
var CalModeOptions = []string{string(CalDisabled), string(CalCh0), string(CalCh1)}

// GainProfile selects how gain is spread across the stages.
type GainProfile string

const (
	ProfileLowNoise      GainProfile = "low-noise"
	ProfileLowDistortion GainProfile = "low-distortion"
	ProfileDefault       GainProfile = "default"
)

// ProfileOptions lists the gain profiles.
var ProfileOptions = []string{string(ProfileLowNoise), string(ProfileLowDistortion), string(ProfileDefault)}

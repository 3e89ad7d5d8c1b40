package twinrx

import (
	"context"

	"github.com/roach88/twinrx/internal/value"
)

// Control is the hardware collaborator. The board consults ChargePumpRange
// while building, hands resolved Settings to Apply after every pass and
// polls LOLocked for the lock sensor. None of it is called from a worker.
type Control interface {
	ChargePumpRange(stage Stage) value.Range
	Apply(ctx context.Context, s Settings) error
	LOLocked(ch string, stage Stage) (bool, error)
}

// ChannelSettings are the register-level settings of one channel.
type ChannelSettings struct {
	SignalPath     SignalPath
	LBPresel       Presel
	HBPresel       Presel
	LBPreampPresel bool
	InputAtten     int64
	LBAtten        int64
	HBAtten        int64
	Preamp1        PreampState
	Preamp2        bool

	LOSource     map[Stage]LOSource
	LOFreq       map[Stage]float64
	ChargePump   map[Stage]float64
	SynthMapping map[Stage]SynthMapping

	IFAlias          float64
	SpectrumInverted bool
	FrontendTime     float64
}

// AntennaSettings are the gain settings of the stages ahead of the channel
// switch, indexed by connector.
type AntennaSettings struct {
	InputAtten     int64
	Preamp1        PreampState
	Preamp2        bool
	LBPreampPresel bool
}

// Settings is everything the hardware needs after a pass.
type Settings struct {
	Channels     map[string]ChannelSettings
	Antennas     map[string]AntennaSettings
	ExportSource map[Stage]ExportSource
	Hopping      map[Stage]bool
	AntMapping   AntMapping
	CalMode      CalMode
}

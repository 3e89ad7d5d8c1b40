package twinrx

import (
	"fmt"
	"slices"

	"github.com/roach88/twinrx/internal/value"
)

// Revision describes one hardware revision of the board.
type Revision struct {
	ID   uint16
	Name string
	// ChargePump holds the per-stage charge pump current ranges in amperes.
	ChargePump map[Stage]value.Range
	// ChargePumpDefault holds the per-stage power-on currents.
	ChargePumpDefault map[Stage]float64
}

var (
	cpStandard = value.MustRange(value.Stepped(0.3125e-6, 5e-6, 0.3125e-6))
	cpRevC     = value.MustRange(value.Stepped(0.3e-6, 4.8e-6, 0.3e-6))
)

var revisions = []Revision{
	{
		ID:                0x91,
		Name:              "A",
		ChargePump:        map[Stage]value.Range{LO1: cpStandard, LO2: cpStandard},
		ChargePumpDefault: map[Stage]float64{LO1: 0.9375e-6, LO2: 1.25e-6},
	},
	{
		ID:                0x93,
		Name:              "B",
		ChargePump:        map[Stage]value.Range{LO1: cpStandard, LO2: cpStandard},
		ChargePumpDefault: map[Stage]float64{LO1: 0.9375e-6, LO2: 1.25e-6},
	},
	{
		ID:                0x95,
		Name:              "C",
		ChargePump:        map[Stage]value.Range{LO1: cpRevC, LO2: cpStandard},
		ChargePumpDefault: map[Stage]float64{LO1: 0.9e-6, LO2: 1.25e-6},
	},
}

// Revisions returns the registered revisions ordered by id.
func Revisions() []Revision {
	return slices.Clone(revisions)
}

// LookupRevision finds a revision by board id.
func LookupRevision(id uint16) (Revision, error) {
	for _, r := range revisions {
		if r.ID == id {
			return r, nil
		}
	}
	return Revision{}, fmt.Errorf("unknown TwinRX revision id %#x", id)
}

func (r Revision) String() string {
	return fmt.Sprintf("TwinRX rev %s (%#x)", r.Name, r.ID)
}

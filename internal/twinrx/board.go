package twinrx

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/graph"
	"github.com/roach88/twinrx/internal/prop"
)

// ConstructionError reports a board assembled out of order.
type ConstructionError struct {
	Op     string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("twinrx %s: %s", e.Op, e.Reason)
}

// IsConstructionError returns true if err is a ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

type options struct {
	adcRate    float64
	synthStep  float64
	retuneLead float64
	log        *slog.Logger
	engine     []engine.Option
}

// Option configures a Board.
type Option func(*options)

// WithADCRate sets the digitizer sample rate used for IF placement.
func WithADCRate(rate float64) Option {
	return func(o *options) { o.adcRate = rate }
}

// WithSynthStep sets the LO synthesizer resolution.
func WithSynthStep(step float64) Option {
	return func(o *options) { o.synthStep = step }
}

// WithRetuneLead sets the hopping retune lead in seconds.
func WithRetuneLead(lead float64) Option {
	return func(o *options) { o.retuneLead = lead }
}

// WithLogger sets the board and engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithEngineOptions passes options through to the engine container.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// Board is one TwinRX daughterboard: the container for both front-ends and
// the shared LO and antenna state.
type Board struct {
	rev   Revision
	ctrl  Control
	opts  options
	c     *engine.Container
	props *prop.Tree
	fes   []*Frontend
	log   *slog.Logger
}

// Frontend is one receive channel of a board.
type Frontend struct {
	name  string
	board *Board
	props *prop.Tree
}

// NewBoard creates the container for a board with the given revision id.
func NewBoard(revID uint16, ctrl Control, opts ...Option) (*Board, error) {
	rev, err := LookupRevision(revID)
	if err != nil {
		return nil, &ConstructionError{Op: "new board", Reason: err.Error()}
	}
	if ctrl == nil {
		return nil, &ConstructionError{Op: "new board", Reason: "nil hardware control"}
	}

	o := options{
		adcRate:    DefaultADCRate,
		synthStep:  DefaultSynthStep,
		retuneLead: DefaultRetuneLead,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	eopts := []engine.Option{
		engine.WithLogger(o.log),
		engine.WithObserver(applyObserver{ctrl: ctrl}),
		engine.WithObserver(conflictObserver{log: o.log}),
	}
	b := &Board{
		rev:  rev,
		ctrl: ctrl,
		opts: o,
		c:    engine.New("twinrx", append(eopts, o.engine...)...),
		log:  o.log.With("board", "twinrx", "revision", rev.Name),
	}
	if err := declareShared(b.c); err != nil {
		return nil, err
	}
	b.props = prop.NewTree(b.c, "board")
	if err := b.addBoardProps(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewFrontend creates the next front-end. Channel "0" must come first, then
// channel "1", both before Initialize.
func (b *Board) NewFrontend(name string) (*Frontend, error) {
	if b.c.Initialized() {
		return nil, &ConstructionError{Op: "new frontend", Reason: "board already initialized"}
	}
	if len(b.fes) == len(Channels) {
		return nil, &ConstructionError{Op: "new frontend", Reason: "board already has both front-ends"}
	}
	if want := Channels[len(b.fes)]; name != want {
		return nil, &ConstructionError{Op: "new frontend", Reason: fmt.Sprintf("front-end %q out of order, want %q", name, want)}
	}

	if err := declareChannel(b.c, name, b.rev, b.lockSensor(name)); err != nil {
		return nil, err
	}
	fe := &Frontend{name: name, board: b, props: prop.NewTree(b.c, "rx"+name)}
	if err := fe.addProps(); err != nil {
		return nil, err
	}
	b.fes = append(b.fes, fe)
	return fe, nil
}

// Initialize registers the workers, builds the graph and runs the first
// forced pass.
func (b *Board) Initialize() error {
	if b.c.Initialized() {
		return &ConstructionError{Op: "initialize", Reason: "board already initialized"}
	}
	if len(b.fes) != len(Channels) {
		return &ConstructionError{Op: "initialize", Reason: fmt.Sprintf("board has %d of %d front-ends", len(b.fes), len(Channels))}
	}

	for _, w := range b.workers() {
		if err := b.c.AddWorker(w); err != nil {
			return err
		}
	}
	if err := b.c.Initialize(); err != nil {
		return err
	}
	b.log.Info("board initialized", "session", b.c.Session())
	return nil
}

// workers lists the workers in registration order: per-channel first, in
// channel order, then the shared ones.
func (b *Board) workers() []graph.Worker {
	var ws []graph.Worker
	for _, fe := range b.fes {
		ws = append(ws,
			newFreqPathWorker(fe.name, b.opts.synthStep),
			newFreqCoercionWorker(fe.name),
			newChanGainWorker(fe.name),
			newSchedulingWorker(fe.name, b.opts.retuneLead),
			newNyquistWorker(fe.name, b.opts.adcRate),
		)
	}
	ws = append(ws,
		newLOConfigWorker(),
		newLOMappingWorker(LO1),
		newLOMappingWorker(LO2),
		newSynthWorker(LO1, b.opts.synthStep, b.ctrl.ChargePumpRange(LO1)),
		newSynthWorker(LO2, b.opts.synthStep, b.ctrl.ChargePumpRange(LO2)),
		newAntennaWorker(),
		newAntGainWorker(),
	)
	return ws
}

func (b *Board) lockSensor(ch string) func() (bool, error) {
	return func() (bool, error) {
		for _, st := range Stages {
			locked, err := b.ctrl.LOLocked(ch, st)
			if err != nil || !locked {
				return false, err
			}
		}
		return true, nil
	}
}

func (b *Board) addBoardProps() error {
	t := b.props
	errs := []error{
		prop.AddConst(t, "revision", b.rev.Name),
		prop.AddNode[bool](t, "los/LO1/hopping", comHopping(LO1), prop.ResolveOnWrite),
		prop.AddNode[bool](t, "los/LO2/hopping", comHopping(LO2), prop.ResolveOnWrite),
		prop.AddDual[CalMode](t, "cal_mode/value", nodeCalModeDesired, nodeCalModeCoerced, prop.ResolveOnWrite),
		prop.AddOptions(t, "cal_mode/options", CalModeOptions),
		prop.AddView[AntMapping](t, "ant_mapping", nodeAntMapping),
		prop.AddView[ExportSource](t, "los/LO1/export_source", comExportSource(LO1)),
		prop.AddView[ExportSource](t, "los/LO2/export_source", comExportSource(LO2)),
		prop.AddView[string](t, "diag/lo_export_conflict", nodeDiagExportConflict),
		prop.AddView[string](t, "diag/antenna_conflict", nodeDiagAntConflict),
	}
	return errors.Join(errs...)
}

func (fe *Frontend) addProps() error {
	t, ch, b := fe.props, fe.name, fe.board
	connection := "II"
	if ch == Ch1 {
		connection = "QQ"
	}
	errs := []error{
		prop.AddConst(t, "name", "TwinRX RX"+ch),
		prop.AddConst(t, "id", "twinrx"),
		prop.AddConst(t, "connection", connection),
		prop.AddConst(t, "use_lo_offset", false),
		prop.AddRange(t, "bandwidth/range", BandwidthRange),
		prop.AddPlain(t, "bandwidth/value", Bandwidth, BandwidthRange.Clip),
		prop.AddNode[float64](t, "time/cmd", chNode(ch, nodeTimeCmd), prop.ResolveOnWrite),

		prop.AddRange(t, "freq/range", FreqRange),
		prop.AddDual[float64](t, "freq/value", chNode(ch, nodeFreqDesired), chNode(ch, nodeFreqCoerced), prop.ResolveOnReadWrite),
		prop.AddRange(t, "if_freq/range", IFRange),
		prop.AddDual[float64](t, "if_freq/value", chNode(ch, nodeIFDesired), chNode(ch, nodeIFCoerced), prop.ResolveOnWrite),
	}
	for _, st := range Stages {
		base := "los/" + string(st)
		errs = append(errs,
			prop.AddRange(t, base+"/freq/range", LORange[st]),
			prop.AddDual[float64](t, base+"/freq/value", chNode(ch, loFreqDesired(st)), chNode(ch, loFreqCoerced(st)), prop.ResolveOnRead),
			prop.AddRange(t, base+"/charge_pump/range", b.ctrl.ChargePumpRange(st)),
			prop.AddDual[float64](t, base+"/charge_pump/value", chNode(ch, loCPDesired(st)), chNode(ch, loCPCoerced(st)), prop.ResolveOnRead),
		)
	}
	errs = append(errs,
		prop.AddOptions(t, "los/all/source/options", SourceOptions),
		prop.AddNode[LOSource](t, "los/all/source/value", chNode(ch, nodeSource), prop.ResolveOnWrite),
		prop.AddDual[bool](t, "los/all/export", chNode(ch, nodeExportDesired), chNode(ch, nodeExportCoerced), prop.ResolveOnWrite),

		prop.AddRange(t, "gains/all/range", GainRange),
		prop.AddNode[float64](t, "gains/all/value", chNode(ch, nodeGain), prop.ResolveOnWrite),
		prop.AddOptions(t, "gains/all/profile/options", ProfileOptions),
		prop.AddNode[GainProfile](t, "gains/all/profile/value", chNode(ch, nodeGainProfile), prop.ResolveOnWrite),

		prop.AddOptions(t, "antenna/options", AntennaOptions),
		prop.AddDual[Antenna](t, "antenna/value", chNode(ch, nodeAntDesired), chNode(ch, nodeAntCoerced), prop.ResolveOnWrite),
		prop.AddNode[bool](t, "enabled", chNode(ch, nodeEnabled), prop.ResolveOnWrite),

		prop.AddSensor[bool](t, "sensors/lo_locked", chNode(ch, nodeLOLocked)),
	)
	return errors.Join(errs...)
}

// Revision returns the board revision.
func (b *Board) Revision() Revision { return b.rev }

// Props returns the board-level property tree.
func (b *Board) Props() *prop.Tree { return b.props }

// Container returns the engine container.
func (b *Board) Container() *engine.Container { return b.c }

// Frontends returns the front-ends created so far, in channel order.
func (b *Board) Frontends() []*Frontend { return slices.Clone(b.fes) }

// Frontend returns a front-end by channel name.
func (b *Board) Frontend(name string) (*Frontend, bool) {
	for _, fe := range b.fes {
		if fe.name == name {
			return fe, true
		}
	}
	return nil, false
}

// Settings derives the hardware settings from the current stored values.
// Pending writes are not resolved first.
func (b *Board) Settings() (Settings, error) {
	return SettingsFrom(b.c.Snapshot())
}

// Name returns the channel name.
func (fe *Frontend) Name() string { return fe.name }

// Props returns the channel's property tree.
func (fe *Frontend) Props() *prop.Tree { return fe.props }

// Board returns the owning board.
func (fe *Frontend) Board() *Board { return fe.board }

// Build runs the whole construction sequence for a board.
func Build(revID uint16, ctrl Control, opts ...Option) (*Board, error) {
	b, err := NewBoard(revID, ctrl, opts...)
	if err != nil {
		return nil, err
	}
	for _, ch := range Channels {
		if _, err := b.NewFrontend(ch); err != nil {
			return nil, err
		}
	}
	if err := b.Initialize(); err != nil {
		return nil, err
	}
	return b, nil
}

// Package config loads board profiles.
//
// A profile is read with viper from an optional YAML file, overridden by
// TWINRX_* environment variables, and checked against an embedded CUE
// schema before use.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/roach88/twinrx/internal/engine"
	"github.com/roach88/twinrx/internal/twinrx"
)

//go:embed schema.cue
var schemaCUE string

// EnvPrefix prefixes environment overrides, e.g. TWINRX_LOG_LEVEL.
const EnvPrefix = "TWINRX"

// Profile holds the settings of one board session.
type Profile struct {
	Board           string  `mapstructure:"board"`
	Revision        uint16  `mapstructure:"revision"`
	ADCRate         float64 `mapstructure:"adc_rate"`
	SynthStep       float64 `mapstructure:"synth_step"`
	IterationBudget int     `mapstructure:"iteration_budget"`
	RetuneLead      float64 `mapstructure:"retune_lead"`
	// Journal is the SQLite journal path. Empty disables journaling.
	Journal string `mapstructure:"journal"`
	Log     Log    `mapstructure:"log"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ProfileError reports an invalid profile.
type ProfileError struct {
	Source string
	Err    error
}

func (e *ProfileError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid profile: %v", e.Err)
	}
	return fmt.Sprintf("invalid profile %s: %v", e.Source, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// IsProfileError reports whether err is a ProfileError.
func IsProfileError(err error) bool {
	var pe *ProfileError
	return errors.As(err, &pe)
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{
		Board:           "twinrx",
		Revision:        0x95,
		ADCRate:         twinrx.DefaultADCRate,
		SynthStep:       twinrx.DefaultSynthStep,
		IterationBudget: engine.DefaultIterationBudget,
		RetuneLead:      twinrx.DefaultRetuneLead,
		Log:             Log{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("board", d.Board)
	v.SetDefault("revision", d.Revision)
	v.SetDefault("adc_rate", d.ADCRate)
	v.SetDefault("synth_step", d.SynthStep)
	v.SetDefault("iteration_budget", d.IterationBudget)
	v.SetDefault("retune_lead", d.RetuneLead)
	v.SetDefault("journal", d.Journal)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads a profile. An empty path loads defaults and environment
// overrides only. Unknown keys in the file are rejected.
func Load(path string) (Profile, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
		}
	}

	var p Profile
	if err := v.UnmarshalExact(&p); err != nil {
		return Profile{}, &ProfileError{Source: path, Err: err}
	}
	if err := p.Validate(); err != nil {
		var pe *ProfileError
		if errors.As(err, &pe) {
			pe.Source = path
		}
		return Profile{}, err
	}
	return p, nil
}

// profileSchema compiles the schema into a fresh context. CUE values are
// not safe for concurrent use, so nothing is cached.
func profileSchema() (*cue.Context, cue.Value, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := root.Err(); err != nil {
		return nil, cue.Value{}, fmt.Errorf("compile profile schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath("#Profile"))
	if err := def.Err(); err != nil {
		return nil, cue.Value{}, fmt.Errorf("compile profile schema: %w", err)
	}
	return ctx, def, nil
}

// Validate checks the profile against the schema and the revision registry.
func (p Profile) Validate() error {
	ctx, schema, err := profileSchema()
	if err != nil {
		return err
	}

	val := ctx.Encode(p.fields())
	if err := schema.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return &ProfileError{Err: err}
	}
	if _, err := twinrx.LookupRevision(p.Revision); err != nil {
		return &ProfileError{Err: err}
	}
	return nil
}

func (p Profile) fields() map[string]any {
	return map[string]any{
		"board":            p.Board,
		"revision":         int(p.Revision),
		"adc_rate":         p.ADCRate,
		"synth_step":       p.SynthStep,
		"iteration_budget": p.IterationBudget,
		"retune_lead":      p.RetuneLead,
		"journal":          p.Journal,
		"log": map[string]any{
			"level":  p.Log.Level,
			"format": p.Log.Format,
		},
	}
}

// BoardOptions converts the profile into board construction options.
func (p Profile) BoardOptions() []twinrx.Option {
	return []twinrx.Option{
		twinrx.WithADCRate(p.ADCRate),
		twinrx.WithSynthStep(p.SynthStep),
		twinrx.WithRetuneLead(p.RetuneLead),
		twinrx.WithEngineOptions(engine.WithIterationBudget(p.IterationBudget)),
	}
}

// Package config loads inversion scenarios from YAML: the region layout,
// engine settings and optional structural-coupling settings. Data vectors
// and forward operators are program inputs, not configuration, and are bound
// separately.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/joinvert/coupling"
	"github.com/katalvlaran/joinvert/inversion"
	"github.com/katalvlaran/joinvert/region"
	"github.com/katalvlaran/joinvert/transform"
)

// Sentinel errors for scenario loading.
var (
	// ErrBadScenario indicates a scenario that parsed but fails validation.
	ErrBadScenario = errors.New("config: invalid scenario")

	// ErrUnknownTransform indicates a transform name outside
	// {identity, log, loglu}.
	ErrUnknownTransform = errors.New("config: unknown transform name")
)

// RegionSpec is the YAML form of one model region. Lower and Upper are only
// consulted for the loglu transform.
type RegionSpec struct {
	ID         int     `yaml:"id"`
	Start      int     `yaml:"start"`
	End        int     `yaml:"end"`
	Transform  string  `yaml:"transform"`
	Lower      float64 `yaml:"lower"`
	Upper      float64 `yaml:"upper"`
	Order      int     `yaml:"order"`
	StartValue float64 `yaml:"start_value"`
}

// EngineSpec is the YAML form of the engine options; nil fields keep the
// engine defaults.
type EngineSpec struct {
	Lambda      *float64 `yaml:"lambda"`
	LambdaDecay *float64 `yaml:"lambda_decay"`
	MaxIter     *int     `yaml:"max_iter"`
	DeltaPhi    *float64 `yaml:"delta_phi"`
	LineSearch  bool     `yaml:"line_search"`
}

// CouplingSpec is the YAML form of the controller options; nil fields keep
// the controller defaults.
type CouplingSpec struct {
	Constant        *float64 `yaml:"constant"`
	MaxRounds       *int     `yaml:"max_rounds"`
	StopTolerance   *float64 `yaml:"stop_tolerance"`
	UncoupledRounds *int     `yaml:"uncoupled_rounds"`
}

// Scenario is a full declarative inversion setup.
type Scenario struct {
	ModelLen int           `yaml:"model_len"`
	Regions  []RegionSpec  `yaml:"regions"`
	Engine   *EngineSpec   `yaml:"engine"`
	Coupling *CouplingSpec `yaml:"coupling"`
}

// Load decodes one scenario from r. Unknown fields are rejected so typos in
// hand-written files fail loudly.
func Load(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if s.ModelLen <= 0 {
		return nil, fmt.Errorf("model_len %d: %w", s.ModelLen, ErrBadScenario)
	}
	if len(s.Regions) == 0 {
		return nil, fmt.Errorf("no regions: %w", ErrBadScenario)
	}

	return &s, nil
}

// buildTransform maps a transform name to its implementation.
func buildTransform(spec RegionSpec) (transform.Transform, error) {
	switch spec.Transform {
	case "", "identity":
		return transform.Identity{}, nil
	case "log":
		return transform.Log{}, nil
	case "loglu":
		tr, err := transform.NewLogLU(spec.Lower, spec.Upper)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", spec.ID, err)
		}

		return tr, nil
	default:
		return nil, fmt.Errorf("region %d: %q: %w", spec.ID, spec.Transform, ErrUnknownTransform)
	}
}

// Manager assembles the region manager from the scenario; partition and
// order validation is the manager's.
func (s *Scenario) Manager() (*region.Manager, error) {
	regs := make([]region.Region, 0, len(s.Regions))
	for _, spec := range s.Regions {
		tr, err := buildTransform(spec)
		if err != nil {
			return nil, err
		}
		regs = append(regs, region.Region{
			ID:         spec.ID,
			Start:      spec.Start,
			End:        spec.End,
			Trans:      tr,
			Order:      spec.Order,
			StartValue: spec.StartValue,
		})
	}

	return region.NewManager(s.ModelLen, regs)
}

// EngineOptions translates the engine section into functional options.
// Values the option constructors would panic on are reported as
// ErrBadScenario instead.
func (s *Scenario) EngineOptions() ([]inversion.Option, error) {
	if s.Engine == nil {
		return nil, nil
	}
	e := s.Engine

	var opts []inversion.Option
	if e.Lambda != nil {
		if *e.Lambda < 0 || !isFinite(*e.Lambda) {
			return nil, fmt.Errorf("lambda %g: %w", *e.Lambda, ErrBadScenario)
		}
		opts = append(opts, inversion.WithLambda(*e.Lambda))
	}
	if e.LambdaDecay != nil {
		if *e.LambdaDecay <= 0 || *e.LambdaDecay > 1 || math.IsNaN(*e.LambdaDecay) {
			return nil, fmt.Errorf("lambda_decay %g: %w", *e.LambdaDecay, ErrBadScenario)
		}
		opts = append(opts, inversion.WithLambdaDecay(*e.LambdaDecay))
	}
	if e.MaxIter != nil {
		if *e.MaxIter < 1 {
			return nil, fmt.Errorf("max_iter %d: %w", *e.MaxIter, ErrBadScenario)
		}
		opts = append(opts, inversion.WithMaxIter(*e.MaxIter))
	}
	if e.DeltaPhi != nil {
		if *e.DeltaPhi < 0 || !isFinite(*e.DeltaPhi) {
			return nil, fmt.Errorf("delta_phi %g: %w", *e.DeltaPhi, ErrBadScenario)
		}
		opts = append(opts, inversion.WithDeltaPhi(*e.DeltaPhi))
	}
	if e.LineSearch {
		opts = append(opts, inversion.WithLineSearch())
	}

	return opts, nil
}

// CouplingOptions translates the coupling section into functional options;
// nil when the scenario has no coupling section.
func (s *Scenario) CouplingOptions() ([]coupling.Option, error) {
	if s.Coupling == nil {
		return nil, nil
	}
	c := s.Coupling

	var opts []coupling.Option
	if c.Constant != nil {
		if *c.Constant <= 0 || !isFinite(*c.Constant) {
			return nil, fmt.Errorf("constant %g: %w", *c.Constant, ErrBadScenario)
		}
		opts = append(opts, coupling.WithConstant(*c.Constant))
	}
	if c.MaxRounds != nil {
		if *c.MaxRounds < 1 {
			return nil, fmt.Errorf("max_rounds %d: %w", *c.MaxRounds, ErrBadScenario)
		}
		opts = append(opts, coupling.WithMaxRounds(*c.MaxRounds))
	}
	if c.StopTolerance != nil {
		if *c.StopTolerance < 0 || !isFinite(*c.StopTolerance) {
			return nil, fmt.Errorf("stop_tolerance %g: %w", *c.StopTolerance, ErrBadScenario)
		}
		opts = append(opts, coupling.WithStopTolerance(*c.StopTolerance))
	}
	if c.UncoupledRounds != nil {
		if *c.UncoupledRounds < 0 {
			return nil, fmt.Errorf("uncoupled_rounds %d: %w", *c.UncoupledRounds, ErrBadScenario)
		}
		opts = append(opts, coupling.WithUncoupledRounds(*c.UncoupledRounds))
	}

	return opts, nil
}

func isFinite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

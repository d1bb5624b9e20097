// Package config defines the navcore configuration file: the coordinate systems of a navigation
// setup, the landmark pairs to register with, and the targets to estimate errors at.
package config

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/referenceframe"
	"go.viam.com/navcore/registration"
)

// Config is the whole configuration file.
type Config struct {
	Debug             bool                          `json:"debug,omitempty"`
	Log               []logging.LoggerPatternConfig `json:"log,omitempty"`
	Registration      RegistrationConfig            `json:"registration"`
	CoordinateSystems []FrameConfig                 `json:"coordinate_systems"`
	Landmarks         []LandmarkPair                `json:"landmarks,omitempty"`
	Targets           []Target                      `json:"targets,omitempty"`
}

// RegistrationConfig tunes the landmark registration. Unset fields take the registration defaults.
type RegistrationConfig struct {
	CollinearityTolerance *float64 `json:"collinearity_tolerance,omitempty"`
	PermutationSearch     *bool    `json:"permutation_search,omitempty"`
	AcceptanceThreshold   *float64 `json:"acceptance_threshold,omitempty"`
	MaxPermutations       *int     `json:"max_permutations,omitempty"`
}

// EngineConfig returns the registration config with defaults filled in.
func (rc RegistrationConfig) EngineConfig() registration.Config {
	cfg := registration.DefaultConfig()
	if rc.CollinearityTolerance != nil {
		cfg.CollinearityTolerance = *rc.CollinearityTolerance
	}
	if rc.PermutationSearch != nil {
		cfg.PermutationSearch = *rc.PermutationSearch
	}
	if rc.AcceptanceThreshold != nil {
		cfg.AcceptanceThreshold = *rc.AcceptanceThreshold
	}
	if rc.MaxPermutations != nil {
		cfg.MaxPermutations = *rc.MaxPermutations
	}
	return cfg
}

// Validate returns every problem found in the config.
func (c *Config) Validate() error {
	var errs error
	for i, lpc := range c.Log {
		if !logging.ValidatePattern(lpc.Pattern) {
			errs = multierr.Append(errs, errors.Errorf("log.%d: invalid logger pattern %q", i, lpc.Pattern))
		}
		if _, err := logging.LevelFromString(lpc.Level); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "log.%d", i))
		}
	}
	if err := c.Registration.EngineConfig().Validate(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "registration"))
	}

	names := map[string]bool{}
	for i, frame := range c.CoordinateSystems {
		if frame.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("coordinate_systems.%d: name is required", i))
			continue
		}
		names[frame.Name] = true
	}
	for _, dup := range lo.FindDuplicatesBy(c.CoordinateSystems, func(f FrameConfig) string { return f.Name }) {
		if dup.Name != "" {
			errs = multierr.Append(errs, errors.Errorf("coordinate system %q is defined more than once", dup.Name))
		}
	}
	for _, frame := range c.CoordinateSystems {
		switch {
		case frame.Parent == "":
		case frame.Parent == frame.Name:
			errs = multierr.Append(errs, errors.Errorf("coordinate system %q cannot be its own parent", frame.Name))
		case !names[frame.Parent]:
			errs = multierr.Append(errs, errors.Errorf("coordinate system %q has unknown parent %q", frame.Name, frame.Parent))
		}
		if frame.Error < 0 {
			errs = multierr.Append(errs, errors.Errorf("coordinate system %q has negative error %g", frame.Name, frame.Error))
		}
	}

	for i, target := range c.Targets {
		if target.Name == "" {
			errs = multierr.Append(errs, errors.Errorf("targets.%d: name is required", i))
		}
	}
	return errs
}

// BuildTree creates a tree holding every configured coordinate system, keyed by name in the
// returned map. Parent cycles are reported.
func (c *Config) BuildTree(name string, logger logging.Logger) (*referenceframe.Tree, map[string]*referenceframe.CoordinateSystem, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	tree := referenceframe.NewTree(name, logger)
	systems := lo.SliceToMap(c.CoordinateSystems, func(f FrameConfig) (string, *referenceframe.CoordinateSystem) {
		return f.Name, tree.NewCoordinateSystem(f.Name)
	})

	var errs error
	for _, frame := range c.CoordinateSystems {
		if frame.Parent == "" {
			continue
		}
		if err := systems[frame.Name].SetTransformAndParent(frame.Transform(), systems[frame.Parent]); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "coordinate system %q", frame.Name))
		}
	}
	if errs != nil {
		return nil, nil, errs
	}
	return tree, systems, nil
}

// ImageLandmarks returns the image side of every landmark pair.
func (c *Config) ImageLandmarks() []r3.Vector {
	return lo.Map(c.Landmarks, func(p LandmarkPair, _ int) r3.Vector { return p.Image.Vector() })
}

// TrackerLandmarks returns the tracker side of every landmark pair.
func (c *Config) TrackerLandmarks() []r3.Vector {
	return lo.Map(c.Landmarks, func(p LandmarkPair, _ int) r3.Vector { return p.Tracker.Vector() })
}

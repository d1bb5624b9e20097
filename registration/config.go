package registration

import (
	"github.com/pkg/errors"
)

// Default values of Config.
const (
	DefaultCollinearityTolerance = 1e-4
	// DefaultAcceptanceThreshold is an absolute RMS cutoff, in landmark units.
	DefaultAcceptanceThreshold = 6.
	// DefaultMaxPermutations is 9!, enough to search every ordering of nine pairs.
	DefaultMaxPermutations = 362880
)

// Config tunes a landmark registration.
type Config struct {
	// CollinearityTolerance rejects image landmarks whose covariance eigenvalues satisfy
	// (λ0²+λ1²)/λ2² <= CollinearityTolerance, with λ ascending.
	CollinearityTolerance float64 `json:"collinearity_tolerance"`
	// PermutationSearch enables the search over tracker landmark orderings when the given
	// ordering does not fit below AcceptanceThreshold. When disabled the given ordering is
	// always accepted.
	PermutationSearch   bool    `json:"permutation_search"`
	AcceptanceThreshold float64 `json:"acceptance_threshold"`
	// MaxPermutations caps the number of orderings tried, the given one included. Zero means no cap.
	MaxPermutations int `json:"max_permutations"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		CollinearityTolerance: DefaultCollinearityTolerance,
		PermutationSearch:     true,
		AcceptanceThreshold:   DefaultAcceptanceThreshold,
		MaxPermutations:       DefaultMaxPermutations,
	}
}

// Validate ensures all parts of the config are valid.
func (c Config) Validate() error {
	if c.CollinearityTolerance < 0 {
		return errors.Errorf("collinearity_tolerance must be non-negative, got %g", c.CollinearityTolerance)
	}
	if c.PermutationSearch && c.AcceptanceThreshold <= 0 {
		return errors.Errorf("acceptance_threshold must be positive, got %g", c.AcceptanceThreshold)
	}
	if c.MaxPermutations < 0 {
		return errors.Errorf("max_permutations must be non-negative, got %d", c.MaxPermutations)
	}
	return nil
}

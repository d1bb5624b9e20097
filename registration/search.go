package registration

import (
	"context"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/combin"

	"go.viam.com/navcore/logging"
)

// correspondence is a fit together with the tracker ordering it was computed from: image[i] was
// paired with tracker[order[i]].
type correspondence struct {
	rigidFit
	order []int
}

// searchCorrespondence fits tracker landmarks to image landmarks. The given ordering is tried first.
// When search is enabled and that fit is not below the acceptance threshold, the other orderings of
// the tracker landmarks are tried in lexicographic order until one is. Permuting the tracker side
// alone reaches every pairing that permuting both sides would. Every ordering tried is logged at
// debug level, which a debug mode ctx turns on regardless of the logger level.
func searchCorrespondence(
	ctx context.Context,
	cfg Config,
	image, tracker []r3.Vector,
	logger logging.Logger,
) (correspondence, error) {
	n := len(image)
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}

	fit, err := fitRigid(tracker, image)
	if err != nil {
		return correspondence{}, err
	}
	logger.CDebugw(ctx, "tried landmark ordering", "order", identity, "rms", fit.rms)
	if !cfg.PermutationSearch || fit.rms < cfg.AcceptanceThreshold {
		return correspondence{rigidFit: fit, order: identity}, nil
	}

	// n! overflows an int past 20 landmarks.
	total := "more than 20!"
	if n <= maxCountablePairs {
		total = strconv.Itoa(combin.NumPermutations(n, n))
	}
	logger.CDebugw(ctx, "given landmark ordering rejected, searching permutations",
		"rms", fit.rms, "threshold", cfg.AcceptanceThreshold, "permutations", total, "cap", cfg.MaxPermutations)

	best := correspondence{rigidFit: fit, order: identity}
	tried := 1
	order := append([]int(nil), identity...)
	permuted := make([]r3.Vector, n)
	for nextPermutation(order) {
		if cfg.MaxPermutations > 0 && tried >= cfg.MaxPermutations {
			break
		}
		if err := ctx.Err(); err != nil {
			return correspondence{}, err
		}
		tried++
		for i, j := range order {
			permuted[i] = tracker[j]
		}
		fit, err := fitRigid(permuted, image)
		if err != nil {
			return correspondence{}, err
		}
		logger.CDebugw(ctx, "tried landmark ordering", "order", order, "rms", fit.rms)
		if fit.rms < best.rms {
			best = correspondence{rigidFit: fit, order: append([]int(nil), order...)}
		}
		if fit.rms < cfg.AcceptanceThreshold {
			logger.CDebugw(ctx, "found landmark ordering", "order", best.order, "rms", fit.rms, "tried", tried)
			return best, nil
		}
	}
	logger.CDebugw(ctx, "no landmark ordering below threshold", "best_rms", best.rms, "best_order", best.order, "tried", tried)
	return correspondence{}, errors.Wrapf(ErrNoAcceptableCorrespondence,
		"best of %d orderings has rms %g, threshold %g", tried, best.rms, cfg.AcceptanceThreshold)
}

// maxCountablePairs is the largest n whose n! fits in an int.
const maxCountablePairs = 20

// nextPermutation rearranges order into the lexicographically next permutation and reports whether
// there was one. Starting from the ascending order, repeated calls visit every permutation once.
func nextPermutation(order []int) bool {
	i := len(order) - 2
	for i >= 0 && order[i] >= order[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(order) - 1
	for order[j] <= order[i] {
		j--
	}
	order[i], order[j] = order[j], order[i]
	for l, r := i+1, len(order)-1; l < r; l, r = l+1, r-1 {
		order[l], order[r] = order[r], order[l]
	}
	return true
}

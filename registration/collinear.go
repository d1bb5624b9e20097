package registration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// principalAxes returns the eigenvalues, ascending, and the matching unit eigenvectors of the
// covariance matrix of points.
func principalAxes(points []r3.Vector) ([3]float64, [3]r3.Vector, error) {
	var values [3]float64
	var axes [3]r3.Vector
	if len(points) < 2 {
		return values, axes, errors.Errorf("need at least 2 points, have %d", len(points))
	}

	data := make([]float64, 0, 3*len(points))
	for _, p := range points {
		data = append(data, p.X, p.Y, p.Z)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, mat.NewDense(len(points), 3, data), nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return values, axes, errors.New("eigen decomposition did not converge")
	}
	eig.Values(values[:])
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	for k := range axes {
		axes[k] = r3.Vector{X: vectors.At(0, k), Y: vectors.At(1, k), Z: vectors.At(2, k)}.Normalize()
	}
	return values, axes, nil
}

// collinearityRatio returns (λ0²+λ1²)/λ2² of the covariance of points. Points on a line give 0;
// points spread in every direction give values approaching 2.
func collinearityRatio(points []r3.Vector) (float64, error) {
	values, _, err := principalAxes(points)
	if err != nil {
		return 0, err
	}
	if values[2] == 0 {
		return 0, nil
	}
	return (values[0]*values[0] + values[1]*values[1]) / (values[2] * values[2]), nil
}

// checkCollinearity rejects point sets whose ratio is at or below tolerance. This is a heuristic
// conditioning guard, not a rank test.
func checkCollinearity(points []r3.Vector, tolerance float64) error {
	ratio, err := collinearityRatio(points)
	if err != nil {
		return err
	}
	if ratio <= tolerance {
		return errors.Wrapf(ErrDegenerateConfiguration, "covariance ratio %g at or below %g", ratio, tolerance)
	}
	return nil
}

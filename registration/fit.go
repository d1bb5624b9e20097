package registration

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navcore/spatialmath"
)

// rigidFit is a rotation followed by a translation, with the RMS residual of the points it was
// fit to.
type rigidFit struct {
	rotation    quat.Number
	translation r3.Vector
	rms         float64
}

func (f rigidFit) apply(p r3.Vector) r3.Vector {
	return spatialmath.RotateVector(f.rotation, p).Add(f.translation)
}

// fitRigid returns the rigid transform minimizing the summed squared distance between to[i] and
// the transformed from[i], using Horn's closed-form quaternion solution.
func fitRigid(from, to []r3.Vector) (rigidFit, error) {
	if len(from) != len(to) {
		return rigidFit{}, errors.Errorf("mismatched point counts %d and %d", len(from), len(to))
	}
	if len(from) < minimumPairs {
		return rigidFit{}, errors.Errorf("need at least %d point pairs, have %d", minimumPairs, len(from))
	}

	cf, ct := centroid(from), centroid(to)

	// s[r][c] is the sum of products of coordinate r of from and coordinate c of to, both centered.
	var s [3][3]float64
	for i := range from {
		a := from[i].Sub(cf)
		b := to[i].Sub(ct)
		av := [3]float64{a.X, a.Y, a.Z}
		bv := [3]float64{b.X, b.Y, b.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				s[r][c] += av[r] * bv[c]
			}
		}
	}
	sxx, sxy, sxz := s[0][0], s[0][1], s[0][2]
	syx, syy, syz := s[1][0], s[1][1], s[1][2]
	szx, szy, szz := s[2][0], s[2][1], s[2][2]

	n := mat.NewSymDense(4, []float64{
		sxx + syy + szz, syz - szy, szx - sxz, sxy - syx,
		syz - szy, sxx - syy - szz, sxy + syx, szx + sxz,
		szx - sxz, sxy + syx, -sxx + syy - szz, syz + szy,
		sxy - syx, szx + sxz, syz + szy, -sxx - syy + szz,
	})
	var eig mat.EigenSym
	if !eig.Factorize(n, true) {
		return rigidFit{}, errors.New("eigen decomposition did not converge")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues are ascending; the optimal rotation is the eigenvector of the largest.
	rot := spatialmath.Canonicalize(spatialmath.Normalize(quat.Number{
		Real: vectors.At(0, 3),
		Imag: vectors.At(1, 3),
		Jmag: vectors.At(2, 3),
		Kmag: vectors.At(3, 3),
	}))
	fit := rigidFit{rotation: rot, translation: ct.Sub(spatialmath.RotateVector(rot, cf))}
	fit.rms = rmsError(fit, from, to)
	if math.IsNaN(fit.rms) || math.IsInf(fit.rms, 0) {
		return rigidFit{}, errors.New("fit produced a non-finite residual")
	}
	return fit, nil
}

// rmsError returns sqrt(mean |to[i] - f(from[i])|²).
func rmsError(f rigidFit, from, to []r3.Vector) float64 {
	dists := make([]float64, len(from))
	for i := range from {
		dists[i] = to[i].Sub(f.apply(from[i])).Norm()
	}
	return floats.Norm(dists, 2) / math.Sqrt(float64(len(dists)))
}

func centroid(points []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(points)))
}

package registration

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/navcore/logging"
)

// errorParameters holds the landmark geometry used by the target registration error model: the
// centroid, the principal axes, and the mean squared distance of the landmarks from each axis.
type errorParameters struct {
	count    int
	centroid r3.Vector
	axes     [3]r3.Vector
	f2       [3]float64
}

func computeErrorParameters(landmarks []r3.Vector) (errorParameters, error) {
	if len(landmarks) < minimumPairs {
		return errorParameters{}, errors.Wrapf(ErrInvalidRequest, "need at least %d landmarks, have %d", minimumPairs, len(landmarks))
	}
	_, axes, err := principalAxes(landmarks)
	if err != nil {
		return errorParameters{}, err
	}
	params := errorParameters{count: len(landmarks), centroid: centroid(landmarks), axes: axes}
	var spread float64
	for _, p := range landmarks {
		spread += p.Sub(params.centroid).Norm2()
	}
	spread /= float64(len(landmarks))
	for k, axis := range axes {
		var sum float64
		for _, p := range landmarks {
			sum += axis.Cross(p.Sub(params.centroid)).Norm2()
		}
		params.f2[k] = sum / float64(len(landmarks))
		// f_k is only zero, up to rounding, when every landmark lies on axis k.
		if params.f2[k] <= 1e-12*spread {
			return errorParameters{}, errors.Wrapf(ErrDegenerateConfiguration, "landmarks lie on principal axis %d", k)
		}
	}
	return params, nil
}

// estimate returns the expected error at target for landmarks fit with the given RMS residual.
func (p errorParameters) estimate(rms float64, target r3.Vector) float64 {
	offset := target.Sub(p.centroid)
	var ratio float64
	for k, axis := range p.axes {
		ratio += axis.Cross(offset).Norm2() / p.f2[k]
	}
	return math.Sqrt(rms * rms / float64(p.count-2) * (1 + ratio/3))
}

// EstimateTargetRegistrationError returns the expected registration error at target, given the image
// landmarks used by the registration and its RMS residual. The model is
//
//	TRE² = RMS²/(N-2) · (1 + 1/3 · Σ_k d_k²/f_k²)
//
// where d_k is the distance of target from principal axis k of the landmarks, through their
// centroid, and f_k² is the mean squared distance of the landmarks from that axis. The returned value
// is TRE itself, a distance in landmark units, not its square.
func EstimateTargetRegistrationError(landmarks []r3.Vector, rms float64, target r3.Vector) (float64, error) {
	if rms < 0 || math.IsNaN(rms) {
		return 0, errors.Wrapf(ErrInvalidRequest, "registration error must be non-negative, got %g", rms)
	}
	params, err := computeErrorParameters(landmarks)
	if err != nil {
		return 0, err
	}
	return params.estimate(rms, target), nil
}

// EstimatorState is the lifecycle state of an ErrorEstimator.
type EstimatorState int

// The estimator states, in the order they are reached.
const (
	EstimatorIdle EstimatorState = iota
	LandmarksSet
	RegistrationErrorSet
	ErrorParametersComputed
	TargetPointSet
	TargetRegistrationErrorEstimated
)

func (s EstimatorState) String() string {
	switch s {
	case EstimatorIdle:
		return "Idle"
	case LandmarksSet:
		return "LandmarksSet"
	case RegistrationErrorSet:
		return "RegistrationErrorSet"
	case ErrorParametersComputed:
		return "ErrorParametersComputed"
	case TargetPointSet:
		return "TargetPointSet"
	case TargetRegistrationErrorEstimated:
		return "TargetRegistrationErrorEstimated"
	default:
		return "Unknown"
	}
}

// ErrorEstimator estimates target registration errors step by step: landmarks, then registration
// error, then error parameters, then any number of target points. Calling a step before the previous
// ones fails with a RequestError.
type ErrorEstimator struct {
	logger logging.Logger

	mu        sync.Mutex
	state     EstimatorState
	landmarks []r3.Vector
	rms       float64
	params    errorParameters
	target    r3.Vector
	tre       float64
}

// NewErrorEstimator returns an idle estimator.
func NewErrorEstimator(logger logging.Logger) *ErrorEstimator {
	return &ErrorEstimator{logger: logger}
}

// State returns the current state.
func (est *ErrorEstimator) State() EstimatorState {
	est.mu.Lock()
	defer est.mu.Unlock()
	return est.state
}

// SetLandmarks stores a copy of the image landmarks used by the registration.
func (est *ErrorEstimator) SetLandmarks(landmarks []r3.Vector) error {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("SetLandmarks", EstimatorIdle, LandmarksSet); err != nil {
		return err
	}
	est.landmarks = append([]r3.Vector(nil), landmarks...)
	est.moveTo(LandmarksSet)
	return nil
}

// SetLandmarkRegistrationError stores the RMS residual of the registration.
func (est *ErrorEstimator) SetLandmarkRegistrationError(rms float64) error {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("SetLandmarkRegistrationError", LandmarksSet, RegistrationErrorSet); err != nil {
		return err
	}
	if rms < 0 || math.IsNaN(rms) {
		return newRequestError("SetLandmarkRegistrationError", est.state, "registration error must be non-negative")
	}
	est.rms = rms
	est.moveTo(RegistrationErrorSet)
	return nil
}

// ComputeErrorParameters derives the landmark geometry used by every later estimate.
func (est *ErrorEstimator) ComputeErrorParameters() error {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("ComputeErrorParameters", RegistrationErrorSet); err != nil {
		return err
	}
	params, err := computeErrorParameters(est.landmarks)
	if err != nil {
		est.logger.Warnw("error parameter computation failed", "error", err)
		return err
	}
	est.params = params
	est.moveTo(ErrorParametersComputed)
	return nil
}

// SetTargetPoint sets the point to estimate the error at. A new target may be set after an estimate.
func (est *ErrorEstimator) SetTargetPoint(target r3.Vector) error {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("SetTargetPoint", ErrorParametersComputed, TargetPointSet, TargetRegistrationErrorEstimated); err != nil {
		return err
	}
	est.target = target
	est.moveTo(TargetPointSet)
	return nil
}

// EstimateTargetRegistrationError estimates the error at the target point.
func (est *ErrorEstimator) EstimateTargetRegistrationError() error {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("EstimateTargetRegistrationError", TargetPointSet); err != nil {
		return err
	}
	est.tre = est.params.estimate(est.rms, est.target)
	est.moveTo(TargetRegistrationErrorEstimated)
	return nil
}

// TargetRegistrationError returns the last estimate.
func (est *ErrorEstimator) TargetRegistrationError() (float64, error) {
	est.mu.Lock()
	defer est.mu.Unlock()
	if err := est.expect("TargetRegistrationError", TargetRegistrationErrorEstimated); err != nil {
		return 0, err
	}
	return est.tre, nil
}

// Reset returns the estimator to idle.
func (est *ErrorEstimator) Reset() {
	est.mu.Lock()
	defer est.mu.Unlock()
	est.landmarks = nil
	est.params = errorParameters{}
	est.moveTo(EstimatorIdle)
}

func (est *ErrorEstimator) expect(request string, allowed ...EstimatorState) error {
	for _, s := range allowed {
		if est.state == s {
			return nil
		}
	}
	est.logger.Warnw("rejected error estimator request", "request", request, "state", est.state.String())
	return newRequestError(request, est.state, "expected state "+allowed[0].String())
}

func (est *ErrorEstimator) moveTo(next EstimatorState) {
	if next != est.state {
		est.logger.Debugw("error estimator state changed", "from", est.state.String(), "to", next.String())
	}
	est.state = next
}

// Package registration computes the rigid transform between a tracker and an image from paired
// landmark points, and estimates the resulting error at arbitrary targets.
package registration

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/referenceframe"
	"go.viam.com/navcore/transform"
)

// Space names one side of a registration.
type Space string

// The two spaces related by a registration.
const (
	SpaceImage   Space = "image"
	SpaceTracker Space = "tracker"
)

// Result is a computed registration transform, mapping coordinates of From into coordinates of To.
// Its error bound is the RMS residual of the fit and it is valid at every instant.
type Result struct {
	Transform transform.Transform
	From      Space
	To        Space
}

// Engine accumulates image and tracker landmark pairs and fits the rigid transform between them.
// Image and tracker landmarks must be added alternately, image first. All methods are safe for
// concurrent use.
type Engine struct {
	cfg    Config
	logger logging.Logger

	mu      sync.Mutex
	state   State
	image   []r3.Vector
	tracker []r3.Vector
	// generation increments on every reset so that a computation finishing after a reset is dropped.
	generation uint64
	fit        correspondence
}

// NewEngine returns an idle engine.
func NewEngine(cfg Config, logger logging.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LandmarkCounts returns the number of image and tracker landmarks held.
func (e *Engine) LandmarkCounts() (image, tracker int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.image), len(e.tracker)
}

// ImageLandmarks returns a copy of the image landmarks held.
func (e *Engine) ImageLandmarks() []r3.Vector {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]r3.Vector(nil), e.image...)
}

// AddImageLandmark appends an image landmark. It must not follow another image landmark.
func (e *Engine) AddImageLandmark(p r3.Vector) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	act, err := e.request(inputImageLandmark)
	if err != nil {
		return err
	}
	e.apply(act, p)
	return nil
}

// AddTrackerLandmark appends the tracker landmark paired with the last image landmark.
func (e *Engine) AddTrackerLandmark(p r3.Vector) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	act, err := e.request(inputTrackerLandmark)
	if err != nil {
		return err
	}
	e.apply(act, p)
	return nil
}

// Reset drops every landmark and any computed transform. It is accepted in every state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	act, _ := e.request(inputReset)
	e.apply(act, r3.Vector{})
}

// ComputeTransform fits the tracker to image transform from the landmarks held. It requires at least
// three complete pairs. On failure the landmarks are kept so that the caller may reset and retry.
// A ctx with logging.EnableDebugMode logs every landmark ordering tried.
func (e *Engine) ComputeTransform(ctx context.Context) error {
	e.mu.Lock()
	if _, err := e.request(inputComputeTransform); err != nil {
		e.mu.Unlock()
		return err
	}
	image := append([]r3.Vector(nil), e.image...)
	tracker := append([]r3.Vector(nil), e.tracker...)
	generation := e.generation
	e.mu.Unlock()

	fit, err := e.compute(ctx, image, tracker)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation {
		return errors.Wrap(ErrTransformComputationFailure, "registration was reset during computation")
	}
	if err != nil {
		e.logger.Warnw("transform computation failed", "error", err)
		act, _ := e.request(inputComputationFailed)
		e.apply(act, r3.Vector{})
		return err
	}
	//nolint:errcheck
	e.request(inputComputationSucceeded)
	e.fit = fit
	e.logger.CDebugw(ctx, "transform computed", "rms", fit.rms, "order", fit.order)
	return nil
}

func (e *Engine) compute(ctx context.Context, image, tracker []r3.Vector) (fit correspondence, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ComputationError{Reason: fmt.Sprintf("panic during fit: %v", r)}
		}
	}()
	if err := checkCollinearity(image, e.cfg.CollinearityTolerance); err != nil {
		return correspondence{}, asComputationError(err)
	}
	fit, err = searchCorrespondence(ctx, e.cfg, image, tracker, e.logger)
	if err != nil {
		return correspondence{}, asComputationError(err)
	}
	return fit, nil
}

// asComputationError classifies numeric failures as computation failures. Context errors are
// returned as is.
func asComputationError(err error) error {
	if errors.Is(err, ErrTransformComputationFailure) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ComputationError{Reason: err.Error()}
}

// TransformFromTrackerToImage returns the computed transform mapping tracker coordinates into image
// coordinates.
func (e *Engine) TransformFromTrackerToImage() (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.request(inputGetTransform); err != nil {
		return Result{}, err
	}
	return Result{Transform: e.trackerToImage(), From: SpaceTracker, To: SpaceImage}, nil
}

// TransformFromImageToTracker returns the inverse of TransformFromTrackerToImage.
func (e *Engine) TransformFromImageToTracker() (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.request(inputGetTransform); err != nil {
		return Result{}, err
	}
	return Result{Transform: e.trackerToImage().Inverse(), From: SpaceImage, To: SpaceTracker}, nil
}

// RMSError returns the RMS residual of the computed transform.
func (e *Engine) RMSError() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.request(inputGetRMSError); err != nil {
		return 0, err
	}
	return e.fit.rms, nil
}

// InstallTrackerToImage makes image the parent of tracker, with the computed transform as the edge.
func (e *Engine) InstallTrackerToImage(tracker, image *referenceframe.CoordinateSystem) error {
	res, err := e.TransformFromTrackerToImage()
	if err != nil {
		return err
	}
	if err := tracker.SetTransformAndParent(res.Transform, image); err != nil {
		return errors.Wrapf(err, "installing registration between %q and %q", tracker.Name(), image.Name())
	}
	e.logger.Infow("installed registration", "tracker", tracker.Name(), "image", image.Name(), "rms", res.Transform.ErrorBound())
	return nil
}

func (e *Engine) trackerToImage() transform.Transform {
	return transform.NewWithWindow(e.fit.translation, e.fit.rotation, e.fit.rms, transform.AlwaysValid())
}

// request runs the transition for in and returns its action, or a RequestError when in is not
// accepted. It must be called with the lock held.
func (e *Engine) request(in input) (action, error) {
	pairs := len(e.tracker)
	next, act := transition(e.state, in, pairs)
	if act == actionReject {
		e.logger.Warnw("rejected registration request", "request", in.String(), "state", e.state.String())
		return act, newRequestError(in.String(), e.state, rejectionReason(e.state, in, pairs))
	}
	if next != e.state {
		e.logger.Debugw("registration state changed", "from", e.state.String(), "to", next.String(), "input", in.String())
	}
	e.state = next
	return act, nil
}

// apply runs the side effect of act. It must be called with the lock held.
func (e *Engine) apply(act action, p r3.Vector) {
	switch act {
	case actionAddImageLandmark:
		e.image = append(e.image, p)
	case actionAddTrackerLandmark:
		e.tracker = append(e.tracker, p)
	case actionReset:
		e.image = nil
		e.tracker = nil
		e.fit = correspondence{}
		e.generation++
	case actionDiscardResult:
		e.fit = correspondence{}
	case actionReject, actionCompute, actionAcceptResult, actionReport:
	}
}

package registration

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/referenceframe"
	"go.viam.com/navcore/spatialmath"
	"go.viam.com/navcore/transform"
)

var roundTripImage = []r3.Vector{{25, 1, 15}, {15, 21, 17}, {14, 25, 11}, {10, 11, 8}}

// imageToTracker rotates by -40 degrees about Z, then translates by (10, 10, 10).
var (
	imageToTrackerRotation    = spatialmath.NewR4AADegrees(-40, 0, 0, 1).ToQuat()
	imageToTrackerTranslation = r3.Vector{10, 10, 10}
)

func roundTripTracker() []r3.Vector {
	out := make([]r3.Vector, 0, len(roundTripImage))
	for _, p := range roundTripImage {
		out = append(out, spatialmath.RotateVector(imageToTrackerRotation, p).Add(imageToTrackerTranslation))
	}
	return out
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return engine
}

func addPairs(t *testing.T, engine *Engine, image, tracker []r3.Vector) {
	t.Helper()
	test.That(t, len(image), test.ShouldEqual, len(tracker))
	for i := range image {
		test.That(t, engine.AddImageLandmark(image[i]), test.ShouldBeNil)
		test.That(t, engine.AddTrackerLandmark(tracker[i]), test.ShouldBeNil)
	}
}

func TestLandmarkAlternation(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	engine, err := NewEngine(DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	err = engine.AddTrackerLandmark(r3.Vector{1, 2, 3})
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	test.That(t, engine.State(), test.ShouldEqual, Idle)

	test.That(t, engine.AddImageLandmark(r3.Vector{1, 2, 3}), test.ShouldBeNil)
	test.That(t, engine.State(), test.ShouldEqual, ImageLandmarkAdded)

	err = engine.AddImageLandmark(r3.Vector{4, 5, 6})
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected a tracker landmark")
	var reqErr *RequestError
	test.That(t, errors.As(err, &reqErr), test.ShouldBeTrue)
	test.That(t, reqErr.State, test.ShouldEqual, ImageLandmarkAdded)
	images, trackers := engine.LandmarkCounts()
	test.That(t, images, test.ShouldEqual, 1)
	test.That(t, trackers, test.ShouldEqual, 0)
	test.That(t, engine.State(), test.ShouldEqual, ImageLandmarkAdded)

	test.That(t, engine.AddTrackerLandmark(r3.Vector{7, 8, 9}), test.ShouldBeNil)
	test.That(t, engine.State(), test.ShouldEqual, TrackerLandmarkAdded)
	err = engine.AddTrackerLandmark(r3.Vector{7, 8, 9})
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	images, trackers = engine.LandmarkCounts()
	test.That(t, images, test.ShouldEqual, 1)
	test.That(t, trackers, test.ShouldEqual, 1)

	test.That(t, logs.FilterMessage("rejected registration request").Len(), test.ShouldEqual, 3)
}

func TestComputeRequiresThreePairs(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())

	err := engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)

	tracker := roundTripTracker()
	addPairs(t, engine, roundTripImage[:2], tracker[:2])
	err = engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrTransformComputationFailure), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fewer than 3 landmark pairs")
	test.That(t, engine.State(), test.ShouldEqual, TrackerLandmarkAdded)

	// An unpaired image landmark also blocks computation.
	addPairs(t, engine, roundTripImage[2:3], tracker[2:3])
	test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)
	test.That(t, engine.AddImageLandmark(roundTripImage[3]), test.ShouldBeNil)
	err = engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no tracker landmark")
}

func TestGettersBeforeCompute(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	addPairs(t, engine, roundTripImage, roundTripTracker())

	_, err := engine.TransformFromTrackerToImage()
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	_, err = engine.TransformFromImageToTracker()
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	_, err = engine.RMSError()
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)
}

func TestRoundTripRegistration(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	addPairs(t, engine, roundTripImage, roundTripTracker())
	test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
	test.That(t, engine.State(), test.ShouldEqual, TransformComputed)

	rms, err := engine.RMSError()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rms, test.ShouldBeLessThan, 0.1)

	imageToTracker, err := engine.TransformFromImageToTracker()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, imageToTracker.From, test.ShouldEqual, SpaceImage)
	test.That(t, imageToTracker.To, test.ShouldEqual, SpaceTracker)
	test.That(t, spatialmath.QuaternionAlmostEqual(imageToTracker.Transform.Rotation(), imageToTrackerRotation, 1e-6), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(imageToTracker.Transform.Translation(), imageToTrackerTranslation, 1e-3), test.ShouldBeTrue)

	trackerToImage, err := engine.TransformFromTrackerToImage()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, trackerToImage.From, test.ShouldEqual, SpaceTracker)
	test.That(t, trackerToImage.To, test.ShouldEqual, SpaceImage)
	expected := quat.Number{Real: 0.9396926207859084, Kmag: 0.3420201433256687}
	test.That(t, spatialmath.QuaternionAlmostEqual(trackerToImage.Transform.Rotation(), expected, 1e-6), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(
		trackerToImage.Transform.Translation(),
		r3.Vector{-1.2325683343243696, -14.088320528055156, -10},
		1e-3,
	), test.ShouldBeTrue)
	test.That(t, trackerToImage.Transform.ErrorBound(), test.ShouldEqual, rms)
	test.That(t, trackerToImage.Transform.Window(), test.ShouldResemble, transform.AlwaysValid())

	for i, p := range roundTripTracker() {
		test.That(t, spatialmath.R3VectorAlmostEqual(trackerToImage.Transform.TransformPoint(p), roundTripImage[i], 1e-6), test.ShouldBeTrue)
	}

	// Landmarks cannot be added once a transform is computed.
	err = engine.AddImageLandmark(r3.Vector{})
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
	err = engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)

	engine.Reset()
	test.That(t, engine.State(), test.ShouldEqual, Idle)
	images, trackers := engine.LandmarkCounts()
	test.That(t, images, test.ShouldEqual, 0)
	test.That(t, trackers, test.ShouldEqual, 0)
	_, err = engine.RMSError()
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
}

// The literal landmarks of a recorded registration. Their best ordering fits with an RMS around 22,
// so they are only accepted with the permutation search disabled.
var (
	regressionImage = []r3.Vector{
		{77.2389, 15.9716, 16},
		{14.1021, 10.3691, 16},
		{45.9937, 6.27483, 68},
	}
	regressionTracker = []r3.Vector{
		{230.525, -44.7263, -894.183},
		{211.976, -41.8738, -875.216},
		{303.781, -35.4769, -887.587},
	}
)

func TestRegistrationIsRepeatable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PermutationSearch = false

	compute := func(engine *Engine) Result {
		addPairs(t, engine, regressionImage, regressionTracker)
		test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
		res, err := engine.TransformFromTrackerToImage()
		test.That(t, err, test.ShouldBeNil)
		return res
	}

	engine := newTestEngine(t, cfg)
	first := compute(engine)
	engine.Reset()
	second := compute(engine)
	third := compute(newTestEngine(t, cfg))

	for _, other := range []Result{second, third} {
		test.That(t, spatialmath.R3VectorAlmostEqual(first.Transform.Translation(), other.Transform.Translation(), 1e-8), test.ShouldBeTrue)
		a, b := first.Transform.Rotation(), other.Transform.Rotation()
		test.That(t, a.Real, test.ShouldAlmostEqual, b.Real, 1e-8)
		test.That(t, a.Imag, test.ShouldAlmostEqual, b.Imag, 1e-8)
		test.That(t, a.Jmag, test.ShouldAlmostEqual, b.Jmag, 1e-8)
		test.That(t, a.Kmag, test.ShouldAlmostEqual, b.Kmag, 1e-8)
	}
	test.That(t, first.Transform.ErrorBound(), test.ShouldAlmostEqual, 23.7463, 1e-3)
}

func TestNoAcceptableCorrespondence(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	addPairs(t, engine, regressionImage, regressionTracker)

	err := engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrNoAcceptableCorrespondence), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrTransformComputationFailure), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no correspondence found")

	// The landmarks are kept; the computation may be retried.
	test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)
	images, trackers := engine.LandmarkCounts()
	test.That(t, images, test.ShouldEqual, 3)
	test.That(t, trackers, test.ShouldEqual, 3)
	_, err = engine.TransformFromTrackerToImage()
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)
}

func TestCollinearLandmarksRejected(t *testing.T) {
	engine := newTestEngine(t, DefaultConfig())
	addPairs(t, engine,
		[]r3.Vector{{25, 11, 15}, {15, 11, 15}, {14, 11, 15}},
		[]r3.Vector{{35, 21, 25}, {25, 21, 25}, {24, 21, 25}},
	)
	err := engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrDegenerateConfiguration), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrTransformComputationFailure), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrNoAcceptableCorrespondence), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldContainSubstring, "points nearly collinear")
	test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)

	// A fourth landmark off the line makes the configuration usable.
	addPairs(t, engine, []r3.Vector{{20, 30, 15}}, []r3.Vector{{30, 40, 25}})
	test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
	res, err := engine.TransformFromTrackerToImage()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(res.Transform.Translation(), r3.Vector{-10, -10, -10}, 1e-6), test.ShouldBeTrue)
}

func TestPermutationSearch(t *testing.T) {
	tracker := roundTripTracker()
	shuffled := []r3.Vector{tracker[2], tracker[0], tracker[3], tracker[1]}

	cfg := DefaultConfig()
	// Some wrong orderings of these landmarks fit below the default threshold.
	cfg.AcceptanceThreshold = 0.5

	t.Run("recovers ordering", func(t *testing.T) {
		engine := newTestEngine(t, cfg)
		addPairs(t, engine, roundTripImage, shuffled)
		test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)

		rms, err := engine.RMSError()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rms, test.ShouldBeLessThan, 1e-6)
		res, err := engine.TransformFromImageToTracker()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.QuaternionAlmostEqual(res.Transform.Rotation(), imageToTrackerRotation, 1e-6), test.ShouldBeTrue)
		test.That(t, spatialmath.R3VectorAlmostEqual(res.Transform.Translation(), imageToTrackerTranslation, 1e-3), test.ShouldBeTrue)
	})

	t.Run("capped", func(t *testing.T) {
		capped := cfg
		capped.MaxPermutations = 1
		engine := newTestEngine(t, capped)
		addPairs(t, engine, roundTripImage, shuffled)
		err := engine.ComputeTransform(context.Background())
		test.That(t, errors.Is(err, ErrNoAcceptableCorrespondence), test.ShouldBeTrue)
	})

	t.Run("disabled", func(t *testing.T) {
		disabled := cfg
		disabled.PermutationSearch = false
		engine := newTestEngine(t, disabled)
		addPairs(t, engine, roundTripImage, shuffled)
		test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
		rms, err := engine.RMSError()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, rms, test.ShouldAlmostEqual, 10.1867, 1e-3)
	})

	t.Run("canceled", func(t *testing.T) {
		engine := newTestEngine(t, cfg)
		addPairs(t, engine, roundTripImage, shuffled)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := engine.ComputeTransform(ctx)
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
		test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)
	})
}

func TestPermutationSearchManyLandmarks(t *testing.T) {
	// 21! does not fit in an int; the search must still run up to the cap.
	const pairs = 21
	image := make([]r3.Vector, 0, pairs)
	tracker := make([]r3.Vector, 0, pairs)
	for i := 0; i < pairs; i++ {
		p := r3.Vector{X: float64(3 * i), Y: float64(2 * (i * i % 11)), Z: float64(3 * (i * 7 % 5))}
		image = append(image, p)
		sign := float64(1 - 2*(i%2))
		tracker = append(tracker, p.Add(r3.Vector{X: 0.5 * sign, Y: 0.3 * float64(i%3-1)}))
	}

	cfg := DefaultConfig()
	cfg.AcceptanceThreshold = 1e-3
	cfg.MaxPermutations = 50
	logger, logs := logging.NewObservedTestLogger(t)
	engine, err := NewEngine(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	addPairs(t, engine, image, tracker)

	err = engine.ComputeTransform(context.Background())
	test.That(t, errors.Is(err, ErrNoAcceptableCorrespondence), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "best of 50 orderings")
	test.That(t, logs.FilterMessage("tried landmark ordering").Len(), test.ShouldEqual, 50)
	test.That(t, engine.State(), test.ShouldEqual, ReadyToCompute)
}

func TestSearchDebugMode(t *testing.T) {
	tracker := roundTripTracker()
	shuffled := []r3.Vector{tracker[2], tracker[0], tracker[3], tracker[1]}
	cfg := DefaultConfig()
	cfg.AcceptanceThreshold = 0.5

	logger, logs := logging.NewObservedTestLogger(t)
	logger.SetLevel(logging.INFO)

	engine, err := NewEngine(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	addPairs(t, engine, roundTripImage, shuffled)
	test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("tried landmark ordering").Len(), test.ShouldEqual, 0)

	engine.Reset()
	addPairs(t, engine, roundTripImage, shuffled)
	ctx := logging.EnableDebugMode(context.Background(), "")
	test.That(t, engine.ComputeTransform(ctx), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("tried landmark ordering").Len(), test.ShouldBeGreaterThan, 1)
	test.That(t, logs.FilterMessage("found landmark ordering").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("transform computed").Len(), test.ShouldEqual, 1)
}

func TestInstallTrackerToImage(t *testing.T) {
	logger := logging.NewTestLogger(t)
	tree := referenceframe.NewTree("navigation", logger)
	image := tree.NewCoordinateSystem("image")
	tracker := tree.NewCoordinateSystem("tracker")
	tool := tree.NewCoordinateSystem("tool")
	toolInTracker := roundTripTracker()[1]
	test.That(t, tool.SetTransformAndParent(
		transform.NewWithWindow(toolInTracker, quat.Number{Real: 1}, 0.1, transform.AlwaysValid()),
		tracker,
	), test.ShouldBeNil)

	engine, err := NewEngine(DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	err = engine.InstallTrackerToImage(tracker, image)
	test.That(t, errors.Is(err, ErrInvalidRequest), test.ShouldBeTrue)

	addPairs(t, engine, roundTripImage, roundTripTracker())
	test.That(t, engine.ComputeTransform(context.Background()), test.ShouldBeNil)
	test.That(t, engine.InstallTrackerToImage(tracker, image), test.ShouldBeNil)

	// The tool origin sits on the second landmark.
	toolInImage, err := tool.TransformPointTo(r3.Vector{}, image)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(toolInImage, roundTripImage[1], 1e-6), test.ShouldBeTrue)

	toolToImage, err := tool.ComputeTransformTo(image)
	test.That(t, err, test.ShouldBeNil)
	rms, err := engine.RMSError()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, toolToImage.ErrorBound(), test.ShouldAlmostEqual, 0.1+rms, 1e-12)

	// Installing into a descendant of the tracker would create a cycle.
	err = engine.InstallTrackerToImage(tracker, tool)
	test.That(t, errors.Is(err, referenceframe.ErrParentCausesCycle), test.ShouldBeTrue)
}

func TestNewEngineValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AcceptanceThreshold = 0
	_, err := NewEngine(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "acceptance_threshold")

	cfg.PermutationSearch = false
	_, err = NewEngine(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	cfg.CollinearityTolerance = -1
	_, err = NewEngine(cfg, logging.NewTestLogger(t))
	test.That(t, err.Error(), test.ShouldContainSubstring, "collinearity_tolerance")
}

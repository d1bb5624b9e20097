// Package tracking moves tracker tool poses, produced on device goroutines, into a coordinate system
// tree. A single worker applies every pose so that device goroutines never touch the tree.
package tracking

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/navcore/logging"
	"go.viam.com/navcore/referenceframe"
	"go.viam.com/navcore/transform"
	"go.viam.com/navcore/utils"
)

// DefaultValidity is how long a pose stays valid when the sample does not say.
const DefaultValidity = 500 * time.Millisecond

// ErrClosed is returned when publishing to a closed feed.
var ErrClosed = errors.New("tracking feed closed")

// ToolPose is one pose sample of a tracked tool, expressed in the tracker's coordinate system.
type ToolPose struct {
	Tool        *referenceframe.CoordinateSystem
	Translation r3.Vector
	Rotation    quat.Number
	// Timestamp is when the sample was taken. The zero value means when the feed applies it.
	Timestamp time.Time
	Error     float64
	// ValidFor is how long the sample stays valid from Timestamp. Zero means DefaultValidity.
	ValidFor time.Duration
}

// Feed applies tool poses to a tree, attaching each tool under the tracker.
type Feed struct {
	tracker *referenceframe.CoordinateSystem
	clock   clock.Clock
	logger  logging.Logger

	poses   chan ToolPose
	workers utils.StoppableWorkers
	applied atomic.Int64
	failed  atomic.Int64
}

// NewFeed starts a feed attaching tools under tracker. buffer is the number of poses that may be
// queued before Publish blocks.
func NewFeed(tracker *referenceframe.CoordinateSystem, clk clock.Clock, buffer int, logger logging.Logger) *Feed {
	if clk == nil {
		clk = clock.New()
	}
	f := &Feed{
		tracker: tracker,
		clock:   clk,
		logger:  logger,
		poses:   make(chan ToolPose, buffer),
	}
	f.workers = utils.NewStoppableWorkers(f.run)
	return f
}

// Publish queues pose. It blocks while the queue is full, until ctx is done or the feed is closed.
// A ctx with logging.EnableDebugMode logs each queued pose.
func (f *Feed) Publish(ctx context.Context, pose ToolPose) error {
	if pose.Tool == nil {
		return errors.New("pose has no tool")
	}
	closed := f.workers.Context()
	if closed.Err() != nil {
		return ErrClosed
	}
	select {
	case f.poses <- pose:
		f.logger.CDebugw(ctx, "queued tool pose", "tool", pose.Tool.Name(), "translation", pose.Translation)
		return nil
	case <-closed.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Applied returns the number of poses written to the tree.
func (f *Feed) Applied() int64 {
	return f.applied.Load()
}

// Failed returns the number of poses that could not be written to the tree.
func (f *Feed) Failed() int64 {
	return f.failed.Load()
}

// Close stops the worker. Queued poses that were not applied yet are dropped.
func (f *Feed) Close() {
	f.workers.Stop()
}

func (f *Feed) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pose := <-f.poses:
			if err := f.apply(pose); err != nil {
				f.failed.Inc()
				f.logger.Warnw("failed to apply tool pose", "tool", pose.Tool.Name(), "error", err)
				continue
			}
			f.applied.Inc()
		}
	}
}

func (f *Feed) apply(pose ToolPose) error {
	start := pose.Timestamp
	if start.IsZero() {
		start = f.clock.Now()
	}
	validFor := pose.ValidFor
	if validFor == 0 {
		validFor = DefaultValidity
	}
	tf := transform.NewAt(start, pose.Translation, pose.Rotation, pose.Error, validFor)

	parent, err := pose.Tool.Parent()
	if err == nil && parent == f.tracker {
		return pose.Tool.UpdateTransformToParent(tf)
	}
	if err != nil && !errors.Is(err, referenceframe.ErrNoParent) {
		return err
	}
	f.logger.Debugw("attaching tool to tracker", "tool", pose.Tool.Name(), "tracker", f.tracker.Name())
	return pose.Tool.SetTransformAndParent(tf, f.tracker)
}

package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ran atomic.Int32
	started := make(chan struct{}, 2)
	worker := func(ctx context.Context) {
		ran.Add(1)
		started <- struct{}{}
		<-ctx.Done()
	}

	sw := NewStoppableWorkers(worker)
	sw.AddWorkers(worker)
	<-started
	<-started
	test.That(t, sw.Context().Err(), test.ShouldBeNil)

	sw.Stop()
	test.That(t, ran.Load(), test.ShouldEqual, 2)
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// Adding workers after Stop is a no-op.
	sw.AddWorkers(worker)
	test.That(t, ran.Load(), test.ShouldEqual, 2)
}

func TestStoppableWorkersParentContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}

func TestMath(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, 3.141592653589793)
	test.That(t, RadToDeg(DegToRad(42)), test.ShouldAlmostEqual, 42)
	test.That(t, Square(-3), test.ShouldEqual, 9)
	test.That(t, Float64AlmostEqual(1, 1+1e-9, 1e-6), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.1, 1e-6), test.ShouldBeFalse)
}

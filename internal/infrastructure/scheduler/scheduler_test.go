package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		Convey("When a job spec is invalid", func() {
			s := New(nil)
			err := s.AddJob("bad", "not a cron spec", func(context.Context) error { return nil })

			Convey("It should be rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When a job runs every second", func() {
			s := New(nil)

			var mu sync.Mutex
			runs := 0
			err := s.AddJob("tick", "* * * * * *", func(context.Context) error {
				mu.Lock()
				runs++
				mu.Unlock()
				return nil
			})
			So(err, ShouldBeNil)

			s.Start(context.Background())
			time.Sleep(2500 * time.Millisecond)
			s.Stop()

			Convey("It should execute at least once", func() {
				mu.Lock()
				defer mu.Unlock()
				So(runs, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When a job fails", func() {
			var mu sync.Mutex
			var gotName string
			var gotErr error
			s := New(func(name string, err error) {
				mu.Lock()
				gotName, gotErr = name, err
				mu.Unlock()
			})

			boom := errors.New("boom")
			err := s.AddJob("flaky", "* * * * * *", func(context.Context) error { return boom })
			So(err, ShouldBeNil)

			s.Start(context.Background())
			time.Sleep(1500 * time.Millisecond)
			s.Stop()

			Convey("The error callback should receive the job name and error", func() {
				mu.Lock()
				defer mu.Unlock()
				So(gotName, ShouldEqual, "flaky")
				So(errors.Is(gotErr, boom), ShouldBeTrue)
			})
		})

		Convey("When the run context is cancelled mid-job", func() {
			s := New(nil)
			ctx, cancel := context.WithCancel(context.Background())

			var mu sync.Mutex
			var sawCancel bool
			err := s.AddJob("long", "* * * * * *", func(jobCtx context.Context) error {
				// Simulates a long dump: blocks until shutdown.
				<-jobCtx.Done()
				mu.Lock()
				sawCancel = true
				mu.Unlock()
				return jobCtx.Err()
			})
			So(err, ShouldBeNil)

			s.Start(ctx)
			time.Sleep(1500 * time.Millisecond)
			cancel()
			s.Stop()

			Convey("The in-flight job should observe the cancellation", func() {
				mu.Lock()
				defer mu.Unlock()
				So(sawCancel, ShouldBeTrue)
			})
		})
	})
}

package dedupe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/datemaker/internal/domain/dedupe"
	"github.com/okian/datemaker/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func info(kind types.WorkerKind, eventID int64, at time.Time) types.WorkerInfo {
	return types.WorkerInfo{RunID: "r", Kind: kind, EventID: eventID, StartedAt: at}
}

func TestInMemoryRegistry(t *testing.T) {
	Convey("Given a new registry", t, func() {
		ctx := context.Background()
		r := dedupe.NewInMemoryRegistry()
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		So(r.Size(), ShouldEqual, 0)

		Convey("When a worker claims an event", func() {
			So(r.Claim(ctx, info(types.KindDating, 1, now)), ShouldBeNil)

			Convey("Then a second claim for the same key is refused", func() {
				err := r.Claim(ctx, info(types.KindDating, 1, now))
				So(errors.Is(err, dedupe.ErrAlreadyLive), ShouldBeTrue)
				So(r.Size(), ShouldEqual, 1)
			})

			Convey("Then the other kind may still claim the event", func() {
				So(r.Claim(ctx, info(types.KindConfirmation, 1, now)), ShouldBeNil)
				So(r.Size(), ShouldEqual, 2)
			})

			Convey("Then releasing frees the key", func() {
				r.Release(ctx, types.KindDating, 1)
				So(r.IsLive(types.KindDating, 1), ShouldBeFalse)
				So(r.Claim(ctx, info(types.KindDating, 1, now)), ShouldBeNil)
			})

			Convey("Then releasing an unknown key is a no-op", func() {
				r.Release(ctx, types.KindDating, 99)
				So(r.Size(), ShouldEqual, 1)
			})
		})

		Convey("Snapshot is ordered by start time", func() {
			_ = r.Claim(ctx, info(types.KindDating, 2, now.Add(time.Minute)))
			_ = r.Claim(ctx, info(types.KindConfirmation, 3, now))

			snap := r.Snapshot()
			So(len(snap), ShouldEqual, 2)
			So(snap[0].EventID, ShouldEqual, 3)
			So(snap[1].EventID, ShouldEqual, 2)
		})
	})

	Convey("Given a bounded registry", t, func() {
		ctx := context.Background()
		r := dedupe.NewInMemoryRegistry(dedupe.WithMaxSize(1))
		So(r.Claim(ctx, info(types.KindDating, 1, time.Now())), ShouldBeNil)

		err := r.Claim(ctx, info(types.KindDating, 2, time.Now()))
		So(errors.Is(err, dedupe.ErrRegistryFull), ShouldBeTrue)
	})
}

func TestRegistryConcurrentClaims(t *testing.T) {
	Convey("Exactly one of many concurrent claims wins", t, func() {
		ctx := context.Background()
		r := dedupe.NewInMemoryRegistry()

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if r.Claim(ctx, info(types.KindConfirmation, 7, time.Now())) == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		So(wins, ShouldEqual, 1)
		So(dedupe.Key(types.KindConfirmation, 7), ShouldEqual, "confirmation:7")
	})
}

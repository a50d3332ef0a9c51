package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	service "github.com/okian/datemaker/internal/app"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// bot is a command handler that plays every participant: it confirms when
// asked and likes the partner it is asked to rate.
type bot struct {
	svc *service.Service

	mu   sync.Mutex
	seen map[model.CommandName]int
}

func (b *bot) Handle(ctx context.Context, cmd model.Command) error {
	b.mu.Lock()
	b.seen[cmd.Name]++
	b.mu.Unlock()

	store := b.svc.Store()
	switch cmd.Name {
	case model.CmdConfirmRegistration:
		return store.ConfirmRegistration(ctx, cmd.EventID, cmd.UserID, time.Now())
	case model.CmdSendPartnerRatingRequest:
		partner, _ := cmd.Payload["partner_id"].(int64)
		return store.SaveLike(ctx, model.Like{EventID: cmd.EventID, SourceUserID: cmd.UserID, TargetUserID: partner})
	}
	return nil
}

func (b *bot) count(name model.CommandName) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen[name]
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service on a fake clock with four confirmed registrants", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		t0 := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
		start := t0.Add(48 * time.Hour)
		clk := clock.NewFake(t0)
		cfg := testConfig()
		cfg.Dating.WaitForReady = false

		b := &bot{seen: make(map[model.CommandName]int)}
		svc := service.New(
			service.WithConfig(cfg),
			service.WithClock(clk),
			service.WithLogger(logger.Nop()),
			service.WithConsumers(2, b))
		b.svc = svc
		store := svc.Store()

		ev, _ := store.CreateEvent(ctx, model.Event{StartTime: start, GroupCapacity: 2})
		for i, sex := range []string{model.SexMale, model.SexMale, model.SexFemale, model.SexFemale} {
			id := int64(i + 1)
			_ = store.UpsertUser(ctx, model.User{ID: id, Sex: sex, City: "Lisbon", BirthDate: time.Date(1994, 5, 5, 0, 0, 0, 0, time.UTC)})
			_ = store.InsertRegistration(ctx, model.Registration{EventID: ev.ID, UserID: id, RegisteredAt: t0.Add(-time.Duration(10-i) * time.Hour)})
			_ = store.ConfirmRegistration(ctx, ev.ID, id, t0)
		}
		state := func() model.EventState {
			e, _ := store.GetEvent(ctx, ev.ID)
			return e.State
		}

		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()
		So(eventually(func() bool { return svc.GetStats().Scheduler.Ticks >= 1 }), ShouldBeTrue)

		Convey("When the confirmation window opens", func() {
			clk.Set(start.Add(-2 * time.Hour))
			_, err := svc.Tick(ctx)
			So(err, ShouldBeNil)

			Convey("Then the event is paired and READY", func() {
				So(eventually(func() bool { return state() == model.StateReady }), ShouldBeTrue)
				So(eventually(func() bool { return b.count(model.CmdParticipationConfirmed) == 4 }), ShouldBeTrue)
				So(b.count(model.CmdConfirmRegistration), ShouldEqual, 4)
				pairs, _ := store.ListPairs(ctx, ev.ID)
				So(len(pairs), ShouldEqual, 4)
			})

			Convey("And the dating lead is reached", func() {
				So(eventually(func() bool { return state() == model.StateReady }), ShouldBeTrue)
				clk.Set(start.Add(-5 * time.Minute))
				_, err := svc.Tick(ctx)
				So(err, ShouldBeNil)

				Convey("Then every round is played and the event FINISHES", func() {
					So(eventually(func() bool { return state() == model.StateFinished }), ShouldBeTrue)
					So(eventually(func() bool { return b.count(model.CmdSendMatchResults) == 4 }), ShouldBeTrue)
					So(eventually(func() bool { return b.count(model.CmdInviteToMeeting) == 8 }), ShouldBeTrue)
					So(b.count(model.CmdSendRules), ShouldEqual, 4)
					So(eventually(func() bool { return len(svc.ActiveWorkers()) == 0 }), ShouldBeTrue)
					So(svc.GetStats().Scheduler.WorkersFailed, ShouldEqual, 0)
				})
			})
		})
	})
}

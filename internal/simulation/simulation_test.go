package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a small event where everybody confirms and likes", t, func() {
		out := filepath.Join(t.TempDir(), "reports", "run.json")
		cfg := Config{
			Participants:  8,
			GroupCapacity: 4,
			ConfirmRate:   1,
			LikeRate:      1,
			Speed:         6000,
			Consumers:     2,
			Timeout:       time.Minute,
			OutputFile:    out,
			Logger:        logger.Nop(),
		}

		Convey("When the simulation runs", func() {
			report, err := Run(context.Background(), cfg)

			Convey("Then the event finishes with every couple matched", func() {
				So(err, ShouldBeNil)
				So(report.FinalState, ShouldEqual, string(model.StateFinished))
				So(report.Participants, ShouldEqual, 8)
				So(report.Confirmed, ShouldEqual, 8)
				So(report.Pairs, ShouldBeGreaterThan, 0)
				So(report.Likes, ShouldEqual, 2*report.Pairs)
				So(report.Matches, ShouldEqual, 2*report.Pairs)
				So(report.Commands[string(model.CmdConfirmRegistration)], ShouldEqual, 8)
				So(report.Commands[string(model.CmdSendMatchResults)], ShouldEqual, report.Seated)
			})

			Convey("Then the report is written as JSON", func() {
				So(err, ShouldBeNil)
				raw, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var got Report
				So(json.Unmarshal(raw, &got), ShouldBeNil)
				So(got.EventID, ShouldEqual, report.EventID)
				So(got.FinalState, ShouldEqual, report.FinalState)
			})
		})
	})

	Convey("Given an event where nobody confirms", t, func() {
		cfg := Config{Participants: 6, GroupCapacity: 4, ConfirmRate: 0, LikeRate: 1, Speed: 6000, Timeout: time.Minute, Logger: logger.Nop()}

		Convey("Then it is skipped without a schedule", func() {
			report, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)
			So(report.FinalState, ShouldEqual, string(model.StateSkipped))
			So(report.Confirmed, ShouldEqual, 0)
			So(report.Pairs, ShouldEqual, 0)
			So(report.Commands[string(model.CmdSendRules)], ShouldEqual, 0)
		})
	})
}

func TestConfigDefaults(t *testing.T) {
	Convey("Zero values fall back to defaults", t, func() {
		cfg := Config{ConfirmRate: 2, LikeRate: -1}.withDefaults()
		So(cfg.Participants, ShouldEqual, defaultParticipants)
		So(cfg.GroupCapacity, ShouldEqual, defaultGroupCapacity)
		So(cfg.ConfirmRate, ShouldEqual, defaultConfirmRate)
		So(cfg.LikeRate, ShouldEqual, defaultLikeRate)
		So(cfg.Speed, ShouldEqual, float64(defaultSpeed))
		So(cfg.Logger, ShouldNotBeNil)
	})
}

func TestGenerateUsers(t *testing.T) {
	Convey("Generated users cover both sexes and adult ages", t, func() {
		at := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)
		users := generateUsers(10, at)
		So(users, ShouldHaveLength, 10)
		So(users[0].Sex, ShouldEqual, model.SexMale)
		So(users[1].Sex, ShouldEqual, model.SexFemale)
		for i, u := range users {
			So(u.ID, ShouldEqual, int64(i+1))
			So(u.AgeAt(at), ShouldBeBetweenOrEqual, minAge, minAge+ageRange)
			So(u.City, ShouldBeIn, cities)
		}
	})
}

func TestBot(t *testing.T) {
	Convey("Given a bot over a store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		_ = store.InsertRegistration(ctx, model.Registration{EventID: 1, UserID: 5, RegisteredAt: time.Now()})
		b := newBot(clock.NewFake(time.Now()), 0.5, 0.5)
		b.store = store

		Convey("A low roll confirms and likes", func() {
			b.roll = func() float64 { return 0.1 }
			So(b.Handle(ctx, model.NewCommand(model.CmdConfirmRegistration, 1, 5, nil)), ShouldBeNil)
			So(b.Handle(ctx, model.NewCommand(model.CmdSendPartnerRatingRequest, 1, 5, map[string]any{"partner_id": int64(6)})), ShouldBeNil)
			regs, _ := store.ListRegistrations(ctx, 1)
			So(regs[0].ConfirmedAt, ShouldNotBeNil)
			_, likes := b.snapshot()
			So(likes, ShouldEqual, 1)
		})

		Convey("A high roll declines and passes", func() {
			b.roll = func() float64 { return 0.9 }
			So(b.Handle(ctx, model.NewCommand(model.CmdConfirmRegistration, 1, 5, nil)), ShouldBeNil)
			So(b.Handle(ctx, model.NewCommand(model.CmdSendPartnerRatingRequest, 1, 5, map[string]any{"partner_id": int64(6)})), ShouldBeNil)
			regs, _ := store.ListRegistrations(ctx, 1)
			So(regs[0].ConfirmedAt, ShouldBeNil)
			seen, likes := b.snapshot()
			So(likes, ShouldEqual, 0)
			So(seen[string(model.CmdSendPartnerRatingRequest)], ShouldEqual, 1)
		})

		Convey("Rules mark the user ready", func() {
			So(b.Handle(ctx, model.NewCommand(model.CmdSendRules, 1, 5, nil)), ShouldBeNil)
			ready, err := store.AreAllReady(ctx, 1)
			So(err, ShouldBeNil)
			So(ready, ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given stored profiles", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		for id, sex := range map[int64]string{1: model.SexMale, 2: model.SexFemale, 3: model.SexMale, 4: model.SexFemale} {
			_ = store.UpsertUser(ctx, model.User{ID: id, Sex: sex})
		}

		Convey("A valid schedule passes", func() {
			pairs := []model.Pair{
				{GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 2},
				{GroupNo: 1, TurnNo: 1, FirstUserID: 3, SecondUserID: 4},
				{GroupNo: 1, TurnNo: 2, FirstUserID: 1, SecondUserID: 4},
				{GroupNo: 1, TurnNo: 2, FirstUserID: 3, SecondUserID: 2},
			}
			So(verifySchedule(ctx, store, pairs), ShouldBeNil)
		})

		Convey("A double booking fails", func() {
			pairs := []model.Pair{
				{GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 2},
				{GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 4},
			}
			So(errors.Is(verifySchedule(ctx, store, pairs), ErrVerification), ShouldBeTrue)
		})

		Convey("A repeated couple fails", func() {
			pairs := []model.Pair{
				{GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 2},
				{GroupNo: 1, TurnNo: 2, FirstUserID: 1, SecondUserID: 2},
			}
			So(errors.Is(verifySchedule(ctx, store, pairs), ErrVerification), ShouldBeTrue)
		})

		Convey("A same-sex couple fails", func() {
			pairs := []model.Pair{{GroupNo: 1, TurnNo: 1, FirstUserID: 1, SecondUserID: 3}}
			So(errors.Is(verifySchedule(ctx, store, pairs), ErrVerification), ShouldBeTrue)
		})

		Convey("A one-sided match fails", func() {
			So(verifyMatches([]model.Match{{UserID: 1, Partner: 2}, {UserID: 2, Partner: 1}}), ShouldBeNil)
			So(errors.Is(verifyMatches([]model.Match{{UserID: 1, Partner: 2}}), ErrVerification), ShouldBeTrue)
		})
	})
}

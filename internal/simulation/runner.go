package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	service "github.com/okian/datemaker/internal/app"
	"github.com/okian/datemaker/internal/config"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
)

// Run configuration constants.
const (
	eventHorizon        = 48 * time.Hour
	confirmationWindow  = 30 * time.Minute
	pollInterval        = 10 * time.Millisecond
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes one simulated event from registration to match results.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	began := time.Now()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	origin := time.Now().UTC().Truncate(time.Minute)
	start := origin.Add(eventHorizon)
	clk := clock.NewScaled(origin, cfg.Speed)

	svcCfg := config.New(ctx)
	svcCfg.Database.Driver = "memory"
	svcCfg.Messaging.Driver = "memory"
	svcCfg.Meet.Driver = "static"
	svcCfg.Scheduler.TickInterval = eventHorizon
	svcCfg.Matchmaking.DefaultGroupCapacity = cfg.GroupCapacity

	b := newBot(clk, cfg.ConfirmRate, cfg.LikeRate)
	svc := service.New(
		service.WithConfig(svcCfg),
		service.WithClock(clk),
		service.WithLogger(log),
		service.WithConsumers(cfg.Consumers, b))
	store := svc.Store()
	b.store = store

	ev, err := store.CreateEvent(ctx, model.Event{StartTime: start, GroupCapacity: cfg.GroupCapacity})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	for i, u := range generateUsers(cfg.Participants, start) {
		if err := store.UpsertUser(ctx, u); err != nil {
			return nil, fmt.Errorf("create user %d: %w", u.ID, err)
		}
		reg := model.Registration{EventID: ev.ID, UserID: u.ID, RegisteredAt: origin.Add(-time.Duration(cfg.Participants-i) * time.Minute)}
		if err := store.InsertRegistration(ctx, reg); err != nil {
			return nil, fmt.Errorf("register user %d: %w", u.ID, err)
		}
	}
	log.Info(ctx, "simulated event created",
		logger.EventID(ev.ID),
		logger.Time("start", start),
		logger.Int("participants", cfg.Participants),
		logger.Float64("speed", clk.Factor()))

	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}
	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "service stop failed", logger.Error(err))
		}
	}
	defer stop()

	// Step 1: confirmation window
	clk.Jump(start.Add(-svcCfg.Confirmation.Timeout - confirmationWindow))
	if _, err := svc.Tick(ctx); err != nil {
		return nil, err
	}
	state, err := waitState(ctx, svc, ev.ID, model.StateReady, model.StateSkipped)
	if err != nil {
		return nil, fmt.Errorf("confirmation: %w", err)
	}

	// Step 2: dating
	var expectResults int
	if state == model.StateReady {
		pairs, err := store.ListPairs(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		expectResults = len(seated(pairs))

		clk.Jump(start.Add(-svcCfg.Scheduler.DatingLead))
		if _, err := svc.Tick(ctx); err != nil {
			return nil, err
		}
		if state, err = waitState(ctx, svc, ev.ID, model.StateFinished); err != nil {
			return nil, fmt.Errorf("dating: %w", err)
		}
	}

	// Step 3: let the bot drain what is left
	if err := waitUntil(ctx, func() bool {
		return b.count(model.CmdSendMatchResults) >= expectResults && svc.GetStats().QueueDepth == 0
	}); err != nil {
		return nil, fmt.Errorf("drain commands: %w", err)
	}
	svc.WaitWorkers()
	stop()

	report, err := buildReport(ctx, store, ev.ID, b)
	if err != nil {
		return nil, err
	}
	report.FinalState = string(state)
	report.Participants = cfg.Participants
	report.Duration = time.Since(began).String()

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	displayFinalStats(ctx, log, report)
	return report, nil
}

func waitState(ctx context.Context, svc *service.Service, id int64, want ...model.EventState) (model.EventState, error) {
	var last model.EventState
	err := waitUntil(ctx, func() bool {
		ev, err := svc.GetEvent(ctx, id)
		if err != nil {
			return false
		}
		last = ev.State
		for _, w := range want {
			if ev.State == w {
				return true
			}
		}
		return false
	})
	if err != nil {
		return last, fmt.Errorf("event stuck in %s: %w", last, err)
	}
	return last, nil
}

func waitUntil(ctx context.Context, cond func() bool) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// saveReport writes the report as indented JSON.
func saveReport(filename string, r *Report) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, r *Report) {
	log.Info(ctx, "final statistics",
		logger.EventID(r.EventID),
		logger.String("state", r.FinalState),
		logger.Int("participants", r.Participants),
		logger.Int("confirmed", r.Confirmed),
		logger.Int("seated", r.Seated),
		logger.Int("groups", r.Groups),
		logger.Int("pairs", r.Pairs),
		logger.Int("likes", r.Likes),
		logger.Int("matches", r.Matches),
		logger.String("duration", r.Duration))
}

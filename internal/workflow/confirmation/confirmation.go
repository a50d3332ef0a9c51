// Package confirmation runs the registration-confirmation phase of an event:
// it prompts every registrant, waits until the confirmation window closes,
// pairs whoever confirmed and moves the event to READY or SKIPPED.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/matchmaking"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/workflow"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

const (
	defaultPollInterval = 60 * time.Second
	defaultTimeout      = time.Hour
	defaultCapacity     = 10
)

// Outcome summarises a finished confirmation run.
type Outcome struct {
	State     model.EventState
	Confirmed int
	Matched   int
	Unmatched int
	Groups    int
}

// Worker confirms registrations for one event at a time. It is stateless
// between runs and safe to share.
type Worker struct {
	store  repository.Store
	pub    workflow.Publisher
	engine *matchmaking.Engine
	clock  clock.Clock
	log    logger.Logger

	pollInterval    time.Duration
	timeout         time.Duration
	defaultCapacity int
}

// New creates a worker with configuration options.
func New(store repository.Store, pub workflow.Publisher, engine *matchmaking.Engine, opts ...Option) *Worker {
	w := &Worker{
		store:           store,
		pub:             pub,
		engine:          engine,
		clock:           clock.New(),
		pollInterval:    defaultPollInterval,
		timeout:         defaultTimeout,
		defaultCapacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get().Named("confirmation")
	}
	if w.engine == nil {
		w.engine = matchmaking.NewEngine(matchmaking.WithLogger(w.log))
	}
	return w
}

// Run drives eventID from NOT_STARTED (or an interrupted confirmation) to
// READY or SKIPPED.
func (w *Worker) Run(ctx context.Context, eventID int64) (Outcome, error) {
	ev, err := w.store.GetEvent(ctx, eventID)
	if err != nil {
		return Outcome{}, err
	}
	log := w.log.With(logger.EventID(eventID))

	if err := w.setState(ctx, eventID, model.StateRegistrationConfirmation); err != nil {
		return Outcome{}, err
	}
	log.Info(ctx, "confirmation started", logger.Time("start_time", ev.StartTime))

	send := workflow.NewSender(w.pub, eventID, log)
	deadline := ev.StartTime.Add(-w.timeout)
	for {
		if err := w.prompt(ctx, ev, send); err != nil {
			log.Error(ctx, "prompting registrants failed", logger.Error(err))
		}
		now := w.clock.Now()
		if !now.Before(deadline) {
			break
		}
		if err := w.clock.Sleep(ctx, min(w.pollInterval, deadline.Sub(now))); err != nil {
			return Outcome{}, err
		}
	}

	return w.finalize(ctx, ev, send, log)
}

// prompt asks every registrant that has not been asked yet to confirm.
func (w *Worker) prompt(ctx context.Context, ev model.Event, send *workflow.Sender) error {
	regs, err := w.store.ListRegistrations(ctx, ev.ID)
	if err != nil {
		return err
	}
	var pending []int64
	for _, r := range regs {
		if !r.ConfirmationSent {
			pending = append(pending, r.UserID)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	sent := send.Broadcast(ctx, model.CmdConfirmRegistration, pending, map[string]any{
		"event_id":   ev.ID,
		"start_time": ev.StartTime.UTC().Format(time.RFC3339),
	})
	if len(sent) == 0 {
		return nil
	}
	return w.store.MarkConfirmationSent(ctx, ev.ID, sent)
}

func (w *Worker) finalize(ctx context.Context, ev model.Event, send *workflow.Sender, log logger.Logger) (Outcome, error) {
	regs, err := w.store.ListRegistrations(ctx, ev.ID)
	if err != nil {
		return Outcome{}, err
	}

	var confirmed []int64
	participants := make([]matchmaking.Participant, 0, len(regs))
	for _, r := range regs {
		if !r.IsConfirmed() {
			continue
		}
		confirmed = append(confirmed, r.UserID)
		u, err := w.store.GetUser(ctx, r.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn(ctx, "profile missing, skipping participant", logger.UserID(r.UserID))
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("load profile %d: %w", r.UserID, err)
		}
		participants = append(participants, matchmaking.FromProfile(u, r, ev.StartTime))
	}

	capacity := ev.GroupCapacity
	if capacity <= 0 {
		capacity = w.defaultCapacity
	}
	res, err := w.engine.Build(ctx, ev.ID, participants, capacity)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Confirmed: len(confirmed), Matched: len(res.Matched), Groups: len(res.Groups)}
	if res.Empty() {
		send.Broadcast(ctx, model.CmdParticipationDeclined, confirmed, nil)
		if err := w.setState(ctx, ev.ID, model.StateSkipped); err != nil {
			return Outcome{}, err
		}
		out.State, out.Unmatched = model.StateSkipped, len(confirmed)
		log.Info(ctx, "nobody to pair, event skipped", logger.Int("confirmed", len(confirmed)))
		return out, nil
	}

	if err := w.store.ReplacePairs(ctx, ev.ID, res.Pairs); err != nil {
		return Outcome{}, fmt.Errorf("store schedule: %w", err)
	}

	for _, id := range confirmed {
		if group, ok := res.Matched[id]; ok {
			send.Send(ctx, model.CmdParticipationConfirmed, id, map[string]any{"group_no": group})
			continue
		}
		send.Send(ctx, model.CmdParticipationDeclined, id, nil)
		out.Unmatched++
	}

	if err := w.setState(ctx, ev.ID, model.StateReady); err != nil {
		return Outcome{}, err
	}
	out.State = model.StateReady
	log.Info(ctx, "confirmation finished",
		logger.Int("confirmed", out.Confirmed),
		logger.Int("matched", out.Matched),
		logger.Int("unmatched", out.Unmatched),
		logger.Int("groups", out.Groups))
	return out, nil
}

func (w *Worker) setState(ctx context.Context, eventID int64, s model.EventState) error {
	if err := w.store.SetEventState(ctx, eventID, s); err != nil {
		return fmt.Errorf("set event %d %s: %w", eventID, s, err)
	}
	metrics.RecordEventState(string(s))
	return nil
}

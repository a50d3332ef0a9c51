// Package dating runs a READY event: it sends the rules, then drives every
// group through its rounds of dates and breaks with a state machine, and
// finally tells each participant who liked them back.
package dating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datemaker/internal/adapters/meet"
	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/fsm"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/workflow"
	"github.com/okian/datemaker/pkg/clock"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// Group machine states and inputs.
const (
	StateInitial = "initial"
	StateRound   = "round"
	StateBreak   = "break"
	StateFinal   = "final"

	InputStart  = "start"
	InputBreak  = "break"
	InputNext   = "next"
	InputFinish = "finish"
)

const (
	defaultRulesLead     = 5 * time.Minute
	defaultRoundDuration = 5 * time.Minute
	defaultBreakDuration = time.Minute
	defaultReadyPoll     = 10 * time.Second
	teardownTimeout      = 30 * time.Second
)

// Outcome summarises a finished dating run.
type Outcome struct {
	State  model.EventState
	Groups int
	Rounds int
}

// Worker runs dating events. It is stateless between runs and safe to share.
type Worker struct {
	store    repository.Store
	pub      workflow.Publisher
	provider meet.Provider
	clock    clock.Clock
	log      logger.Logger
	def      *fsm.Definition[*group]

	rulesLead     time.Duration
	roundDuration time.Duration
	breakDuration time.Duration
	waitForReady  bool
	readyPoll     time.Duration
}

// New creates a worker with configuration options.
func New(store repository.Store, pub workflow.Publisher, provider meet.Provider, opts ...Option) (*Worker, error) {
	w := &Worker{
		store:         store,
		pub:           pub,
		provider:      provider,
		clock:         clock.New(),
		rulesLead:     defaultRulesLead,
		roundDuration: defaultRoundDuration,
		breakDuration: defaultBreakDuration,
		readyPoll:     defaultReadyPoll,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Get().Named("dating")
	}

	def, err := fsm.NewBuilder[*group]().
		State(StateInitial, w.prepare).
		State(StateRound, w.round).
		State(StateBreak, w.pause).
		State(StateFinal, w.final).
		Transition(StateInitial, InputStart, StateRound).
		Transition(StateRound, InputBreak, StateBreak).
		Transition(StateBreak, InputNext, StateRound).
		Transition(StateBreak, InputFinish, StateFinal).
		Build(StateInitial, fsm.WithLogger(w.log.Named("fsm")))
	if err != nil {
		return nil, fmt.Errorf("build group machine: %w", err)
	}
	w.def = def
	return w, nil
}

// Run drives eventID from READY to FINISHED, or to SKIPPED when it has no
// schedule. On cancellation the event state is left as it is.
func (w *Worker) Run(ctx context.Context, eventID int64) (Outcome, error) {
	ev, err := w.store.GetEvent(ctx, eventID)
	if err != nil {
		return Outcome{}, err
	}
	log := w.log.With(logger.EventID(eventID))

	if err := w.setState(ctx, eventID, model.StateRunning); err != nil {
		return Outcome{}, err
	}

	pairs, err := w.store.ListPairs(ctx, eventID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load schedule: %w", err)
	}
	if len(pairs) == 0 {
		log.Warn(ctx, "no schedule, event skipped")
		if err := w.setState(ctx, eventID, model.StateSkipped); err != nil {
			return Outcome{}, err
		}
		return Outcome{State: model.StateSkipped}, nil
	}

	send := workflow.NewSender(w.pub, eventID, log)
	groups := groupPairs(ev, pairs)
	everyone := make(map[int64]struct{})
	for _, g := range groups {
		for _, id := range g.users {
			everyone[id] = struct{}{}
		}
	}
	send.Broadcast(ctx, model.CmdSendRules, sortedIDs(everyone), map[string]any{
		"round_duration": w.roundDuration.String(),
		"break_duration": w.breakDuration.String(),
	})
	log.Info(ctx, "rules sent", logger.Int("participants", len(everyone)), logger.Int("groups", len(groups)))
	if err := w.clock.Sleep(ctx, w.rulesLead); err != nil {
		return Outcome{}, err
	}

	var eg errgroup.Group
	out := Outcome{Groups: len(groups)}
	for _, g := range groups {
		if len(g.turns) == 0 {
			continue
		}
		g.send = send
		g.log = log.With(logger.Int("group_no", g.no))
		out.Rounds += len(g.turns)
		eg.Go(func() error { return w.runGroup(ctx, g) })
	}
	if err := eg.Wait(); err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	if err := w.setState(ctx, eventID, model.StateFinished); err != nil {
		return out, err
	}
	out.State = model.StateFinished
	log.Info(ctx, "event finished", logger.Int("groups", out.Groups), logger.Int("rounds", out.Rounds))
	return out, nil
}

// runGroup feeds inputs to one group's machine until it reaches the final state.
func (w *Worker) runGroup(ctx context.Context, g *group) (err error) {
	defer func() {
		if err != nil {
			g.log.Error(ctx, "group stopped", logger.Error(err))
		}
	}()
	defer w.teardown(ctx, g)

	m := w.def.Start(ctx, g)
	// Wait past cancellation so teardown sees every created room.
	if err := m.WaitInitial(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("group %d: %w", g.no, err)
	}

	for t := range g.turns {
		g.turn = t
		input := InputNext
		if t == 0 {
			input = InputStart
		}
		if err := step(ctx, m, input, g); err != nil {
			return err
		}
		if err := step(ctx, m, InputBreak, g); err != nil {
			return err
		}
	}
	return step(ctx, m, InputFinish, g)
}

func step(ctx context.Context, m *fsm.Machine[*group], input string, g *group) error {
	moved, err := m.Transition(ctx, input, g)
	if err != nil {
		return fmt.Errorf("group %d %s: %w", g.no, m.Current(), err)
	}
	if !moved {
		return fmt.Errorf("group %d: %w: %s in %s", g.no, ErrStuck, input, m.Current())
	}
	return nil
}

// prepare opens one public room per concurrent date, then waits for the
// participants when the readiness gate is on.
func (w *Worker) prepare(ctx context.Context, g *group) error {
	for i := 0; i < g.slots(); i++ {
		space, err := meet.CreatePublicSpace(ctx, w.provider)
		if err != nil {
			return err
		}
		g.spaces = append(g.spaces, space)
	}
	g.log.Info(ctx, "rooms ready", logger.Int("rooms", len(g.spaces)))

	if !w.waitForReady {
		return nil
	}
	for {
		ready, err := w.store.AreAllReady(ctx, g.event.ID)
		if err != nil {
			g.log.Warn(ctx, "readiness check failed", logger.Error(err))
		}
		if ready {
			return nil
		}
		now := w.clock.Now()
		if !now.Before(g.event.StartTime) {
			g.log.Info(ctx, "start time reached, not everyone is ready")
			return nil
		}
		if err := w.clock.Sleep(ctx, min(w.readyPoll, g.event.StartTime.Sub(now))); err != nil {
			return err
		}
	}
}

// round invites both sides of every date of the current turn.
func (w *Worker) round(ctx context.Context, g *group) error {
	for i, p := range g.turns[g.turn] {
		url := g.spaces[i].MeetingURI
		for _, side := range [][2]int64{{p.FirstUserID, p.SecondUserID}, {p.SecondUserID, p.FirstUserID}} {
			g.send.Send(ctx, model.CmdInviteToMeeting, side[0], map[string]any{"url": url})
			g.send.Send(ctx, model.CmdSendPartnerProfile, side[0], map[string]any{"partner_id": side[1]})
		}
	}
	g.log.Debug(ctx, "round started", logger.Int("turn", g.turn))
	return w.clock.Sleep(ctx, w.roundDuration)
}

// pause ends the calls, announces the break and asks for feedback on the
// partner each participant just met.
func (w *Worker) pause(ctx context.Context, g *group) error {
	for _, s := range g.spaces {
		if err := w.provider.EndActiveCall(ctx, s); err != nil {
			g.log.Warn(ctx, "ending call failed", logger.String("space", s.Name), logger.Error(err))
		}
	}
	g.send.Broadcast(ctx, model.CmdSendBreakMessage, g.users, nil)
	for _, p := range g.turns[g.turn] {
		for _, side := range [][2]int64{{p.FirstUserID, p.SecondUserID}, {p.SecondUserID, p.FirstUserID}} {
			g.send.Send(ctx, model.CmdSendPartnerRatingRequest, side[0], map[string]any{"partner_id": side[1]})
			g.send.Send(ctx, model.CmdSendProfileVerificationReq, side[0], map[string]any{"partner_id": side[1]})
		}
	}
	metrics.RecordRoundCompleted()
	return w.clock.Sleep(ctx, w.breakDuration)
}

// final says goodbye and sends every participant their mutual likes.
func (w *Worker) final(ctx context.Context, g *group) error {
	matches, err := w.store.ListMatches(ctx, g.event.ID)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	partners := make(map[int64][]int64)
	for _, m := range matches {
		partners[m.UserID] = append(partners[m.UserID], m.Partner)
	}

	for _, id := range g.users {
		g.send.Send(ctx, model.CmdSendFinalDatingMessage, id, nil)
		mine := partners[id]
		if mine == nil {
			mine = []int64{}
		}
		g.send.Send(ctx, model.CmdSendMatchResults, id, map[string]any{"matches": mine})
	}
	metrics.RecordGroupFinished()
	g.log.Info(ctx, "group finished", logger.Int("matches", len(matches)))
	return nil
}

// teardown ends every call in the group's rooms, even after cancellation.
func (w *Worker) teardown(ctx context.Context, g *group) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	for _, s := range g.spaces {
		if err := w.provider.EndActiveCall(bg, s); err != nil && !errors.Is(err, meet.ErrNoActiveCall) {
			g.log.Warn(bg, "teardown failed", logger.String("space", s.Name), logger.Error(err))
		}
	}
}

func (w *Worker) setState(ctx context.Context, eventID int64, s model.EventState) error {
	if err := w.store.SetEventState(ctx, eventID, s); err != nil {
		return fmt.Errorf("set event %d %s: %w", eventID, s, err)
	}
	metrics.RecordEventState(string(s))
	return nil
}

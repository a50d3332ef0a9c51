package matchmaking

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// Result is everything one pairing run produces.
type Result struct {
	Matrix      *Matrix
	Assignments []Assignment
	Groups      []Group
	Pairs       []model.Pair
	// Matched lists every participant that got a group, by user ID.
	Matched map[int64]int
	// Unmatched lists participants left out: dropped targets, unclaimed
	// additives and participants of unknown sex.
	Unmatched []int64
}

// Empty reports whether the run produced no pairs.
func (r Result) Empty() bool { return len(r.Pairs) == 0 }

// Engine runs the full pairing pipeline.
type Engine struct {
	log logger.Logger
}

// NewEngine creates an engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("matchmaking")
	}
	return e
}

// Build pairs the participants of an event into groups of at most capacity.
// The same input always yields the same result.
func (e *Engine) Build(ctx context.Context, eventID int64, ps []Participant, capacity int) (Result, error) {
	start := time.Now()
	if capacity <= 0 {
		return Result{}, ErrInvalidCapacity
	}

	seen := make(map[int64]bool, len(ps))
	for _, p := range ps {
		if seen[p.UserID] {
			return Result{}, fmt.Errorf("%w: %d", ErrDuplicateUser, p.UserID)
		}
		seen[p.UserID] = true
	}

	targets, additives, rest := Split(ps)
	m := NewMatrix(targets, additives)
	assigned, dropped := Assign(m, targets)

	groups, err := Chunk(assigned, capacity)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Matrix:      m,
		Assignments: assigned,
		Groups:      groups,
		Matched:     make(map[int64]int, 2*len(assigned)),
	}
	for _, g := range groups {
		res.Pairs = append(res.Pairs, Schedule(eventID, g)...)
		for _, a := range g.Assignments {
			res.Matched[a.Target] = g.No
			res.Matched[a.Additive] = g.No
		}
	}

	res.Unmatched = append(res.Unmatched, dropped...)
	for _, a := range additives {
		if _, ok := res.Matched[a.UserID]; !ok {
			res.Unmatched = append(res.Unmatched, a.UserID)
		}
	}
	for _, p := range rest {
		res.Unmatched = append(res.Unmatched, p.UserID)
	}

	metrics.RecordPairing(float64(time.Since(start).Microseconds())/1000, len(res.Matched), len(res.Unmatched), len(groups))
	e.log.Info(ctx, "pairing done",
		logger.EventID(eventID),
		logger.Int("participants", len(ps)),
		logger.Int("targets", len(targets)),
		logger.Int("additives", len(additives)),
		logger.Int("groups", len(groups)),
		logger.Int("pairs", len(res.Pairs)),
		logger.Int("unmatched", len(res.Unmatched)))

	return res, nil
}

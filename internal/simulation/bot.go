package simulation

import (
	"context"
	"sync"

	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/clock"
)

// bot plays every participant. It confirms when prompted, reports ready
// when the rules arrive and likes partners it is asked to rate.
type bot struct {
	store       repository.Store
	clock       clock.Clock
	confirmRate float64
	likeRate    float64
	roll        func() float64

	mu    sync.Mutex
	seen  map[model.CommandName]int
	likes int
}

func newBot(clk clock.Clock, confirmRate, likeRate float64) *bot {
	return &bot{
		clock:       clk,
		confirmRate: confirmRate,
		likeRate:    likeRate,
		roll:        getRandomFloat,
		seen:        make(map[model.CommandName]int),
	}
}

func (b *bot) Handle(ctx context.Context, cmd model.Command) error {
	b.mu.Lock()
	b.seen[cmd.Name]++
	b.mu.Unlock()

	switch cmd.Name {
	case model.CmdConfirmRegistration:
		if b.roll() < b.confirmRate {
			return b.store.ConfirmRegistration(ctx, cmd.EventID, cmd.UserID, b.clock.Now())
		}
	case model.CmdSendRules:
		return b.store.SetReady(ctx, cmd.EventID, cmd.UserID)
	case model.CmdSendPartnerRatingRequest:
		partner, ok := cmd.Payload["partner_id"].(int64)
		if !ok || b.roll() >= b.likeRate {
			return nil
		}
		if err := b.store.SaveLike(ctx, model.Like{EventID: cmd.EventID, SourceUserID: cmd.UserID, TargetUserID: partner}); err != nil {
			return err
		}
		b.mu.Lock()
		b.likes++
		b.mu.Unlock()
	}
	return nil
}

func (b *bot) count(name model.CommandName) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen[name]
}

func (b *bot) snapshot() (map[string]int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.seen))
	for k, v := range b.seen {
		out[string(k)] = v
	}
	return out, b.likes
}

package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/datemaker/internal/adapters/repository"
	"github.com/okian/datemaker/internal/domain/model"
)

// ErrVerification marks a simulated event whose outcome breaks a
// scheduling or matching rule.
var ErrVerification = errors.New("simulation verification failed")

func buildReport(ctx context.Context, store repository.Store, eventID int64, b *bot) (*Report, error) {
	regs, err := store.ListRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}
	pairs, err := store.ListPairs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	matches, err := store.ListMatches(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := verifySchedule(ctx, store, pairs); err != nil {
		return nil, err
	}
	if err := verifyMatches(matches); err != nil {
		return nil, err
	}

	r := &Report{EventID: eventID, Pairs: len(pairs), Matches: len(matches)}
	for _, reg := range regs {
		if reg.ConfirmedAt != nil {
			r.Confirmed++
		}
	}
	groups := make(map[int]struct{})
	for _, p := range pairs {
		groups[p.GroupNo] = struct{}{}
	}
	r.Groups = len(groups)
	r.Seated = len(seated(pairs))
	r.Commands, r.Likes = b.snapshot()
	return r, nil
}

// verifySchedule checks that nobody sits twice in one turn, no couple meets
// twice and every couple is one target facing one additive of the other sex.
func verifySchedule(ctx context.Context, store repository.Store, pairs []model.Pair) error {
	type slot struct{ group, turn int }
	busy := make(map[slot]map[int64]bool)
	met := make(map[[2]int64]bool)
	for _, p := range pairs {
		s := slot{p.GroupNo, p.TurnNo}
		if busy[s] == nil {
			busy[s] = make(map[int64]bool)
		}
		for _, id := range []int64{p.FirstUserID, p.SecondUserID} {
			if busy[s][id] {
				return fmt.Errorf("%w: user %d seated twice in group %d turn %d", ErrVerification, id, p.GroupNo, p.TurnNo)
			}
			busy[s][id] = true
		}
		key := [2]int64{min(p.FirstUserID, p.SecondUserID), max(p.FirstUserID, p.SecondUserID)}
		if met[key] {
			return fmt.Errorf("%w: users %d and %d meet twice", ErrVerification, key[0], key[1])
		}
		met[key] = true

		first, err := store.GetUser(ctx, p.FirstUserID)
		if err != nil {
			return err
		}
		second, err := store.GetUser(ctx, p.SecondUserID)
		if err != nil {
			return err
		}
		if first.Sex == second.Sex {
			return fmt.Errorf("%w: users %d and %d share sex %s", ErrVerification, first.ID, second.ID, first.Sex)
		}
	}
	return nil
}

// verifyMatches checks that every match row has its mirror.
func verifyMatches(matches []model.Match) error {
	seen := make(map[[2]int64]bool, len(matches))
	for _, m := range matches {
		seen[[2]int64{m.UserID, m.Partner}] = true
	}
	for _, m := range matches {
		if !seen[[2]int64{m.Partner, m.UserID}] {
			return fmt.Errorf("%w: match %d->%d is not mutual", ErrVerification, m.UserID, m.Partner)
		}
	}
	return nil
}

func seated(pairs []model.Pair) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, p := range pairs {
		ids[p.FirstUserID] = struct{}{}
		ids[p.SecondUserID] = struct{}{}
	}
	return ids
}

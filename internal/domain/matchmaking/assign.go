package matchmaking

import "sort"

// Assignment is a target with its unique additive match.
type Assignment struct {
	Target   int64
	Additive int64
	Score    int
}

// Assign gives each target the highest scoring additive not yet claimed.
// Targets pick in priority order: rating desc, registration time desc, then
// user ID asc. Targets left without an additive are returned as dropped.
// The returned assignments keep the pick order.
func Assign(m *Matrix, targets []Participant) (assigned []Assignment, dropped []int64) {
	ordered := append([]Participant(nil), targets...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.After(b.RegisteredAt)
		}
		return a.UserID < b.UserID
	})

	taken := make(map[int64]bool, len(m.Cols))
	for _, t := range ordered {
		add, ok := m.bestAmong(t.UserID, taken)
		if !ok {
			dropped = append(dropped, t.UserID)
			continue
		}
		taken[add] = true
		s, _ := m.At(t.UserID, add)
		assigned = append(assigned, Assignment{Target: t.UserID, Additive: add, Score: s})
	}
	return assigned, dropped
}

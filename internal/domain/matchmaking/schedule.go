package matchmaking

import (
	"fmt"
	"io"

	"github.com/okian/datemaker/internal/domain/model"
)

// Group is a set of assignments that date each other round-robin.
type Group struct {
	No          int
	Assignments []Assignment
}

// Chunk splits assignments into consecutive groups of at most capacity.
func Chunk(assigned []Assignment, capacity int) ([]Group, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	var groups []Group
	for start := 0; start < len(assigned); start += capacity {
		end := start + capacity
		if end > len(assigned) {
			end = len(assigned)
		}
		groups = append(groups, Group{
			No:          len(groups),
			Assignments: append([]Assignment(nil), assigned[start:end]...),
		})
	}
	return groups, nil
}

// Schedule returns the round-robin pairs of a group: in turn t the i-th
// target meets the match of target (t+i) mod n.
func Schedule(eventID int64, g Group) []model.Pair {
	n := len(g.Assignments)
	pairs := make([]model.Pair, 0, n*n)
	for t := 0; t < n; t++ {
		for i := 0; i < n; i++ {
			pairs = append(pairs, model.Pair{
				EventID:      eventID,
				GroupNo:      g.No,
				TurnNo:       t,
				FirstUserID:  g.Assignments[i].Target,
				SecondUserID: g.Assignments[(t+i)%n].Additive,
			})
		}
	}
	return pairs
}

// WritePairs renders pairs one per line, in the given order.
func WritePairs(w io.Writer, pairs []model.Pair) error {
	for _, p := range pairs {
		if _, err := fmt.Fprintf(w, "group=%d turn=%d first=%d second=%d\n",
			p.GroupNo, p.TurnNo, p.FirstUserID, p.SecondUserID); err != nil {
			return err
		}
	}
	return nil
}

package dating

import (
	"sort"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/internal/workflow"
	"github.com/okian/datemaker/pkg/logger"
)

// group is the payload every state action of one group's machine receives.
type group struct {
	no    int
	event model.Event
	turns [][]model.Pair
	users []int64

	spaces []model.MeetingSpace
	turn   int

	send *workflow.Sender
	log  logger.Logger
}

// slots is the number of dates running side by side in the busiest turn.
func (g *group) slots() int {
	n := 0
	for _, t := range g.turns {
		n = max(n, len(t))
	}
	return n
}

// groupPairs splits an event schedule into groups ordered by number.
func groupPairs(ev model.Event, pairs []model.Pair) []*group {
	byNo := make(map[int]*group)
	turnsByNo := make(map[int]map[int][]model.Pair)
	usersByNo := make(map[int]map[int64]struct{})
	for _, p := range pairs {
		g, ok := byNo[p.GroupNo]
		if !ok {
			g = &group{no: p.GroupNo, event: ev}
			byNo[p.GroupNo] = g
			turnsByNo[p.GroupNo] = make(map[int][]model.Pair)
			usersByNo[p.GroupNo] = make(map[int64]struct{})
		}
		turnsByNo[p.GroupNo][p.TurnNo] = append(turnsByNo[p.GroupNo][p.TurnNo], p)
		usersByNo[p.GroupNo][p.FirstUserID] = struct{}{}
		usersByNo[p.GroupNo][p.SecondUserID] = struct{}{}
	}

	out := make([]*group, 0, len(byNo))
	for no, g := range byNo {
		turnNos := make([]int, 0, len(turnsByNo[no]))
		for t := range turnsByNo[no] {
			turnNos = append(turnNos, t)
		}
		sort.Ints(turnNos)
		for _, t := range turnNos {
			turn := turnsByNo[no][t]
			sort.Slice(turn, func(i, j int) bool { return turn[i].FirstUserID < turn[j].FirstUserID })
			g.turns = append(g.turns, turn)
		}
		g.users = sortedIDs(usersByNo[no])
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].no < out[j].no })
	return out
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package matchmaking

import (
	"sort"

	"github.com/okian/datemaker/internal/domain/model"
)

// Split divides participants by sex. The smaller side is the target pool;
// on a tie males are the target. Participants of any other sex come back
// in rest. Each pool is ordered by user ID.
func Split(ps []Participant) (targets, additives, rest []Participant) {
	var males, females []Participant
	for _, p := range ps {
		switch p.Sex {
		case model.SexMale:
			males = append(males, p)
		case model.SexFemale:
			females = append(females, p)
		default:
			rest = append(rest, p)
		}
	}
	byID(males)
	byID(females)
	byID(rest)

	if len(females) < len(males) {
		return females, males, rest
	}
	return males, females, rest
}

func byID(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].UserID < ps[j].UserID })
}

package matchmaking

// Scoring weights. They are business rules, not tuning knobs.
const (
	ageBase       = 4
	sameCityBonus = 2
	manualBase    = 6
	manualPenalty = 2
)

// Score rates how well target and additive fit:
//
//	(4 - |Δage|) + (2 if same city) + (6 - 2*|Δmanual score|)
//
// The result may be negative.
func Score(target, additive Participant) int {
	s := ageBase - abs(target.Age-additive.Age)
	if target.City != "" && target.City == additive.City {
		s += sameCityBonus
	}
	s += manualBase - manualPenalty*abs(target.ManualScore-additive.ManualScore)
	return s
}

// Matrix holds the score of every (target, additive) pair. Rows and Cols
// keep the pool order, which breaks ties.
type Matrix struct {
	Rows   []int64
	Cols   []int64
	scores map[int64]map[int64]int
}

// NewMatrix scores every target against every additive.
func NewMatrix(targets, additives []Participant) *Matrix {
	m := &Matrix{
		Rows:   make([]int64, 0, len(targets)),
		Cols:   make([]int64, 0, len(additives)),
		scores: make(map[int64]map[int64]int, len(targets)),
	}
	for _, a := range additives {
		m.Cols = append(m.Cols, a.UserID)
	}
	for _, t := range targets {
		m.Rows = append(m.Rows, t.UserID)
		row := make(map[int64]int, len(additives))
		for _, a := range additives {
			row[a.UserID] = Score(t, a)
		}
		m.scores[t.UserID] = row
	}
	return m
}

// At returns the score of a pair and whether both IDs are in the matrix.
func (m *Matrix) At(target, additive int64) (int, bool) {
	row, ok := m.scores[target]
	if !ok {
		return 0, false
	}
	s, ok := row[additive]
	return s, ok
}

// Row returns a target's scores in column order.
func (m *Matrix) Row(target int64) []int {
	row, ok := m.scores[target]
	if !ok {
		return nil
	}
	out := make([]int, len(m.Cols))
	for i, c := range m.Cols {
		out[i] = row[c]
	}
	return out
}

// BestMatch returns the highest scoring additive for target, ignoring claims.
// Ties go to the earlier column.
func (m *Matrix) BestMatch(target int64) (int64, bool) {
	return m.bestAmong(target, nil)
}

func (m *Matrix) bestAmong(target int64, taken map[int64]bool) (int64, bool) {
	row, ok := m.scores[target]
	if !ok {
		return 0, false
	}
	var (
		best  int64
		score int
		found bool
	)
	for _, c := range m.Cols {
		if taken[c] {
			continue
		}
		if s := row[c]; !found || s > score {
			best, score, found = c, s, true
		}
	}
	return best, found
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Package matchmaking turns the confirmed participants of an event into
// groups and per-round pairing schedules.
//
// The smaller sex forms the target pool, the other the additive pool. Every
// target is scored against every additive, greedily given one unique match,
// chunked into groups of bounded size and scheduled round-robin so each
// target meets every match in its group exactly once.
package matchmaking

import (
	"time"

	"github.com/okian/datemaker/internal/domain/model"
)

// Participant is the slice of a profile the engine scores on.
type Participant struct {
	UserID       int64
	Sex          string
	Age          int
	City         string
	ManualScore  int
	Rating       float64
	RegisteredAt time.Time
}

// FromProfile builds a participant from a profile, aging it at the event start.
func FromProfile(u model.User, reg model.Registration, eventStart time.Time) Participant {
	return Participant{
		UserID:       u.ID,
		Sex:          u.Sex,
		Age:          u.AgeAt(eventStart),
		City:         u.City,
		ManualScore:  u.ManualScore,
		Rating:       u.Rating,
		RegisteredAt: reg.RegisteredAt,
	}
}

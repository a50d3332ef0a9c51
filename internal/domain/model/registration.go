package model

import "time"

// Registration is a user's sign-up for an event.
type Registration struct {
	EventID      int64
	UserID       int64
	RegisteredAt time.Time
	ConfirmedAt  *time.Time
	// ConfirmationSent is set once the confirmation prompt went out.
	ConfirmationSent bool
	// Ready is set when the user reported being ready to start.
	Ready bool
}

// IsConfirmed reports whether the user confirmed attendance.
func (r Registration) IsConfirmed() bool { return r.ConfirmedAt != nil }

// Sex values stored on profiles.
const (
	SexMale   = "M"
	SexFemale = "F"
)

// User is the profile data the orchestrator reads.
type User struct {
	ID          int64
	Username    string
	Name        string
	Bio         string
	BirthDate   time.Time
	Sex         string
	City        string
	Rating      float64
	ManualScore int
}

// AgeAt returns whole years between BirthDate and t.
func (u User) AgeAt(t time.Time) int {
	if u.BirthDate.IsZero() {
		return 0
	}
	years := t.Year() - u.BirthDate.Year()
	if t.Month() < u.BirthDate.Month() || (t.Month() == u.BirthDate.Month() && t.Day() < u.BirthDate.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Like is a positive rating one participant gave another after a round.
type Like struct {
	EventID      int64
	SourceUserID int64
	TargetUserID int64
}

// Match is a mutual like between two participants of an event.
type Match struct {
	EventID int64
	UserID  int64
	Partner int64
}

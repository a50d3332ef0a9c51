package model

// Pair is one scheduled date: in round TurnNo of group GroupNo the two users meet.
type Pair struct {
	EventID      int64
	GroupNo      int
	TurnNo       int
	FirstUserID  int64
	SecondUserID int64
}

// MeetingSpace is a video meeting room created for a group.
type MeetingSpace struct {
	Name        string
	MeetingURI  string
	MeetingCode string
}

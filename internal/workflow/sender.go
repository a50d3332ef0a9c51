// Package workflow holds what the per-event workers share.
package workflow

import (
	"context"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/logger"
)

// Publisher is the slice of the messaging collaborator workers need.
type Publisher interface {
	Publish(ctx context.Context, cmd model.Command) error
}

// Sender publishes commands for one event and logs the ones that fail.
type Sender struct {
	pub     Publisher
	eventID int64
	log     logger.Logger
}

// NewSender binds a publisher to an event.
func NewSender(pub Publisher, eventID int64, log logger.Logger) *Sender {
	return &Sender{pub: pub, eventID: eventID, log: log}
}

// Send publishes name to userID and reports whether it went out.
func (s *Sender) Send(ctx context.Context, name model.CommandName, userID int64, payload map[string]any) bool {
	if err := s.pub.Publish(ctx, model.NewCommand(name, s.eventID, userID, payload)); err != nil {
		s.log.Error(ctx, "publish failed",
			logger.String("command", string(name)),
			logger.EventID(s.eventID),
			logger.UserID(userID),
			logger.Error(err))
		return false
	}
	return true
}

// Broadcast sends the same command to every user and returns those it reached.
func (s *Sender) Broadcast(ctx context.Context, name model.CommandName, userIDs []int64, payload map[string]any) []int64 {
	sent := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if s.Send(ctx, name, id, payload) {
			sent = append(sent, id)
		}
	}
	return sent
}

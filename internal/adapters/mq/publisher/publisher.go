// Package publisher delivers bot commands to the messaging layer.
package publisher

import (
	"context"
	"errors"

	"github.com/okian/datemaker/internal/domain/model"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/okian/datemaker/pkg/metrics"
)

// Publisher sends one command to the bot.
type Publisher interface {
	Publish(ctx context.Context, cmd model.Command) error
	Close() error
	// Name identifies the driver in logs and stats.
	Name() string
}

// Sentinel errors.
var (
	ErrUnknownDriver = errors.New("unknown messaging driver")
	ErrNoBrokers     = errors.New("no kafka brokers configured")
)

// Instrumented wraps a Publisher with metrics and debug logging.
type Instrumented struct {
	next Publisher
	log  logger.Logger
}

// Instrument wraps p.
func Instrument(p Publisher, log logger.Logger) *Instrumented {
	if log == nil {
		log = logger.Get().Named("publisher")
	}
	return &Instrumented{next: p, log: log}
}

func (i *Instrumented) Publish(ctx context.Context, cmd model.Command) error {
	if err := i.next.Publish(ctx, cmd); err != nil {
		metrics.RecordCommandError(string(cmd.Name))
		return err
	}
	metrics.RecordCommandPublished(string(cmd.Name))
	i.log.Debug(ctx, "command published",
		logger.String("command", string(cmd.Name)),
		logger.EventID(cmd.EventID),
		logger.UserID(cmd.UserID),
		logger.String("message_id", cmd.ID.String()))
	return nil
}

func (i *Instrumented) Close() error { return i.next.Close() }

func (i *Instrumented) Name() string { return i.next.Name() }

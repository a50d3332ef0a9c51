// Package simulation plays one complete speed-dating event in process: a
// bot answers every command the orchestrator sends, and a scaled clock
// compresses the hours between phases into seconds.
package simulation

import (
	"time"

	"github.com/okian/datemaker/pkg/logger"
)

// Default configuration values.
const (
	defaultParticipants  = 20
	defaultGroupCapacity = 10
	defaultConfirmRate   = 0.9
	defaultLikeRate      = 0.5
	defaultSpeed         = 600
	defaultConsumers     = 4
	defaultTimeout       = 5 * time.Minute
)

// Config holds configuration for a simulated event.
type Config struct {
	Participants  int           // Number of registered users
	GroupCapacity int           // Per-event group size limit
	ConfirmRate   float64       // Probability a user confirms attendance
	LikeRate      float64       // Probability a user likes a partner
	Speed         float64       // Clock speed-up over wall time
	Consumers     int           // Concurrent bot consumers
	Timeout       time.Duration // Upper bound on the whole run
	OutputFile    string        // Optional JSON report path
	Logger        logger.Logger
}

func (c Config) withDefaults() Config {
	if c.Participants <= 0 {
		c.Participants = defaultParticipants
	}
	if c.GroupCapacity <= 0 {
		c.GroupCapacity = defaultGroupCapacity
	}
	if c.ConfirmRate < 0 || c.ConfirmRate > 1 {
		c.ConfirmRate = defaultConfirmRate
	}
	if c.LikeRate < 0 || c.LikeRate > 1 {
		c.LikeRate = defaultLikeRate
	}
	if c.Speed <= 0 {
		c.Speed = defaultSpeed
	}
	if c.Consumers <= 0 {
		c.Consumers = defaultConsumers
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Logger == nil {
		c.Logger = logger.Named("simulation")
	}
	return c
}

// DefaultConfig returns the settings used by the simulate command.
func DefaultConfig() Config {
	return Config{
		Participants:  defaultParticipants,
		GroupCapacity: defaultGroupCapacity,
		ConfirmRate:   defaultConfirmRate,
		LikeRate:      defaultLikeRate,
		Speed:         defaultSpeed,
		Consumers:     defaultConsumers,
		Timeout:       defaultTimeout,
	}
}

// Report summarizes a finished simulation.
type Report struct {
	EventID      int64          `json:"event_id"`
	FinalState   string         `json:"final_state"`
	Participants int            `json:"participants"`
	Confirmed    int            `json:"confirmed"`
	Seated       int            `json:"seated"`
	Groups       int            `json:"groups"`
	Pairs        int            `json:"pairs"`
	Likes        int            `json:"likes"`
	Matches      int            `json:"matches"`
	Commands     map[string]int `json:"commands"`
	Duration     string         `json:"duration"`
}

// Package types contains common types used across the application
package types

import "time"

// WorkerKind names the two kinds of per-event workers.
type WorkerKind string

const (
	KindConfirmation WorkerKind = "confirmation"
	KindDating       WorkerKind = "dating"
)

// WorkerInfo describes a live worker
type WorkerInfo struct {
	RunID     string     `json:"run_id"`
	Kind      WorkerKind `json:"kind"`
	EventID   int64      `json:"event_id"`
	StartedAt time.Time  `json:"started_at"`
}

// SchedulerStats is a snapshot of scheduler counters
type SchedulerStats struct {
	Ticks          int64 `json:"ticks"`
	WorkersStarted int64 `json:"workers_started"`
	WorkersFailed  int64 `json:"workers_failed"`
	WorkersActive  int   `json:"workers_active"`
	SkippedDueLive int64 `json:"skipped_due_live"`
}

// ServiceStats is the payload of GET /stats
type ServiceStats struct {
	Scheduler     SchedulerStats `json:"scheduler"`
	QueueDepth    int            `json:"queue_depth"`
	Publisher     string         `json:"publisher"`
	Provider      string         `json:"provider"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

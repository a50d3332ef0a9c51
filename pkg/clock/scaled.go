package clock

import (
	"context"
	"sync"
	"time"
)

// Scaled runs wall time faster by a constant factor. Sleep blocks for the
// compressed duration, so concurrent goroutines still interleave as they
// would in production.
//
// Thread-safety: all methods are safe for concurrent use.
type Scaled struct {
	mu     sync.Mutex
	base   time.Time
	anchor time.Time
	factor float64
}

// NewScaled starts a clock at start that advances factor times faster than
// the wall clock. Factors below 1 are treated as 1.
func NewScaled(start time.Time, factor float64) *Scaled {
	return &Scaled{base: start, anchor: time.Now(), factor: max(factor, 1)}
}

// Now returns the scaled time.
func (s *Scaled) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base.Add(time.Duration(float64(time.Since(s.anchor)) * s.factor))
}

// Sleep waits d divided by the factor.
func (s *Scaled) Sleep(ctx context.Context, d time.Duration) error {
	return Real{}.Sleep(ctx, time.Duration(float64(d)/s.factor))
}

// Jump moves the clock to t and keeps running from there.
func (s *Scaled) Jump(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = t
	s.anchor = time.Now()
}

// Factor returns the speed-up.
func (s *Scaled) Factor() float64 { return s.factor }

package fsm

import "github.com/okian/datemaker/pkg/logger"

// Option configures a Definition.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger used for transition traces.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

package repository

import (
	"github.com/okian/datemaker/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	maxConns    int32
	applySchema bool
	log         logger.Logger
}

// WithMaxConns caps the pgx pool size.
func WithMaxConns(n int32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithSchema applies the embedded schema on connect.
func WithSchema(apply bool) Option {
	return func(o *options) {
		o.applySchema = apply
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

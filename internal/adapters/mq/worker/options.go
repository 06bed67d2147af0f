package worker

import (
	"time"

	"github.com/okian/skillgrade/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithName sets the pool name used in logs.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithHandlerTimeout bounds a single handler invocation.
func WithHandlerTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.handlerTimeout = d
		}
	}
}

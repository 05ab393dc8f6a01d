package store

import "go.uber.org/zap"

type Option func(*options)

type options struct {
	now Clock
	log *zap.Logger
}

func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.now = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: systemClock, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

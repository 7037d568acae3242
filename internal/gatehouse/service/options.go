package service

import "time"

// Option tunes a service at construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the service's source of the current
// instant. A nil func is ignored.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

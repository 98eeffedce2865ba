package heapstore

import "log/slog"

// Option configures a Store.
type Option func(*options)

type options struct {
	limit  int
	logger *slog.Logger
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLimit caps the number of bytes in use across the sharing set. Zero or a
// negative value means unlimited.
func WithLimit(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.limit = bytes
		}
	}
}

// WithLogger sets the logger receiving allocation failures at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

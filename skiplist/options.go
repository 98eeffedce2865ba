package skiplist

import "log/slog"

// Option configures a SkipList.
type Option func(*options)

type options struct {
	logger *slog.Logger
	seed   uint64
	seeded bool
}

func defaultOptions() *options {
	return &options{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger receiving structural events at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSeed fixes the seed of the level generator. By default it is seeded
// from the address of the first node.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

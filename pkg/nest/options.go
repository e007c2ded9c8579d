package nest

import (
	"time"

	"go.uber.org/zap"
)

// Config holds the runtime settings of an Application
type Config struct {
	// RequestTimeout bounds argument resolution and handler execution.
	// Zero disables the deadline.
	RequestTimeout time.Duration
}

type settings struct {
	logger *zap.Logger
	store  *MetadataStore
	config Config
}

// Option configures an Application
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetadata reads declarations from store instead of DefaultMetadata
func WithMetadata(store *MetadataStore) Option {
	return func(s *settings) {
		if store != nil {
			s.store = store
		}
	}
}

// WithConfig replaces the runtime settings
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithRequestTimeout sets the per-request deadline
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.config.RequestTimeout = d
	}
}

package service

import (
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/adapters/repository"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/scoring"
	"github.com/notactuallytreyanastasio/phstats-sub000/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSource sets where performance rows are loaded from.
func WithSource(src repository.Source) Option {
	return func(e *Engine) {
		if src != nil {
			e.source = src
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCacheSize bounds the number of memoized results. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.cacheSize = n
		}
	}
}

// WithWeights overrides the JIS signal weights.
func WithWeights(w scoring.Weights) Option {
	return func(e *Engine) {
		e.weights = &w
	}
}

// WithParallelThreshold sets the record count at which scoring fans out.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelThreshold = n
		}
	}
}

// WithScale sets the WAR scale in JIS points.
func WithScale(scale float64) Option {
	return func(e *Engine) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// WithScorer replaces the JIS scorer. Weight and threshold options are then ignored.
func WithScorer(s scoring.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

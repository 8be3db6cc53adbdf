package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ErrDeadline is returned when the next token would arrive after ctx's deadline
var ErrDeadline = errors.New("rate limit wait would exceed deadline")

// MultiLimiter manages multiple rate limiters for different collaborators
type MultiLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewMultiLimiter creates a new multi-limiter
func NewMultiLimiter() *MultiLimiter {
	return &MultiLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// AddLimiter adds a new rate limiter for a collaborator
// requestsPerSecond: the rate limit (e.g., 10 means 10 requests per second)
// burst: maximum burst size
func (m *MultiLimiter) AddLimiter(name string, requestsPerSecond float64, burst int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[name] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Wait blocks until the limiter allows an event. A wait cut short by ctx's
// deadline, or refused because it would outlast it, matches ErrDeadline.
func (m *MultiLimiter) Wait(ctx context.Context, name string) error {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("limiter %s not found", name)
	}

	err := limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return fmt.Errorf("%s: %w: %v", name, ErrDeadline, err)
	}
	return err
}

// Allow reports whether an event may happen now
func (m *MultiLimiter) Allow(name string) bool {
	m.mu.RLock()
	limiter, ok := m.limiters[name]
	m.mu.RUnlock()

	if !ok {
		return false
	}

	return limiter.Allow()
}

// Default rate limiter names
const (
	LimiterTranslator = "translator"
	LimiterFeed       = "feed"
	LimiterSheets     = "sheets"
)

// NewDefaultLimiter creates a limiter with default rate limits.
// translatorPerMinute <= 0 falls back to 30 requests per minute.
func NewDefaultLimiter(translatorPerMinute int) *MultiLimiter {
	m := NewMultiLimiter()

	if translatorPerMinute <= 0 {
		translatorPerMinute = 30
	}
	// Translator: shared by every pipeline run in the process
	m.AddLimiter(LimiterTranslator, float64(translatorPerMinute)/60, 5)

	// Feeds: be polite - 1 per second, burst 5
	m.AddLimiter(LimiterFeed, 1, 5)

	// Sheets API: 60 writes per minute per user
	m.AddLimiter(LimiterSheets, 1, 10)

	return m
}

// Package gate decides whether an archetype is available given the current
// hour of day and weather. It follows the mutex-guarded settings idiom used
// by RenderSettings (internal/config/config.go) for the mutable
// hour/weather state, scoped to one Evaluator instance instead of a global:
// IsAvailable is read from every fetchpipeline worker goroutine while
// SetTimeWeather is written from the driver (or any other goroutine the host
// chooses), so both sides take the same RWMutex RenderSettings does.
package gate

import (
	"strings"
	"sync"
)

// Record restricts an archetype's availability by hour and weather.
// HoursMask bit h set means the archetype is available at hour h; a zero
// mask means "no hour restriction". An empty Weathers set means any weather.
type Record struct {
	HoursMask uint32
	Weathers  map[uint32]struct{}
}

// Table maps an archetype hash to its gating record.
type Table map[uint32]Record

// JenkinsHash implements the Jenkins one-at-a-time hash over the lowercased
// input, returned as an unsigned 32-bit value.
func JenkinsHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		h += uint32(c)
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}

// Evaluator tracks the current hour/weather and answers availability
// queries against an immutable gate Table. table is set once at
// construction and never mutated; hour/weatherHash are guarded by mu since
// IsAvailable is called concurrently from fetchpipeline worker goroutines
// while SetTimeWeather may be called from any goroutine.
type Evaluator struct {
	mu sync.RWMutex

	table       Table
	hour        int
	weatherHash uint32
}

// NewEvaluator wraps an immutable gate table (nil or empty is valid and
// means "fail open for everything").
func NewEvaluator(table Table) *Evaluator {
	return &Evaluator{table: table}
}

// IsAvailable reports whether an archetype may be admitted right now.
// It fails open (returns true) when there is no gate table, no record for
// the hash, or the hash is zero (ungated).
func (e *Evaluator) IsAvailable(archetypeHash uint32) bool {
	if len(e.table) == 0 || archetypeHash == 0 {
		return true
	}
	rec, ok := e.table[archetypeHash]
	if !ok {
		return true
	}

	e.mu.RLock()
	hour, weatherHash := e.hour, e.weatherHash
	e.mu.RUnlock()

	if rec.HoursMask != 0 {
		bit := uint32(1) << uint(hour%24)
		if rec.HoursMask&bit == 0 {
			return false
		}
	}
	if weatherHash != 0 && len(rec.Weathers) > 0 {
		if _, ok := rec.Weathers[weatherHash]; !ok {
			return false
		}
	}
	return true
}

// SetTimeWeather clamps hour into [0,23] and hashes weather (if provided),
// updating internal state. It returns true if either value actually
// changed, so callers can skip redundant re-evaluation work.
func (e *Evaluator) SetTimeWeather(hour *int, weather *string) bool {
	// JenkinsHash runs before the lock is taken: it touches no Evaluator
	// state, so there is no reason to hold the write lock across it.
	var weatherHash uint32
	hashWeather := false
	if weather != nil {
		hashWeather = true
		if *weather != "" {
			weatherHash = JenkinsHash(strings.ToLower(*weather))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	if hour != nil {
		h := *hour
		if h < 0 {
			h = 0
		}
		if h > 23 {
			h = 23
		}
		if h != e.hour {
			e.hour = h
			changed = true
		}
	}
	if hashWeather && weatherHash != e.weatherHash {
		e.weatherHash = weatherHash
		changed = true
	}
	return changed
}

// Hour returns the current gate hour (0..23).
func (e *Evaluator) Hour() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hour
}

// WeatherHash returns the current gate weather hash (0 means unspecified).
func (e *Evaluator) WeatherHash() uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weatherHash
}

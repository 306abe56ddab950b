// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cache memoizes text normalization across records. Company names
// and jurisdiction codes repeat heavily within a dataset.
package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"affiliate-scan/internal/normalize"
)

const (
	// DefaultTTL bounds how long an unused form is retained
	DefaultTTL = 10 * time.Minute
	// DefaultCleanup is the expiry sweep interval
	DefaultCleanup = 5 * time.Minute
	// maxKeyLength skips memoizing long free-text descriptions
	maxKeyLength = 256
)

// Memo is a concurrency-safe normalization cache
type Memo struct {
	cache  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemo creates a memo with the given retention
func NewMemo(ttl, cleanup time.Duration) *Memo {
	return &Memo{cache: gocache.New(ttl, cleanup)}
}

// Normalize returns the cached form of raw, computing it on a miss
func (m *Memo) Normalize(raw string) normalize.Form {
	if len(raw) > maxKeyLength {
		m.misses.Add(1)
		return normalize.Normalize(raw)
	}
	if v, found := m.cache.Get(raw); found {
		m.hits.Add(1)
		return v.(normalize.Form)
	}
	m.misses.Add(1)
	f := normalize.Normalize(raw)
	m.cache.SetDefault(raw, f)
	return f
}

// Func adapts the memo to the normalizer option of the pipeline stages
func (m *Memo) Func() normalize.Func {
	return m.Normalize
}

// Stats reports hits, misses and live entries
func (m *Memo) Stats() (hits, misses int64, entries int) {
	return m.hits.Load(), m.misses.Load(), m.cache.ItemCount()
}

// Clear drops every entry
func (m *Memo) Clear() {
	m.cache.Flush()
}

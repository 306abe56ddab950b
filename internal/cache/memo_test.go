// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"affiliate-scan/internal/normalize"
)

func TestMemoNormalize(t *testing.T) {
	m := NewMemo(DefaultTTL, DefaultCleanup)

	first := m.Normalize("H u a w e i")
	second := m.Normalize("H u a w e i")
	assert.Equal(t, normalize.Normalize("H u a w e i"), first)
	assert.Equal(t, first, second)

	hits, misses, entries := m.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, entries)

	m.Clear()
	_, _, entries = m.Stats()
	assert.Equal(t, 0, entries)
}

func TestMemoSkipsLongText(t *testing.T) {
	m := NewMemo(DefaultTTL, DefaultCleanup)
	long := strings.Repeat("semiconductor wafers ", 20)
	assert.Equal(t, normalize.Normalize(long), m.Normalize(long))
	_, _, entries := m.Stats()
	assert.Equal(t, 0, entries)
}

func TestMemoFuncMatchesDirect(t *testing.T) {
	fn := NewMemo(DefaultTTL, DefaultCleanup).Func()
	term := fn("ZTE")
	assert.NotEqual(t, "", term.Boundary)
	assert.Equal(t, normalize.Normalize("Aztec").Match(term), fn("Aztec").Match(term))
}

func TestMemoConcurrent(t *testing.T) {
	m := NewMemo(DefaultTTL, DefaultCleanup)
	names := []string{"Huawei", "ZTE", "Acme Corp", "China Mobile", "Hong Kong"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := names[j%len(names)]
				assert.Equal(t, normalize.Normalize(name).Boundary, m.Normalize(name).Boundary)
			}
		}()
	}
	wg.Wait()

	hits, misses, _ := m.Stats()
	assert.Equal(t, int64(800), hits+misses)
}

package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testBase = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestDeterministicClock_Advances(t *testing.T) {
	clock := NewDeterministicClock(testBase, time.Second)

	assert.Equal(t, testBase, clock.Current())
	assert.Equal(t, testBase.Add(1*time.Second), clock.Now())
	assert.Equal(t, testBase.Add(2*time.Second), clock.Now())
	assert.Equal(t, testBase.Add(2*time.Second), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(testBase, time.Second)

	clock.Now()
	clock.Now()
	clock.Reset()

	assert.Equal(t, testBase, clock.Current())
	assert.Equal(t, testBase.Add(time.Second), clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(testBase, time.Millisecond)
	const numGoroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}

	wg.Wait()

	// Every handed-out time must be unique: no two goroutines saw the
	// same tick.
	seen := make(map[time.Time]bool)
	for i := range results {
		for _, ts := range results[i] {
			if seen[ts] {
				t.Fatalf("time %v handed out twice", ts)
			}
			seen[ts] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}

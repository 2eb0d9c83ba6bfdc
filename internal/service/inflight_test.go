package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInflightSecondAcquireFails(t *testing.T) {
	locks := newInflightLocks(30 * time.Second)
	key := saveKey(1, 7)

	assert.True(t, locks.TryAcquire(key))
	assert.False(t, locks.TryAcquire(key))

	// A different key is unaffected.
	assert.True(t, locks.TryAcquire(saveKey(1, 8)))
}

func TestInflightReleaseFreesKey(t *testing.T) {
	locks := newInflightLocks(30 * time.Second)
	key := saveKey(2, 3)

	assert.True(t, locks.TryAcquire(key))
	locks.Release(key)
	assert.True(t, locks.TryAcquire(key))
}

func TestInflightTTLExpiry(t *testing.T) {
	locks := newInflightLocks(30 * time.Second)
	current := time.Now()
	locks.now = func() time.Time { return current }

	key := saveKey(4, 5)
	assert.True(t, locks.TryAcquire(key))

	current = current.Add(29 * time.Second)
	assert.False(t, locks.TryAcquire(key), "still inside the TTL")

	current = current.Add(2 * time.Second)
	assert.True(t, locks.TryAcquire(key), "expired hold must be reclaimable")
}

func TestInflightConcurrentSingleWinner(t *testing.T) {
	locks := newInflightLocks(30 * time.Second)
	key := saveKey(9, 9)

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if locks.TryAcquire(key) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSaveKey(t *testing.T) {
	assert.Equal(t, "12:34", saveKey(12, 34))
	assert.NotEqual(t, saveKey(1, 23), saveKey(12, 3))
}

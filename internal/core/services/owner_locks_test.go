package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnerLocks_SerializesSameOwner(t *testing.T) {
	locks := NewOwnerLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("user-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestOwnerLocks_OwnersDoNotContend(t *testing.T) {
	locks := NewOwnerLocks()

	unlockA := locks.Lock("user-a")
	defer unlockA()

	// Holding user-a's lock must not block user-b.
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("user-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock for a different owner blocked")
	}
}

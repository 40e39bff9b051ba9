package usync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrierZeroCount(t *testing.T) {
	b, err := NewBarrier(nil, 0)
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBarrierSingleThread(t *testing.T) {
	defer Release()
	b, err := NewBarrier(nil, 1)
	require.NoError(t, err)

	// A one-thread barrier completes a cycle per call, always serial.
	assert.True(t, b.Wait())
	assert.True(t, b.Wait())
	require.NoError(t, b.Destroy())
}

// runCycle sends count waiters through the barrier and returns how many
// of them got the serial result.
func runCycle(t *testing.T, b *Barrier, count int) int {
	t.Helper()
	results := make(chan bool, count)
	for i := 0; i < count; i++ {
		go func() {
			defer Release()
			results <- b.Wait()
		}()
	}

	serials := 0
	for i := 0; i < count; i++ {
		select {
		case serial := <-results:
			if serial {
				serials++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("barrier cycle did not complete")
		}
	}
	return serials
}

func TestBarrierRendezvous(t *testing.T) {
	b, err := NewBarrier(nil, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, runCycle(t, b, 3), "exactly one serial thread per cycle")

	// The barrier is reusable without re-initialization.
	assert.Equal(t, 1, runCycle(t, b, 3))
	require.NoError(t, b.Destroy())
}

func TestBarrierHoldsUntilFull(t *testing.T) {
	b, err := NewBarrier(nil, 3)
	require.NoError(t, err)

	returned := make(chan bool, 3)
	for i := 0; i < 2; i++ {
		go func() {
			defer Release()
			returned <- b.Wait()
		}()
	}
	settle()

	select {
	case <-returned:
		t.Fatal("a waiter returned before the barrier filled")
	default:
	}

	go func() {
		defer Release()
		returned <- b.Wait()
	}()

	serials := 0
	for i := 0; i < 3; i++ {
		if <-returned {
			serials++
		}
	}
	assert.Equal(t, 1, serials)
}

func TestBarrierDestroyBusy(t *testing.T) {
	b, err := NewBarrier(nil, 2)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer Release()
		b.Wait()
		close(done)
	}()
	settle()

	assert.ErrorIs(t, b.Destroy(), ErrBusy)

	go func() {
		defer Release()
		b.Wait()
	}()
	<-done
	require.NoError(t, b.Destroy())
}

func TestBarrierAttrAccepted(t *testing.T) {
	attr := NewBarrierAttr()
	require.NoError(t, attr.SetPshared(ProcessShared))
	b, err := NewBarrier(attr, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, runCycle(t, b, 2))
}

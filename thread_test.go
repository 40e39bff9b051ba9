package usync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// deadlineIn builds an absolute deadline d from now.
func deadlineIn(d time.Duration) unix.Timespec {
	return unix.NsecToTimespec(time.Now().Add(d).UnixNano())
}

// settle gives background goroutines time to reach their suspension
// point.  Replaces raw sleeps with a name that states the intent.
func settle() {
	time.Sleep(50 * time.Millisecond)
}

func TestCurrentIsStablePerGoroutine(t *testing.T) {
	defer Release()
	self := Current()
	assert.Same(t, self, Current())

	otherDone := make(chan *Thread)
	go func() {
		defer Release()
		otherDone <- Current()
	}()
	other := <-otherDone
	assert.NotSame(t, self, other)
}

func TestSuspendConsumesOneRestart(t *testing.T) {
	defer Release()
	self := Current()

	self.Restart()
	done := make(chan struct{})
	go func() {
		self.Suspend()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("suspend did not consume the pending restart")
	}
}

func TestTimedSuspendWoken(t *testing.T) {
	defer Release()
	self := Current()

	self.Restart()
	assert.True(t, self.TimedSuspend(deadlineIn(time.Second)))
}

func TestTimedSuspendExpires(t *testing.T) {
	defer Release()
	self := Current()

	start := time.Now()
	woken := self.TimedSuspend(deadlineIn(30 * time.Millisecond))
	assert.False(t, woken)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestExtricateRemovesAndRestarts(t *testing.T) {
	defer Release()
	self := Current()

	var q waitQueue
	q.enqueue(self)
	self.SetExtricate(&q, func(obj interface{}, th *Thread) bool {
		return obj.(*waitQueue).remove(th)
	})

	require.True(t, self.Extricate())
	assert.True(t, q.empty())

	// The extrication restarted us; the token must be waiting.
	assert.True(t, self.TimedSuspend(deadlineIn(time.Second)))

	// A second extrication finds nothing to remove and owes no restart.
	assert.False(t, self.Extricate())

	self.ClearExtricate()
	assert.False(t, self.Extricate())
}

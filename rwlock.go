// Copyright 2020 Nathan Taylor (nbtaylor@gmail.com)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package usync implements suspension-based synchronization primitives
// for cooperating goroutines: an N-way barrier and a read-write lock
// with selectable reader/writer preference.
//
// Unlike sync.RWMutex, the lock here has a policy engine.  At creation
// time it is given one of three preference kinds, which decide two
// questions: whether a new reader may enter while writers are queued,
// and which class of waiter a releasing writer hands the lock to.
//
//     +---------------------------+-----------------------+---------------------------+
//     | Kind                      | Reader admission      | Writer-release successor  |
//     +---------------------------+-----------------------+---------------------------+
//     | PreferReader (Default)    | whenever no writer    | waiting readers, if any   |
//     | PreferWriter              | only if no writer is  | next queued writer        |
//     |                           | queued, OR the reader |                           |
//     |                           | already holds the lock|                           |
//     | PreferWriterNonrecursive  | only if no writer is  | next queued writer        |
//     |                           | queued                |                           |
//     +---------------------------+-----------------------+---------------------------+
//
// The PreferWriter concession for current holders is what keeps
// recursive read acquisition deadlock-free: a reader that reacquires a
// lock it already holds must not park behind a writer that cannot run
// until that same reader lets go.  Each thread tracks its held read
// locks in a per-thread list to answer the "do I hold this already"
// question; if a tracking node cannot be obtained the thread falls back
// to a conservative per-thread counter and simply assumes it does.
//
// Threads that cannot be admitted park on the lock's wait queues via
// the descriptor's suspend/restart semaphore.  The timed variants
// additionally install an extrication record so that a timer expiry (or
// external cancellation) can pull the thread back off the queue without
// losing a wake-up that is already in flight.
package usync

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// RWLock is a read-write lock with a preference policy.  The zero value
// is an idle lock of the Default kind, the same as NewRWLock(nil).
type RWLock struct {
	mu           sync.Mutex
	readers      int
	writer       *Thread
	readWaiting  waitQueue
	writeWaiting waitQueue
	kind         Kind
	pshared      Pshared
}

// readlockInfo records one thread's read holds on one lock.  Nodes are
// owned by the acquiring thread and chained into its held list; spent
// nodes park on the thread's free list for reuse.
type readlockInfo struct {
	lock  *RWLock
	count int
	next  *readlockInfo
}

// allocReadlockInfo is the tracking-node allocator.  Tests stub it out
// to exercise the untracked-count fallback that covers the case where
// no node can be obtained.
var allocReadlockInfo = func() *readlockInfo {
	return new(readlockInfo)
}

// NewRWLock creates an idle lock.  A nil attr means the Default kind
// and process-private sharing.
func NewRWLock(attr *RWLockAttr) *RWLock {
	if attr == nil {
		return &RWLock{kind: Default, pshared: ProcessPrivate}
	}
	return &RWLock{kind: attr.kind, pshared: attr.pshared}
}

// Destroy checks that the lock has no readers and no writer.  It
// returns ErrBusy if it is still held.  Waiting threads do not count as
// holders; destroying a lock with waiters is a caller bug.
func (l *RWLock) Destroy() error {
	l.mu.Lock()
	readers, writer := l.readers, l.writer
	l.mu.Unlock()
	if readers > 0 || writer != nil {
		return ErrBusy
	}
	return nil
}

// canRead decides whether a read request is admitted now.  Caller holds
// l.mu.
func (l *RWLock) canRead(haveAlready bool) bool {
	if l.writer != nil {
		return false
	}
	if l.kind == PreferReader {
		return true
	}
	if l.writeWaiting.empty() {
		return true
	}
	// Writers are queued, but this thread already holds a read lock;
	// refusing it would deadlock against those very writers.
	return haveAlready
}

// findReadlock scans the thread's held list for a node tracking l.
func (t *Thread) findReadlock(l *RWLock) *readlockInfo {
	for info := t.heldReadlocks; info != nil; info = info.next {
		if info.lock == l {
			return info
		}
	}
	return nil
}

// trackReadlock obtains a node for l, preferring the thread's free
// list, and pushes it onto the held list with a zero count.  Returns
// nil when no node could be obtained.
func (t *Thread) trackReadlock(l *RWLock) *readlockInfo {
	info := t.freeReadlocks
	if info != nil {
		t.freeReadlocks = info.next
	} else if info = allocReadlockInfo(); info == nil {
		return nil
	}
	info.lock = l
	info.count = 0
	info.next = t.heldReadlocks
	t.heldReadlocks = info
	return info
}

// untrackReadlock undoes one read hold of l in the thread's
// bookkeeping.  A node that reaches zero moves to the free list; with
// no node, one untracked hold is consumed instead.
func (t *Thread) untrackReadlock(l *RWLock) {
	for pinfo := &t.heldReadlocks; *pinfo != nil; pinfo = &(*pinfo).next {
		info := *pinfo
		if info.lock != l {
			continue
		}
		info.count--
		if info.count <= 0 {
			*pinfo = info.next
			info.lock = nil
			info.next = t.freeReadlocks
			t.freeReadlocks = info
		}
		return
	}
	if t.untrackedReadlockCount > 0 {
		t.untrackedReadlockCount--
	}
}

// readAcquireState answers whether self already holds l for reading and
// sets up tracking for the acquisition about to happen.  Tracking only
// runs under PreferWriter; the nonrecursive kind deliberately skips it.
//
// The returned node, if any, has not been counted yet; the caller
// commits it after the acquisition succeeds.  outOfMem reports that the
// hold has no node (none could be obtained, or the thread already has
// untracked holds and no node for l), in which case the untracked
// counter absorbs the hold instead.
func (l *RWLock) readAcquireState(self *Thread) (existing *readlockInfo, outOfMem, haveAlready bool) {
	if l.kind != PreferWriter {
		return nil, false, false
	}
	existing = self.findReadlock(l)
	if existing != nil || self.untrackedReadlockCount > 0 {
		return existing, existing == nil, true
	}
	existing = self.trackReadlock(l)
	if existing == nil {
		return nil, true, false
	}
	return existing, false, false
}

// commitReadTracking records one successful read acquisition in the
// bookkeeping prepared by readAcquireState.
func commitReadTracking(self *Thread, existing *readlockInfo, outOfMem bool) {
	if existing != nil {
		existing.count++
	} else if outOfMem {
		self.untrackedReadlockCount++
	}
}

// RdLock acquires the lock for reading, blocking while the policy holds
// the caller back.  Under PreferWriter, a thread already holding the
// lock for reading is admitted even past queued writers; under
// PreferWriterNonrecursive it waits like any other reader.  Not a
// cancellation point.
func (l *RWLock) RdLock() error {
	self := Current()
	existing, outOfMem, haveAlready := l.readAcquireState(self)

	for {
		l.mu.Lock()
		if l.canRead(haveAlready) {
			break
		}
		l.readWaiting.enqueue(self)
		l.mu.Unlock()
		logger.Trace().Int64("thread", self.id).Msg("rdlock wait")
		self.Suspend()
	}
	l.readers++
	l.mu.Unlock()

	commitReadTracking(self, existing, outOfMem)
	return nil
}

// TryRdLock acquires the lock for reading only if it can do so without
// blocking.  Unlike RdLock, it refuses to jump a non-empty writer queue
// even when the caller already holds the lock for reading.
func (l *RWLock) TryRdLock() error {
	self := Current()
	existing, outOfMem, _ := l.readAcquireState(self)

	l.mu.Lock()
	admitted := l.canRead(false)
	if admitted {
		l.readers++
	}
	l.mu.Unlock()

	if !admitted {
		return ErrBusy
	}
	commitReadTracking(self, existing, outOfMem)
	return nil
}

// TimedRdLock is RdLock with an absolute deadline.  It returns
// ErrTimedOut once the deadline passes without the lock being acquired,
// and ErrInvalid if the deadline's nanosecond field is out of range.
func (l *RWLock) TimedRdLock(abstime unix.Timespec) error {
	if abstime.Nsec < 0 || int64(abstime.Nsec) >= int64(time.Second) {
		return ErrInvalid
	}
	self := Current()
	existing, outOfMem, haveAlready := l.readAcquireState(self)

	self.SetExtricate(l, rwlockRdExtricate)
	for {
		l.mu.Lock()
		if l.canRead(haveAlready) {
			break
		}
		l.readWaiting.enqueue(self)
		l.mu.Unlock()

		if !self.TimedSuspend(abstime) {
			l.mu.Lock()
			wasOnQueue := l.readWaiting.remove(self)
			l.mu.Unlock()
			if wasOnQueue {
				self.ClearExtricate()
				logger.Trace().Int64("thread", self.id).Msg("timedrdlock timeout")
				return ErrTimedOut
			}
			// Someone dequeued us before the timer was noticed, so a
			// restart is in flight.  Absorb it, then retry.
			self.Suspend()
		}
	}
	self.ClearExtricate()
	l.readers++
	l.mu.Unlock()

	commitReadTracking(self, existing, outOfMem)
	return nil
}

// WrLock acquires the lock for writing, blocking until there are no
// readers and no writer.  Not a cancellation point.
func (l *RWLock) WrLock() error {
	self := Current()
	for {
		l.mu.Lock()
		if l.readers == 0 && l.writer == nil {
			l.writer = self
			l.mu.Unlock()
			return nil
		}
		l.writeWaiting.enqueue(self)
		l.mu.Unlock()
		logger.Trace().Int64("thread", self.id).Msg("wrlock wait")
		self.Suspend()
	}
}

// TryWrLock acquires the lock for writing only if it is idle.
func (l *RWLock) TryWrLock() error {
	self := Current()

	l.mu.Lock()
	if l.readers == 0 && l.writer == nil {
		l.writer = self
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return ErrBusy
}

// TimedWrLock is WrLock with an absolute deadline, following the same
// extrication protocol as TimedRdLock over the writer queue.
func (l *RWLock) TimedWrLock(abstime unix.Timespec) error {
	if abstime.Nsec < 0 || int64(abstime.Nsec) >= int64(time.Second) {
		return ErrInvalid
	}
	self := Current()

	self.SetExtricate(l, rwlockWrExtricate)
	for {
		l.mu.Lock()
		if l.readers == 0 && l.writer == nil {
			l.writer = self
			self.ClearExtricate()
			l.mu.Unlock()
			return nil
		}
		l.writeWaiting.enqueue(self)
		l.mu.Unlock()

		if !self.TimedSuspend(abstime) {
			l.mu.Lock()
			wasOnQueue := l.writeWaiting.remove(self)
			l.mu.Unlock()
			if wasOnQueue {
				self.ClearExtricate()
				logger.Trace().Int64("thread", self.id).Msg("timedwrlock timeout")
				return ErrTimedOut
			}
			// Restart already in flight; absorb it and retry.
			self.Suspend()
		}
	}
}

// Unlock releases one hold, read or write, by the calling thread.  It
// returns ErrPerm when another thread holds the lock for writing, or
// when the lock has no readers and no writer.  A read release does not
// check that the caller is one of the readers.
//
// The internal mutex is dropped before any successor is restarted, so
// the hand-off is not strict: an unrelated thread may slip in and take
// the lock between the release and the successor's wake-up.
func (l *RWLock) Unlock() error {
	self := Current()

	l.mu.Lock()
	if l.writer != nil {
		if l.writer != self {
			l.mu.Unlock()
			return ErrPerm
		}
		l.writer = nil
		if (l.kind == PreferReader && !l.readWaiting.empty()) || l.writeWaiting.empty() {
			// Restart all waiting readers, draining a snapshot outside
			// the critical section.
			wake := l.readWaiting
			l.readWaiting = waitQueue{}
			l.mu.Unlock()
			for th := wake.dequeue(); th != nil; th = wake.dequeue() {
				th.Restart()
			}
			return nil
		}
		th := l.writeWaiting.dequeue()
		l.mu.Unlock()
		th.Restart()
		return nil
	}

	if l.readers == 0 {
		l.mu.Unlock()
		return ErrPerm
	}
	l.readers--
	var th *Thread
	if l.readers == 0 {
		th = l.writeWaiting.dequeue()
	}
	l.mu.Unlock()
	if th != nil {
		th.Restart()
	}

	if l.kind == PreferWriter {
		self.untrackReadlock(l)
	}
	return nil
}

// Extrication callbacks for the timed variants.  Called with the lock's
// identity by the thread runtime, possibly from another goroutine.

func rwlockRdExtricate(obj interface{}, th *Thread) bool {
	l := obj.(*RWLock)
	l.mu.Lock()
	removed := l.readWaiting.remove(th)
	l.mu.Unlock()
	return removed
}

func rwlockWrExtricate(obj interface{}, th *Thread) bool {
	l := obj.(*RWLock)
	l.mu.Lock()
	removed := l.writeWaiting.remove(th)
	l.mu.Unlock()
	return removed
}

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

package usync

import (
	"sync"
	"time"

	"github.com/petermattis/goid"
	"golang.org/x/sys/unix"
)

// Thread is the descriptor the primitives suspend and restart.  One
// descriptor belongs to exactly one goroutine; all fields other than the
// wake semaphore and the extrication record are touched only by that
// goroutine or by a primitive holding its internal mutex.
type Thread struct {
	id int64

	// wake is the restart semaphore.  Each Suspend consumes exactly one
	// token; each Restart deposits exactly one.  The wait protocols
	// guarantee at most one token is ever outstanding, so the deposit
	// never blocks.
	wake chan struct{}

	// next chains the thread into the wait queue it is suspended on.
	// Owned by that queue's primitive, under its internal mutex.
	next *Thread

	extricateMu sync.Mutex
	extricate   *extricateRecord

	// Read-lock bookkeeping for writer-preferring locks.  Accessed only
	// by the owning goroutine; no locking required.
	heldReadlocks          *readlockInfo
	freeReadlocks          *readlockInfo
	untrackedReadlockCount int
}

// extricateRecord lets the cancellation path pull a thread out of
// whatever wait queue it is suspended on.
type extricateRecord struct {
	obj       interface{}
	extricate func(obj interface{}, th *Thread) bool
}

var threadRegistry sync.Map // goroutine id -> *Thread

// Current returns the calling goroutine's descriptor, creating and
// registering one on first use.
func Current() *Thread {
	gid := goid.Get()
	if th, ok := threadRegistry.Load(gid); ok {
		return th.(*Thread)
	}
	th := &Thread{id: gid, wake: make(chan struct{}, 1)}
	threadRegistry.Store(gid, th)
	return th
}

// Release discards the calling goroutine's descriptor.  Call it when a
// goroutine is done using the primitives; the descriptor must not be on
// any wait queue.
func Release() {
	threadRegistry.Delete(goid.Get())
}

// Suspend blocks the thread until a matching Restart.
func (t *Thread) Suspend() {
	<-t.wake
}

// TimedSuspend blocks until Restart or the absolute deadline, whichever
// comes first.  It reports whether the thread was woken; a pending
// restart wins over an expired deadline that has not yet been observed.
func (t *Thread) TimedSuspend(abstime unix.Timespec) bool {
	select {
	case <-t.wake:
		return true
	default:
	}
	timer := time.NewTimer(time.Until(time.Unix(int64(abstime.Sec), int64(abstime.Nsec))))
	defer timer.Stop()
	select {
	case <-t.wake:
		return true
	case <-timer.C:
		return false
	}
}

// Restart makes one pending (or future) Suspend on t return.
func (t *Thread) Restart() {
	t.wake <- struct{}{}
}

// SetExtricate installs the record the cancellation path uses to remove
// t from a wait queue.  obj is handed back to fn verbatim.
func (t *Thread) SetExtricate(obj interface{}, fn func(obj interface{}, th *Thread) bool) {
	t.extricateMu.Lock()
	t.extricate = &extricateRecord{obj: obj, extricate: fn}
	t.extricateMu.Unlock()
}

// ClearExtricate removes any installed extrication record.
func (t *Thread) ClearExtricate() {
	t.extricateMu.Lock()
	t.extricate = nil
	t.extricateMu.Unlock()
}

// Extricate invokes the installed extrication callback, restarting the
// thread if the callback removed it from a wait queue.  It reports
// whether removal happened.  Cancellation machinery calls this from a
// different goroutine than the owner.
func (t *Thread) Extricate() bool {
	t.extricateMu.Lock()
	rec := t.extricate
	t.extricateMu.Unlock()
	if rec == nil {
		return false
	}
	removed := rec.extricate(rec.obj, t)
	if removed {
		t.Restart()
	}
	return removed
}

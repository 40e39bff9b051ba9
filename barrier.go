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

import "sync"

// Barrier is an N-way rendezvous.  Each cycle completes when the
// required number of threads have called Wait; exactly one of them, the
// last to arrive, gets the serial return.  A barrier is reusable: the
// next cycle begins as soon as the previous one's waiters are handed
// off for wake-up.
type Barrier struct {
	mu       sync.Mutex
	required uint32
	present  uint32
	waiting  waitQueue
}

// NewBarrier creates a barrier that releases its waiters once count
// threads have arrived.  count must be at least one.  A nil attr means
// process-private.
func NewBarrier(attr *BarrierAttr, count uint32) (*Barrier, error) {
	if count == 0 {
		return nil, ErrInvalid
	}
	_ = attr // pshared has no effect within one address space
	return &Barrier{required: count}, nil
}

// Wait blocks until the barrier's required number of threads have
// arrived, then returns true in exactly one caller (the serial thread)
// and false in the others.  Wait is not a cancellation point.
func (b *Barrier) Wait() bool {
	self := Current()
	var wake waitQueue

	b.mu.Lock()
	serial := b.present >= b.required-1
	if serial {
		// Swap the queue out so the next cycle starts fresh while we
		// drain this one outside the critical section.
		wake = b.waiting
		b.waiting = waitQueue{}
		b.present = 0
	} else {
		b.present++
		b.waiting.enqueue(self)
	}
	b.mu.Unlock()

	if !serial {
		logger.Trace().Int64("thread", self.id).Msg("barrier wait")
		self.Suspend()
		return false
	}
	for th := wake.dequeue(); th != nil; th = wake.dequeue() {
		th.Restart()
	}
	return true
}

// Destroy checks that no thread is waiting on the barrier.  It returns
// ErrBusy if any is; the caller must let the current cycle complete
// first.
func (b *Barrier) Destroy() error {
	b.mu.Lock()
	busy := !b.waiting.empty()
	b.mu.Unlock()
	if busy {
		return ErrBusy
	}
	return nil
}

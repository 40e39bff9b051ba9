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

// waitQueue is a FIFO of suspended threads, chained intrusively through
// the descriptor's next pointer.  A thread may sit on at most one queue
// at a time; enqueueing an already-queued thread corrupts both queues.
// Callers serialize access with the owning primitive's internal mutex.
type waitQueue struct {
	head, tail *Thread
}

func (q *waitQueue) enqueue(th *Thread) {
	th.next = nil
	if q.tail == nil {
		q.head = th
	} else {
		q.tail.next = th
	}
	q.tail = th
}

// dequeue removes and returns the head of the queue, or nil if empty.
func (q *waitQueue) dequeue() *Thread {
	th := q.head
	if th == nil {
		return nil
	}
	q.head = th.next
	if q.head == nil {
		q.tail = nil
	}
	th.next = nil
	return th
}

// remove unlinks th wherever it sits in the queue, reporting whether it
// was present.
func (q *waitQueue) remove(th *Thread) bool {
	var prev *Thread
	for cur := q.head; cur != nil; prev, cur = cur, cur.next {
		if cur != th {
			continue
		}
		if prev == nil {
			q.head = cur.next
		} else {
			prev.next = cur.next
		}
		if q.tail == cur {
			q.tail = prev
		}
		cur.next = nil
		return true
	}
	return false
}

func (q *waitQueue) empty() bool {
	return q.head == nil
}

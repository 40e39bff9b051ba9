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

// Kind selects the RW-lock's preference policy.
type Kind int

const (
	// PreferReader admits readers whenever no writer holds the lock,
	// even past waiting writers.
	PreferReader Kind = iota

	// PreferWriter holds new readers back while writers wait, except
	// for threads that already hold the lock for reading.
	PreferWriter

	// PreferWriterNonrecursive is PreferWriter without the recursive
	// concession: a reader reacquiring past a waiting writer blocks.
	PreferWriterNonrecursive

	// Default is the policy used when no attribute is supplied.
	Default = PreferReader
)

// Pshared selects process-private or process-shared operation.
type Pshared int

const (
	ProcessPrivate Pshared = iota
	ProcessShared
)

// BarrierAttr carries creation-time options for a Barrier.
type BarrierAttr struct {
	pshared Pshared
}

// NewBarrierAttr returns an attribute set to process-private defaults.
func NewBarrierAttr() *BarrierAttr {
	return &BarrierAttr{pshared: ProcessPrivate}
}

func (a *BarrierAttr) Pshared() Pshared {
	return a.pshared
}

func (a *BarrierAttr) SetPshared(p Pshared) error {
	if p != ProcessPrivate && p != ProcessShared {
		return ErrInvalid
	}
	a.pshared = p
	return nil
}

// RWLockAttr carries creation-time options for an RWLock.
type RWLockAttr struct {
	kind    Kind
	pshared Pshared
}

// NewRWLockAttr returns an attribute set to the default kind and
// process-private sharing.
func NewRWLockAttr() *RWLockAttr {
	return &RWLockAttr{kind: Default, pshared: ProcessPrivate}
}

func (a *RWLockAttr) Kind() Kind {
	return a.kind
}

func (a *RWLockAttr) SetKind(k Kind) error {
	if k != PreferReader && k != PreferWriter && k != PreferWriterNonrecursive {
		return ErrInvalid
	}
	a.kind = k
	return nil
}

func (a *RWLockAttr) Pshared() Pshared {
	return a.pshared
}

// SetPshared accepts only ProcessPrivate; the lock's wait queues live in
// one address space.
func (a *RWLockAttr) SetPshared(p Pshared) error {
	if p != ProcessPrivate && p != ProcessShared {
		return ErrInvalid
	}
	if p != ProcessPrivate {
		return ErrNotSupported
	}
	a.pshared = p
	return nil
}

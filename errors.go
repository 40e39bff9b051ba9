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

import "errors"

// Errors returned by the primitives.  Callers should compare with
// errors.Is; none of these wrap further causes.
var (
	// ErrInvalid reports a malformed argument: a zero barrier count, an
	// unknown attribute value, or a deadline whose nanosecond component
	// is outside [0, 1e9).
	ErrInvalid = errors.New("usync: invalid argument")

	// ErrBusy reports that a try-acquire could not take the lock, or
	// that a primitive with live users was asked to destroy itself.
	ErrBusy = errors.New("usync: resource busy")

	// ErrTimedOut reports that a timed acquire reached its absolute
	// deadline without acquiring the lock.
	ErrTimedOut = errors.New("usync: timed out")

	// ErrPerm reports an unlock of a lock that another thread holds for
	// writing, or that nobody holds at all.
	ErrPerm = errors.New("usync: operation not permitted")

	// ErrNotSupported reports a request for process-shared mode on a
	// primitive that only supports process-private operation.
	ErrNotSupported = errors.New("usync: not supported")
)

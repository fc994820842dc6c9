/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package signaler implements the cross-platform wake primitive described in
// the source as a choice between an eventfd, a self-pipe or a loopback
// socket pair. Go collapses that choice to one portable primitive: a
// capacity-1 channel, which already gives "at most one unconsumed signal"
// for free and is select-able from any goroutine.
package signaler

import "context"

// Signaler is a one-bit, select-able wake signal.
type Signaler struct {
	ch chan struct{}
}

// New returns a Signaler with no pending signal.
func New() *Signaler {
	return &Signaler{ch: make(chan struct{}, 1)}
}

// Send raises the signal. If a signal is already pending, this is a no-op —
// that is the "at most one unconsumed signal" contract.
func (s *Signaler) Send() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Recv consumes one pending signal, blocking until one arrives or ctx is
// done. Returns ctx.Err() on cancellation.
func (s *Signaler) Recv(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until a signal is pending (or ctx is done) without consuming
// it — used by the I/O thread's reactor to fold the mailbox signal into a
// larger select alongside registered Pollables.
func (s *Signaler) Wait(ctx context.Context) error {
	select {
	case v := <-s.ch:
		// Put it back so a subsequent Recv still observes it; the reactor
		// only needs to know readiness, the mailbox itself performs the
		// actual drain-and-consume.
		select {
		case s.ch <- v:
		default:
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C exposes the underlying channel for direct inclusion in a reflect.Select
// set (the I/O thread's reactor fan-in).
func (s *Signaler) C() <-chan struct{} {
	return s.ch
}

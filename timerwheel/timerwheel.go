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

// Package timerwheel implements the I/O thread's one-shot timer set: a
// container/heap min-heap keyed by expiry, giving O(log n) AddTimer/RmTimer
// and O(1) peek-next-deadline.
package timerwheel

import (
	"container/heap"
	"time"
)

// Handle identifies a registered timer for cancellation.
type Handle uint64

type entry struct {
	expiry time.Time
	handle Handle
	fire   func()
	index  int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].expiry.Before(h[j].expiry) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Wheel is a single-threaded (owning I/O thread only) timer set.
type Wheel struct {
	h      entryHeap
	byID   map[Handle]*entry
	nextID Handle
}

// New returns an empty timer wheel.
func New() *Wheel {
	return &Wheel{byID: make(map[Handle]*entry)}
}

// AddTimer schedules fire to run after d elapses (checked by NextDeadline /
// FireExpired, driven from the owning I/O thread's reactor loop).
func (w *Wheel) AddTimer(d time.Duration, fire func()) Handle {
	w.nextID++
	id := w.nextID
	e := &entry{expiry: time.Now().Add(d), handle: id, fire: fire}
	heap.Push(&w.h, e)
	w.byID[id] = e
	return id
}

// RmTimer cancels a previously scheduled timer. No-op if already fired.
func (w *Wheel) RmTimer(id Handle) {
	e, ok := w.byID[id]
	if !ok {
		return
	}
	heap.Remove(&w.h, e.index)
	delete(w.byID, id)
}

// NextDeadline returns the time of the soonest pending timer and true, or
// the zero time and false if none are pending.
func (w *Wheel) NextDeadline() (time.Time, bool) {
	if len(w.h) == 0 {
		return time.Time{}, false
	}
	return w.h[0].expiry, true
}

// FireExpired invokes and removes every timer whose deadline has passed.
func (w *Wheel) FireExpired(now time.Time) {
	for len(w.h) > 0 && !w.h[0].expiry.After(now) {
		e := heap.Pop(&w.h).(*entry)
		delete(w.byID, e.handle)
		e.fire()
	}
}

// Len reports the number of pending timers — contributes to the I/O
// thread's load counter.
func (w *Wheel) Len() int {
	return len(w.h)
}

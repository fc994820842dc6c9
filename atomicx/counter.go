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

package atomicx

import "sync/atomic"

// Counter32 is a monotonically-increasing uint32 counter, used for socket-ids,
// survey-ids and pipe sequence numbers. Wrapping is expected and allowed.
type Counter32 struct {
	v atomic.Uint32
}

// NewCounter32 returns a counter seeded at start.
func NewCounter32(start uint32) *Counter32 {
	c := &Counter32{}
	c.v.Store(start)
	return c
}

// Next returns the next value and advances the counter by one.
func (c *Counter32) Next() uint32 {
	return c.v.Add(1) - 1
}

// Load returns the current value without advancing it.
func (c *Counter32) Load() uint32 {
	return c.v.Load()
}

// Counter64 is the 64-bit equivalent, used for msgs_written/msgs_read tallies.
type Counter64 struct {
	v atomic.Int64
}

// Add adds delta and returns the new value.
func (c *Counter64) Add(delta int64) int64 {
	return c.v.Add(delta)
}

// Load returns the current value.
func (c *Counter64) Load() int64 {
	return c.v.Load()
}

// Store sets the value.
func (c *Counter64) Store(v int64) {
	c.v.Store(v)
}

// Flag is a lock-free boolean, used for the mailbox's one-bit "active" state.
type Flag struct {
	v atomic.Bool
}

// Set sets the flag and returns the previous value.
func (f *Flag) Set(v bool) (old bool) {
	return f.v.Swap(v)
}

// Get returns the current value.
func (f *Flag) Get() bool {
	return f.v.Load()
}

// CompareAndSwap is the standard CAS primitive, exposed for pipe credit math.
func (f *Flag) CompareAndSwap(old, new bool) bool {
	return f.v.CompareAndSwap(old, new)
}

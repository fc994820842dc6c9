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

// Package atomicx provides generic, lock-free value wrappers used by actors
// that share a handful of counters across goroutines without taking a lock:
// socket-id allocation, pipe sequence numbers, I/O-thread load counts.
package atomicx

import (
	"sync/atomic"
)

// Value is a type-safe wrapper over atomic.Value with a default fallback.
type Value[T any] struct {
	av atomic.Value
	df T
}

// NewValue returns a Value with the zero value of T as its default.
func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// NewValueDefault returns a Value pre-loaded with def and returning def
// whenever the stored value is absent or of the wrong type.
func NewValueDefault[T any](def T) *Value[T] {
	v := &Value[T]{df: def}
	v.av.Store(box[T]{v: def})
	return v
}

type box[T any] struct{ v T }

// Load returns the current value, or the configured default if unset.
func (o *Value[T]) Load() T {
	if b, ok := o.av.Load().(box[T]); ok {
		return b.v
	}
	return o.df
}

// Store sets the value atomically.
func (o *Value[T]) Store(v T) {
	o.av.Store(box[T]{v: v})
}

// Swap atomically stores v and returns the previous value.
func (o *Value[T]) Swap(v T) (old T) {
	prev := o.av.Swap(box[T]{v: v})
	if b, ok := prev.(box[T]); ok {
		return b.v
	}
	return o.df
}

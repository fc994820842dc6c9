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

// Package filter defines the pluggable subscription-matcher vtable and
// registry, plus the two built-in filters (prefix, topic).
package filter

// ID identifies a registered filter implementation.
type ID uint16

const (
	Prefix ID = 1
	Topic  ID = 2
)

// Subscriber is an opaque handle identifying the pipe (or socket) a
// subscription belongs to — typically a *pipe.Pipe, compared by identity.
type Subscriber any

// PublisherFilter is the publisher-side (pf_*) half of the vtable: matching
// many subscribers against one outgoing message.
type PublisherFilter interface {
	ID() ID
	Subscribe(prefix []byte, sub Subscriber) (fresh bool)
	Unsubscribe(prefix []byte, sub Subscriber) (emptied bool)
	UnsubscribeAll(sub Subscriber, onUnsubscribed func(prefix []byte))
	Match(data []byte, onMatch func(sub Subscriber))
}

// SubscriberFilter is the subscriber-side (sf_*) half: caching the local
// subscription set and matching inbound messages against it.
type SubscriberFilter interface {
	ID() ID
	Subscribe(prefix []byte)
	Unsubscribe(prefix []byte)
	Match(data []byte) bool
	Each(fn func(prefix []byte))
}

// Factory constructs fresh Publisher/Subscriber filter instances, registered
// per filter-id in the Registry.
type Factory struct {
	NewPublisher  func() PublisherFilter
	NewSubscriber func() SubscriberFilter
}

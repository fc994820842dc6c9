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

package filter

import (
	"sync"

	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

// Registry is the Context-wide, read-mostly table of registered filter
// factories, keyed by filter-id. NewRegistry registers the built-ins
// (prefix, topic) and Register adds further factories; the Context has no
// option for registering extra filters and does not expose its Registry.
type Registry struct {
	mu       sync.RWMutex
	factory  map[ID]Factory
	log      xslog.Logger
}

// NewRegistry returns a Registry pre-populated with the two built-in
// filters.
func NewRegistry(log xslog.Logger) *Registry {
	r := &Registry{factory: make(map[ID]Factory), log: log.WithField("actor", "filter-registry")}
	r.Register(Prefix, Factory{NewPublisher: NewPrefixPublisher, NewSubscriber: NewPrefixSubscriber})
	r.Register(Topic, Factory{NewPublisher: NewTopicPublisher, NewSubscriber: NewTopicSubscriber})
	return r
}

// Register adds or replaces the factory for id.
func (r *Registry) Register(id ID, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factory[id] = f
}

// NewPublisher returns a fresh publisher-side filter for id. If id is
// unknown, per the Open Question decision in SPEC_FULL.md, the subscription
// frame naming it should be dropped by the caller rather than calling this;
// this function returns (nil, false) so callers can implement that policy.
func (r *Registry) NewPublisher(id ID) (PublisherFilter, bool) {
	r.mu.RLock()
	f, ok := r.factory[id]
	r.mu.RUnlock()
	if !ok || f.NewPublisher == nil {
		r.log.WithField("filter_id", uint16(id)).Warning("unknown filter-id in subscription frame, dropping")
		return nil, false
	}
	return f.NewPublisher(), true
}

// NewSubscriber returns a fresh subscriber-side filter for id.
func (r *Registry) NewSubscriber(id ID) (SubscriberFilter, error) {
	r.mu.RLock()
	f, ok := r.factory[id]
	r.mu.RUnlock()
	if !ok || f.NewSubscriber == nil {
		return nil, xserr.EINVAL.Error()
	}
	return f.NewSubscriber(), nil
}

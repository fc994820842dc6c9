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

// prefixNode is one node of the byte-wise prefix trie. The source uses a
// dense-array/single-pointer dual representation to keep per-node memory
// small; this port uses a plain map[byte]*prefixNode instead (see
// DESIGN.md Open Question #4) since Go's map already gives O(1) amortized
// edge lookup without hand-rolled min/count bookkeeping.
type prefixNode struct {
	subscribers map[Subscriber]int // refcount per subscriber terminating here
	children    map[byte]*prefixNode
}

func newPrefixNode() *prefixNode {
	return &prefixNode{}
}

func (n *prefixNode) liveChildren() int { return len(n.children) }

func (n *prefixNode) isEmpty() bool {
	return len(n.subscribers) == 0 && len(n.children) == 0
}

// prefixPublisher is the pf_* (publisher-side) filter: tracks, per attached
// pipe, which prefixes that pipe has subscribed to, so Match can be walked
// against an outgoing message.
type prefixPublisher struct {
	root *prefixNode
}

// NewPrefixPublisher returns a fresh publisher-side prefix filter.
func NewPrefixPublisher() PublisherFilter {
	return &prefixPublisher{root: newPrefixNode()}
}

func (p *prefixPublisher) ID() ID { return Prefix }

func (p *prefixPublisher) Subscribe(prefix []byte, sub Subscriber) bool {
	n := p.root
	for _, b := range prefix {
		c, ok := n.children[b]
		if !ok {
			if n.children == nil {
				n.children = make(map[byte]*prefixNode)
			}
			c = newPrefixNode()
			n.children[b] = c
		}
		n = c
	}
	wasEmpty := len(n.subscribers) == 0
	if n.subscribers == nil {
		n.subscribers = make(map[Subscriber]int)
	}
	n.subscribers[sub]++
	return wasEmpty
}

func (p *prefixPublisher) Unsubscribe(prefix []byte, sub Subscriber) bool {
	path := make([]*prefixNode, 0, len(prefix)+1)
	path = append(path, p.root)
	n := p.root
	for _, b := range prefix {
		c, ok := n.children[b]
		if !ok {
			return false
		}
		path = append(path, c)
		n = c
	}

	if n.subscribers[sub] <= 0 {
		return false
	}
	n.subscribers[sub]--
	emptied := false
	if n.subscribers[sub] == 0 {
		delete(n.subscribers, sub)
		emptied = len(n.subscribers) == 0
	}

	// Prune bottom-up: drop empty leaf nodes.
	for i := len(path) - 1; i > 0; i-- {
		child := path[i]
		parent := path[i-1]
		if !child.isEmpty() {
			break
		}
		for b, c := range parent.children {
			if c == child {
				delete(parent.children, b)
				break
			}
		}
	}

	return emptied
}

func (p *prefixPublisher) UnsubscribeAll(sub Subscriber, onUnsubscribed func(prefix []byte)) {
	var walk func(n *prefixNode, acc []byte)
	walk = func(n *prefixNode, acc []byte) {
		if _, ok := n.subscribers[sub]; ok {
			delete(n.subscribers, sub)
			if len(n.subscribers) == 0 && onUnsubscribed != nil {
				cp := make([]byte, len(acc))
				copy(cp, acc)
				onUnsubscribed(cp)
			}
		}
		for b, c := range n.children {
			walk(c, append(acc, b))
		}
	}
	walk(p.root, nil)
	p.prune(p.root)
}

func (p *prefixPublisher) prune(n *prefixNode) bool {
	for b, c := range n.children {
		if p.prune(c) {
			delete(n.children, b)
		}
	}
	return n.isEmpty()
}

func (p *prefixPublisher) Match(data []byte, onMatch func(sub Subscriber)) {
	n := p.root
	for sub := range n.subscribers {
		onMatch(sub)
	}
	for _, b := range data {
		c, ok := n.children[b]
		if !ok {
			return
		}
		for sub := range c.subscribers {
			onMatch(sub)
		}
		n = c
	}
}

// prefixSubscriber is the sf_* (subscriber-side) filter: the local cache of
// prefixes this socket has subscribed to, used to test inbound messages.
type prefixSubscriber struct {
	prefixes [][]byte
}

// NewPrefixSubscriber returns a fresh subscriber-side prefix filter.
func NewPrefixSubscriber() SubscriberFilter {
	return &prefixSubscriber{}
}

func (s *prefixSubscriber) ID() ID { return Prefix }

func (s *prefixSubscriber) Subscribe(prefix []byte) {
	cp := make([]byte, len(prefix))
	copy(cp, prefix)
	s.prefixes = append(s.prefixes, cp)
}

func (s *prefixSubscriber) Unsubscribe(prefix []byte) {
	for i, p := range s.prefixes {
		if string(p) == string(prefix) {
			s.prefixes = append(s.prefixes[:i], s.prefixes[i+1:]...)
			return
		}
	}
}

func (s *prefixSubscriber) Match(data []byte) bool {
	for _, p := range s.prefixes {
		if len(p) <= len(data) && string(data[:len(p)]) == string(p) {
			return true
		}
	}
	return false
}

func (s *prefixSubscriber) Each(fn func(prefix []byte)) {
	for _, p := range s.prefixes {
		fn(p)
	}
}

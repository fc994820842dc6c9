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

import "strings"

// topicPublisher is the pf_* half of the dotted-topic filter: a dictionary
// topic -> ordered subscriber list, with '*' consuming one segment.
type topicPublisher struct {
	subs map[string][]Subscriber
}

// NewTopicPublisher returns a fresh publisher-side topic filter.
func NewTopicPublisher() PublisherFilter {
	return &topicPublisher{subs: make(map[string][]Subscriber)}
}

func (t *topicPublisher) ID() ID { return Topic }

func (t *topicPublisher) Subscribe(topic []byte, sub Subscriber) bool {
	key := string(topic)
	for _, s := range t.subs[key] {
		if s == sub {
			return false
		}
	}
	wasEmpty := len(t.subs[key]) == 0
	t.subs[key] = append(t.subs[key], sub)
	return wasEmpty
}

func (t *topicPublisher) Unsubscribe(topic []byte, sub Subscriber) bool {
	key := string(topic)
	list := t.subs[key]
	for i, s := range list {
		if s == sub {
			t.subs[key] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(t.subs[key]) == 0 {
		delete(t.subs, key)
		return true
	}
	return false
}

func (t *topicPublisher) UnsubscribeAll(sub Subscriber, onUnsubscribed func(prefix []byte)) {
	for key, list := range t.subs {
		for i, s := range list {
			if s == sub {
				t.subs[key] = append(list[:i], list[i+1:]...)
				if len(t.subs[key]) == 0 {
					delete(t.subs, key)
					if onUnsubscribed != nil {
						onUnsubscribed([]byte(key))
					}
				}
				break
			}
		}
	}
}

func (t *topicPublisher) Match(data []byte, onMatch func(sub Subscriber)) {
	msgTopic := string(data)
	for topic, list := range t.subs {
		if topicMatches(topic, msgTopic) {
			for _, s := range list {
				onMatch(s)
			}
		}
	}
}

// topicMatches implements the segment-by-segment greedy match: '*' consumes
// bytes up to (not including) the next dot.
func topicMatches(pattern, topic string) bool {
	pSegs := strings.Split(pattern, ".")
	tSegs := strings.Split(topic, ".")
	if len(pSegs) != len(tSegs) {
		return false
	}
	for i, seg := range pSegs {
		if seg == "*" {
			continue
		}
		if seg != tSegs[i] {
			return false
		}
	}
	return true
}

// topicSubscriber is the sf_* half: the local cache of subscribed topics.
type topicSubscriber struct {
	topics []string
}

// NewTopicSubscriber returns a fresh subscriber-side topic filter.
func NewTopicSubscriber() SubscriberFilter {
	return &topicSubscriber{}
}

func (t *topicSubscriber) ID() ID { return Topic }

func (t *topicSubscriber) Subscribe(topic []byte) {
	key := string(topic)
	for _, s := range t.topics {
		if s == key {
			return
		}
	}
	t.topics = append(t.topics, key)
}

func (t *topicSubscriber) Unsubscribe(topic []byte) {
	key := string(topic)
	for i, s := range t.topics {
		if s == key {
			t.topics = append(t.topics[:i], t.topics[i+1:]...)
			return
		}
	}
}

func (t *topicSubscriber) Match(data []byte) bool {
	msgTopic := string(data)
	for _, pattern := range t.topics {
		if topicMatches(pattern, msgTopic) {
			return true
		}
	}
	return false
}

func (t *topicSubscriber) Each(fn func(prefix []byte)) {
	for _, s := range t.topics {
		fn([]byte(s))
	}
}

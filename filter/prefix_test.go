package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crossroads-io/xscore/filter"
)

func TestPrefixPublisherMatchesSharedAndDeepPrefixes(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	subA, subB := "pipeA", "pipeB"

	pub.Subscribe([]byte(""), subA)     // matches everything
	pub.Subscribe([]byte("news.tech"), subB)

	var got []filter.Subscriber
	pub.Match([]byte("news.tech.ai"), func(s filter.Subscriber) { got = append(got, s) })

	assert.ElementsMatch(t, []filter.Subscriber{subA, subB}, got)
}

func TestPrefixPublisherNoMatch(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	pub.Subscribe([]byte("sports"), "sub1")

	var got []filter.Subscriber
	pub.Match([]byte("news.tech"), func(s filter.Subscriber) { got = append(got, s) })
	assert.Empty(t, got)
}

// Subscription visibility: a subscribe must be visible to Match immediately,
// and the reported "fresh"/"emptied" transitions must be symmetric with
// unsubscribe (subscribe-then-unsubscribe is idempotent on the trie).
func TestPrefixSubscribeUnsubscribeSymmetric(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	sub := "peerA"

	fresh := pub.Subscribe([]byte("a.b"), sub)
	assert.True(t, fresh, "first subscription to a prefix must report fresh")

	fresh2 := pub.Subscribe([]byte("a.b"), sub)
	assert.False(t, fresh2, "duplicate subscribe from same subscriber must not be fresh")

	emptied := pub.Unsubscribe([]byte("a.b"), sub)
	assert.True(t, emptied, "unsubscribing the last holder must report emptied")

	var got []filter.Subscriber
	pub.Match([]byte("a.b.c"), func(s filter.Subscriber) { got = append(got, s) })
	assert.Empty(t, got, "unsubscribed prefix must no longer match")
}

func TestPrefixRefcountedMultiSubscribe(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	sub := "peerA"
	pub.Subscribe([]byte("x"), sub)
	pub.Subscribe([]byte("x"), sub) // refcount 2

	emptied := pub.Unsubscribe([]byte("x"), sub)
	assert.False(t, emptied, "refcount still positive after one unsubscribe")

	var got []filter.Subscriber
	pub.Match([]byte("x.y"), func(s filter.Subscriber) { got = append(got, s) })
	assert.Equal(t, []filter.Subscriber{sub}, got)

	emptied = pub.Unsubscribe([]byte("x"), sub)
	assert.True(t, emptied)
}

func TestPrefixUnsubscribeUnknownIsNoop(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	assert.False(t, pub.Unsubscribe([]byte("nope"), "sub"))
}

func TestPrefixUnsubscribeAllRemovesEverySubscription(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	sub := "peerA"
	pub.Subscribe([]byte("a"), sub)
	pub.Subscribe([]byte("b"), sub)
	pub.Subscribe([]byte("a.c"), "other")

	var unsubbed [][]byte
	pub.UnsubscribeAll(sub, func(prefix []byte) { unsubbed = append(unsubbed, prefix) })
	assert.Len(t, unsubbed, 2)

	var got []filter.Subscriber
	pub.Match([]byte("a.c"), func(s filter.Subscriber) { got = append(got, s) })
	assert.Equal(t, []filter.Subscriber{"other"}, got)
}

// Prefix trie equivalence: matching via the trie must agree with a naive
// byte-prefix scan over every subscribed prefix, across a mixed workload.
func TestPrefixTrieEquivalenceToNaiveScan(t *testing.T) {
	pub := filter.NewPrefixPublisher()
	prefixes := []string{"", "a", "ab", "abc", "b", "xy", "xyz123"}
	for i, p := range prefixes {
		pub.Subscribe([]byte(p), i)
	}

	messages := []string{"abc123", "ab", "a", "b", "xyz123456", "xy", "zzz", ""}
	for _, msg := range messages {
		var trieMatches []int
		pub.Match([]byte(msg), func(s filter.Subscriber) { trieMatches = append(trieMatches, s.(int)) })

		var naiveMatches []int
		for i, p := range prefixes {
			if len(p) <= len(msg) && msg[:len(p)] == p {
				naiveMatches = append(naiveMatches, i)
			}
		}
		assert.ElementsMatch(t, naiveMatches, trieMatches, "mismatch for message %q", msg)
	}
}

func TestPrefixSubscriberFilterMatch(t *testing.T) {
	sub := filter.NewPrefixSubscriber()
	sub.Subscribe([]byte("news"))
	sub.Subscribe([]byte("sports.football"))

	assert.True(t, sub.Match([]byte("news.tech")))
	assert.True(t, sub.Match([]byte("sports.football.world-cup")))
	assert.False(t, sub.Match([]byte("sports.basketball")))

	var all [][]byte
	sub.Each(func(p []byte) { all = append(all, p) })
	assert.Len(t, all, 2)

	sub.Unsubscribe([]byte("news"))
	assert.False(t, sub.Match([]byte("news.tech")))
}

func TestPrefixSubscriberEmptyPrefixMatchesAll(t *testing.T) {
	sub := filter.NewPrefixSubscriber()
	sub.Subscribe(nil)
	assert.True(t, sub.Match([]byte("anything")))
	assert.True(t, sub.Match(nil))
}

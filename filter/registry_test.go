package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/xslog"
)

func TestRegistryPrePopulatedWithBuiltins(t *testing.T) {
	r := filter.NewRegistry(xslog.Discard())

	pf, ok := r.NewPublisher(filter.Prefix)
	require.True(t, ok)
	assert.Equal(t, filter.Prefix, pf.ID())

	sf, err := r.NewSubscriber(filter.Topic)
	require.NoError(t, err)
	assert.Equal(t, filter.Topic, sf.ID())
}

func TestRegistryUnknownIDReportsFalse(t *testing.T) {
	r := filter.NewRegistry(xslog.Discard())
	pf, ok := r.NewPublisher(filter.ID(999))
	assert.False(t, ok)
	assert.Nil(t, pf)

	_, err := r.NewSubscriber(filter.ID(999))
	assert.Error(t, err)
}

func TestRegistryRegisterOverridesFactory(t *testing.T) {
	r := filter.NewRegistry(xslog.Discard())
	called := false
	r.Register(filter.Prefix, filter.Factory{
		NewPublisher: func() filter.PublisherFilter {
			called = true
			return filter.NewPrefixPublisher()
		},
		NewSubscriber: filter.NewPrefixSubscriber,
	})
	_, ok := r.NewPublisher(filter.Prefix)
	require.True(t, ok)
	assert.True(t, called)
}

package reaper_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/pattern"
	"github.com/crossroads-io/xscore/reaper"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

func newSocket(kind socket.Kind, pat socket.Pattern) *socket.Core {
	reg := filter.NewRegistry(xslog.Discard())
	return socket.New(context.Background(), pat, socket.Default(kind), nil, nil, reg, xslog.Discard())
}

func TestTermAllTerminatesEveryRegisteredSocket(t *testing.T) {
	r := reaper.New(xslog.Discard())

	var released int
	s1 := newSocket(socket.KindPUSH, pattern.NewPUSH())
	s2 := newSocket(socket.KindPULL, pattern.NewPULL())
	r.Register(s1, func() { released++ })
	r.Register(s2, func() { released++ })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.TermAll(ctx))

	assert.True(t, s1.Terminating())
	assert.True(t, s2.Terminating())
	assert.Equal(t, 2, released)
}

func TestTermAllWithNoRegistrationsIsNoop(t *testing.T) {
	r := reaper.New(xslog.Discard())
	assert.NoError(t, r.TermAll(context.Background()))
}

// A TermAll call cancelled mid-flight must report EINTR without clearing the
// registry, so a later TermAll call still drives every socket to completion.
func TestTermAllRestartableAfterCancellation(t *testing.T) {
	r := reaper.New(xslog.Discard())

	s := newSocket(socket.KindPUSH, pattern.NewPUSH())
	require.NoError(t, s.SetSockOpt(socket.OptLinger, 200*time.Millisecond))
	r.Register(s, func() {})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.TermAll(cancelled)
	assert.True(t, xserr.Is(err, xserr.EINTR))

	require.NoError(t, r.TermAll(context.Background()))
	assert.True(t, s.Terminating())
}

func TestTermAllRunsRegisteredSocketsConcurrently(t *testing.T) {
	r := reaper.New(xslog.Discard())
	sockets := make([]*socket.Core, 0, 5)
	for i := 0; i < 5; i++ {
		s := newSocket(socket.KindPUSH, pattern.NewPUSH())
		sockets = append(sockets, s)
		r.Register(s, func() {})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.TermAll(ctx))

	for _, s := range sockets {
		assert.True(t, s.Terminating())
	}
}

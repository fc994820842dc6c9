package iothread_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/xslog"
)

// mockPollable is a minimal iothread.Pollable whose readiness is driven
// directly by the test via readC/writeC, with InEvent/OutEvent recorded on
// buffered signal channels so a test can block for dispatch.
type mockPollable struct {
	readC, writeC     chan struct{}
	inFired, outFired chan struct{}
}

func newMockPollable() *mockPollable {
	return &mockPollable{
		readC:    make(chan struct{}, 1),
		writeC:   make(chan struct{}, 1),
		inFired:  make(chan struct{}, 8),
		outFired: make(chan struct{}, 8),
	}
}

func (p *mockPollable) ReadC() <-chan struct{}  { return p.readC }
func (p *mockPollable) WriteC() <-chan struct{} { return p.writeC }
func (p *mockPollable) InEvent()                { p.inFired <- struct{}{} }
func (p *mockPollable) OutEvent()               { p.outFired <- struct{}{} }

func TestRegisterUnregisterAffectsLoad(t *testing.T) {
	th := iothread.New(1, xslog.Discard())
	assert.Equal(t, int64(0), th.Load())

	p := newMockPollable()
	th.Register(p)
	assert.Equal(t, int64(1), th.Load())

	h := th.AddTimer(time.Hour, func() {})
	assert.Equal(t, int64(2), th.Load())

	th.RmTimer(h)
	assert.Equal(t, int64(1), th.Load())

	th.Unregister(p)
	assert.Equal(t, int64(0), th.Load())
}

func TestRunDispatchesReadEvent(t *testing.T) {
	th := iothread.New(2, xslog.Discard())
	p := newMockPollable()
	th.Register(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Run(ctx)

	p.readC <- struct{}{}

	select {
	case <-p.inFired:
	case <-time.After(time.Second):
		t.Fatal("InEvent was never dispatched for a ready read channel")
	}

	th.Stop()
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}
}

func TestRunFiresTimer(t *testing.T) {
	th := iothread.New(3, xslog.Discard())

	fired := make(chan struct{})
	th.AddTimer(10*time.Millisecond, func() { close(fired) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Run(ctx)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	th.Stop()
	<-th.Done()
}

func TestRunExitsOnContextCancel(t *testing.T) {
	th := iothread.New(4, xslog.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go th.Run(ctx)

	cancel()
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}

func TestMailboxActivateWakesRegisteredPollables(t *testing.T) {
	th := iothread.New(5, xslog.Discard())
	p := newMockPollable()
	th.Register(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Run(ctx)

	th.Mailbox().Send(mailbox.Command{Type: mailbox.ActivateWrite})

	select {
	case <-p.outFired:
	case <-time.After(time.Second):
		t.Fatal("ActivateWrite command never triggered a wakeAll sweep")
	}

	th.Stop()
	<-th.Done()
}

func TestStopIsIdempotentToCall(t *testing.T) {
	th := iothread.New(6, xslog.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Run(ctx)

	th.Stop()
	select {
	case <-th.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after Stop")
	}
	assert.NotPanics(t, th.Stop, "Stop after the reactor has already exited must not panic")
}

func TestTIDReturnsBoundValue(t *testing.T) {
	th := iothread.New(42, xslog.Discard())
	require.Equal(t, iothread.TID(42), th.TID())
}

package dist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/dist"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/wire"
)

func newPipe(hwm int64) *pipe.Pipe {
	mbxA, mbxB := mailbox.New(), mailbox.New()
	a, _ := pipe.NewPair(hwm, hwm, 1, mbxA, mbxB)
	return a
}

func drain(p *pipe.Pipe) []wire.Message {
	var out []wire.Message
	for {
		m, ok := p.Read()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

// Fair queue fairness: with N pipes each holding one ready message, Recv
// must visit every pipe exactly once per full rotation rather than
// starving any of them.
func TestFairQueueRotatesAcrossAllPipes(t *testing.T) {
	fq := dist.NewFairQueue()
	pipes := make([]*pipe.Pipe, 3)
	for i := range pipes {
		pipes[i] = newPipe(10)
		require.NoError(t, pipes[i].Write(wire.NewFrame([]byte{byte(i)}, false)))
		pipes[i].Flush()
		fq.Attach(pipes[i])
	}

	seen := map[byte]int{}
	for i := 0; i < 3; i++ {
		m, err := fq.Recv()
		require.NoError(t, err)
		seen[m.Data[0]]++
	}
	assert.Equal(t, map[byte]int{0: 1, 1: 1, 2: 1}, seen)

	_, err := fq.Recv()
	assert.Error(t, err, "all three pipes drained, expected EAGAIN")
}

func TestFairQueueSkipsEmptyAndTerminatedPipes(t *testing.T) {
	fq := dist.NewFairQueue()
	empty := newPipe(10)
	terminated := newPipe(10)
	require.NoError(t, terminated.Write(wire.NewFrame([]byte("x"), false)))
	terminated.Flush()
	terminated.Terminate()
	terminated.AckTerm()

	ready := newPipe(10)
	require.NoError(t, ready.Write(wire.NewFrame([]byte("y"), false)))
	ready.Flush()

	fq.Attach(empty)
	fq.Attach(terminated)
	fq.Attach(ready)

	m, err := fq.Recv()
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), m.Data)
}

func TestFairQueueDetach(t *testing.T) {
	fq := dist.NewFairQueue()
	p1, p2 := newPipe(10), newPipe(10)
	fq.Attach(p1)
	fq.Attach(p2)
	assert.Equal(t, 2, fq.Len())
	fq.Detach(p1)
	assert.Equal(t, 1, fq.Len())
}

// Load-balance fairness: round-robin across pipes for independent
// (non-multipart) sends should spread roughly evenly rather than always
// hitting the same pipe.
func TestLoadBalanceRoundRobinsSingleFrameSends(t *testing.T) {
	lb := dist.NewLoadBalance()
	pipes := make([]*pipe.Pipe, 3)
	for i := range pipes {
		pipes[i] = newPipe(10)
		lb.Attach(pipes[i])
	}

	for i := 0; i < 6; i++ {
		require.NoError(t, lb.Send(wire.NewFrame([]byte{byte(i)}, false)))
	}

	for i, p := range pipes {
		msgs := drain(p)
		require.Len(t, msgs, 2, "pipe %d should have received exactly 2 of 6 round-robined sends", i)
	}
}

// Atomic multipart via load-balance: every part of one multipart message
// must land on the same pipe, never scattered across peers.
func TestLoadBalancePinsMultipartToOnePipe(t *testing.T) {
	lb := dist.NewLoadBalance()
	p1, p2 := newPipe(10), newPipe(10)
	lb.Attach(p1)
	lb.Attach(p2)

	require.NoError(t, lb.Send(wire.NewFrame([]byte("part1"), true)))
	require.NoError(t, lb.Send(wire.NewFrame([]byte("part2"), true)))
	require.NoError(t, lb.Send(wire.NewFrame([]byte("part3"), false)))

	m1, m2 := drain(p1), drain(p2)
	total := len(m1) + len(m2)
	require.Equal(t, 3, total)
	assert.True(t, len(m1) == 3 || len(m2) == 3, "all three parts of one multipart message must land on the same pipe")
}

func TestLoadBalanceAdvancesCursorOnlyBetweenMessages(t *testing.T) {
	lb := dist.NewLoadBalance()
	p1, p2 := newPipe(10), newPipe(10)
	lb.Attach(p1)
	lb.Attach(p2)

	require.NoError(t, lb.Send(wire.NewFrame([]byte("m1p1"), true)))
	require.NoError(t, lb.Send(wire.NewFrame([]byte("m1p2"), false)))
	require.NoError(t, lb.Send(wire.NewFrame([]byte("m2"), false)))

	m1, m2 := drain(p1), drain(p2)
	assert.True(t, (len(m1) == 2 && len(m2) == 1) || (len(m1) == 1 && len(m2) == 2))
}

func TestLoadBalanceSkipsFullAndTerminatedPipes(t *testing.T) {
	lb := dist.NewLoadBalance()
	full := newPipe(1)
	require.NoError(t, full.Write(wire.NewFrame([]byte("x"), false)))
	full.Flush()

	open := newPipe(10)
	lb.Attach(full)
	lb.Attach(open)

	require.NoError(t, lb.Send(wire.NewFrame([]byte("y"), false)))
	msgs := drain(open)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("y"), msgs[0].Data)
}

func TestLoadBalanceEAGAINWithNoPipes(t *testing.T) {
	lb := dist.NewLoadBalance()
	err := lb.Send(wire.NewFrame([]byte("x"), false))
	assert.Error(t, err)
}

func TestLoadBalanceHasOut(t *testing.T) {
	lb := dist.NewLoadBalance()
	assert.False(t, lb.HasOut())
	p := newPipe(1)
	lb.Attach(p)
	assert.True(t, lb.HasOut())
	require.NoError(t, lb.Send(wire.NewFrame([]byte("x"), false)))
	assert.False(t, lb.HasOut())
}

func TestLoadBalanceDetachClearsPin(t *testing.T) {
	lb := dist.NewLoadBalance()
	p1, p2 := newPipe(10), newPipe(10)
	lb.Attach(p1)
	lb.Attach(p2)

	require.NoError(t, lb.Send(wire.NewFrame([]byte("part1"), true)))
	// Detach whichever pipe got pinned; the pin must clear so Send doesn't
	// keep writing to a removed pipe.
	lb.Detach(p1)
	lb.Detach(p2)
	err := lb.Send(wire.NewFrame([]byte("part2"), false))
	assert.Error(t, err, "no pipes left, including the previously-pinned one")
}

// SendTo (broadcast distribute used by PUB/XPUB): every targeted pipe with
// spare credit gets the full multipart message atomically; full pipes are
// silently skipped rather than blocking the publisher.
func TestSendToDeliversToAllMatchedSubscribers(t *testing.T) {
	p1, p2 := newPipe(10), newPipe(10)

	dist.SendTo([]*pipe.Pipe{p1, p2}, wire.NewFrame([]byte("topic"), true))
	dist.SendTo([]*pipe.Pipe{p1, p2}, wire.NewFrame([]byte("body"), false))

	for i, p := range []*pipe.Pipe{p1, p2} {
		msgs := drain(p)
		require.Lenf(t, msgs, 2, "subscriber %d should see both parts", i)
		assert.Equal(t, []byte("topic"), msgs[0].Data)
		assert.Equal(t, []byte("body"), msgs[1].Data)
	}
}

func TestSendToSkipsFullPipeWithoutBlocking(t *testing.T) {
	full := newPipe(1)
	require.NoError(t, full.Write(wire.NewFrame([]byte("x"), false)))
	full.Flush()

	open := newPipe(10)
	assert.NotPanics(t, func() {
		dist.SendTo([]*pipe.Pipe{full, open}, wire.NewFrame([]byte("y"), false))
	})

	msgs := drain(open)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("y"), msgs[0].Data)
}

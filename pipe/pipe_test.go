package pipe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

func newTestPair(hwm, lwm int64) (a, b *pipe.Pipe, mbxA, mbxB *mailbox.Mailbox) {
	mbxA, mbxB = mailbox.New(), mailbox.New()
	a, b = pipe.NewPair(hwm, hwm, lwm, mbxA, mbxB)
	return
}

// FIFO per pipe: messages written in order must be read back in the same
// order, regardless of how many Flush calls are interleaved.
func TestFIFOOrderPreserved(t *testing.T) {
	a, _, _, _ := newTestPair(100, 1)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Write(wire.NewFrame([]byte{byte(i)}, false)))
		a.Flush()
	}

	for i := 0; i < 10; i++ {
		m, ok := a.Read()
		require.True(t, ok)
		assert.Equal(t, byte(i), m.Data[0])
	}
	_, ok := a.Read()
	assert.False(t, ok)
}

// Atomic multipart: a reader must never observe part of a multipart message
// before Flush is called on its final frame.
func TestMultipartNotVisibleUntilFlush(t *testing.T) {
	a, _, _, _ := newTestPair(100, 1)

	require.NoError(t, a.WriteMore(wire.NewFrame([]byte("part1"), true)))
	require.NoError(t, a.WriteMore(wire.NewFrame([]byte("part2"), true)))
	require.NoError(t, a.Write(wire.NewFrame([]byte("part3"), false)))

	// nothing flushed yet: reader sees nothing
	_, ok := a.Read()
	assert.False(t, ok, "unflushed multipart parts must not be visible")

	a.Flush()

	var parts [][]byte
	for {
		m, ok := a.Read()
		if !ok {
			break
		}
		parts = append(parts, m.Data)
	}
	require.Len(t, parts, 3)
	assert.Equal(t, []byte("part1"), parts[0])
	assert.Equal(t, []byte("part2"), parts[1])
	assert.Equal(t, []byte("part3"), parts[2])
}

// A message written but not yet flushed must not be counted as "available"
// by Drained, otherwise Session.Terminate could declare the pipe drained while
// a writer still has an in-flight multipart.
func TestDrainedReflectsOnlyFlushedBacklog(t *testing.T) {
	a, _, _, _ := newTestPair(100, 1)
	assert.True(t, a.Drained())

	require.NoError(t, a.Write(wire.NewFrame([]byte("x"), false)))
	assert.True(t, a.Drained(), "unflushed write must not count as pending")

	a.Flush()
	assert.False(t, a.Drained())

	_, ok := a.Read()
	require.True(t, ok)
	assert.True(t, a.Drained())
}

func TestWriteRespectsHWM(t *testing.T) {
	a, _, _, _ := newTestPair(2, 1)
	require.NoError(t, a.Write(wire.NewFrame([]byte("1"), false)))
	require.NoError(t, a.Write(wire.NewFrame([]byte("2"), false)))

	err := a.Write(wire.NewFrame([]byte("3"), false))
	require.Error(t, err)
	assert.True(t, xserr.Is(err, xserr.EAGAIN))
	assert.True(t, a.Full())
}

// A multipart chain already admitted past the first frame must be allowed
// to finish even if it crosses HWM mid-chain — the HWM check only gates
// starting a *new* logical message.
func TestMultipartContinuationBypassesHWMMidChain(t *testing.T) {
	a, _, _, _ := newTestPair(1, 1)
	require.NoError(t, a.WriteMore(wire.NewFrame([]byte("p1"), true)))
	require.NoError(t, a.WriteMore(wire.NewFrame([]byte("p2"), true)))
	require.NoError(t, a.Write(wire.NewFrame([]byte("p3"), false)))
}

func TestFlushWakesBlockedReaderViaPeerMailbox(t *testing.T) {
	a, _, mbxA, _ := newTestPair(10, 1)

	require.NoError(t, a.Write(wire.NewFrame([]byte("hi"), false)))
	woke := a.Flush()
	assert.True(t, woke)

	// a's own reader is woken via a.peer.peerMbx, which NewPair wires back
	// to mbxA — see the Flush doc comment for why the indirection runs
	// through the peer pipe rather than a.peerMbx directly.
	select {
	case <-mbxA.ReadySignal():
	default:
		t.Fatal("expected ActivateRead command queued on a's own reader mailbox")
	}
}

func TestApplyCreditRestoresWriteCapacity(t *testing.T) {
	a, _, _, _ := newTestPair(1, 1)
	require.NoError(t, a.Write(wire.NewFrame([]byte("1"), false)))
	assert.True(t, a.Full())

	a.Flush()
	_, ok := a.Read()
	require.True(t, ok)

	// Crossing lwm (1 here) makes Read() store lastMsgsRead directly, so
	// credit clears without a separate ApplyCredit round trip in-process.
	assert.False(t, a.Full())
	require.NoError(t, a.Write(wire.NewFrame([]byte("2"), false)))
}

// ApplyCredit is how a remote peer's ActivateWrite command (carrying its
// msgsRead tally) gets folded back into this pipe's own credit accounting.
func TestApplyCreditDirectly(t *testing.T) {
	a, _, _, _ := newTestPair(1, 100) // high lwm: Read() alone won't clear credit
	require.NoError(t, a.Write(wire.NewFrame([]byte("1"), false)))
	a.Flush()
	assert.True(t, a.Full())

	a.ApplyCredit(1)
	assert.False(t, a.Full())
}

func TestTerminateHandshake(t *testing.T) {
	a, _, _, _ := newTestPair(10, 1)
	assert.False(t, a.Terminated())

	a.Terminate()
	err := a.Write(wire.NewFrame([]byte("x"), false))
	assert.True(t, xserr.Is(err, xserr.ETERM))

	a.AckTerm()
	assert.True(t, a.Terminated())
}

func TestDepthTracksWrittenMinusRead(t *testing.T) {
	a, _, _, _ := newTestPair(10, 1)
	require.NoError(t, a.Write(wire.NewFrame([]byte("1"), false)))
	require.NoError(t, a.Write(wire.NewFrame([]byte("2"), false)))
	a.Flush()
	assert.Equal(t, int64(2), a.Depth())

	_, ok := a.Read()
	require.True(t, ok)
	assert.Equal(t, int64(1), a.Depth())
}

package udp

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xslog"
)

func TestEncodeDecodeHeaderRoundtrip(t *testing.T) {
	seqNo, offset := decodeHeader(encodeHeader(12345, 42))
	assert.Equal(t, uint32(12345), seqNo)
	assert.Equal(t, uint16(42), offset)
}

func packetFor(seqNo uint32, offset uint16, m wire.Message) []byte {
	var buf bytes.Buffer
	buf.Write(encodeHeader(seqNo, offset))
	_ = wire.EncodeFrame(&buf, m)
	return buf.Bytes()
}

// Until the receiver has seen its first offset boundary, packets without one
// must be silently dropped rather than misinterpreted as payload.
func TestReceiverDropsPacketsUntilFirstBoundary(t *testing.T) {
	r := &Receiver{log: xslog.Discard()}
	r.onPacket(packetFor(1, noBoundary, wire.NewFrame([]byte("lost"), false)))
	assert.False(t, r.synced)
	assert.Empty(t, r.inQueue)
}

func TestReceiverSyncsOnFirstBoundaryAndDecodes(t *testing.T) {
	r := &Receiver{log: xslog.Discard()}
	r.onPacket(packetFor(1, 0, wire.NewFrame([]byte("hello"), false)))
	require.True(t, r.synced)
	require.Len(t, r.inQueue, 1)
	assert.Equal(t, []byte("hello"), r.inQueue[0].Data)
}

func TestReceiverDropsStaleOrDuplicatePackets(t *testing.T) {
	r := &Receiver{log: xslog.Discard()}
	r.onPacket(packetFor(5, 0, wire.NewFrame([]byte("first"), false)))
	require.Len(t, r.inQueue, 1)

	r.onPacket(packetFor(5, 0, wire.NewFrame([]byte("dup"), false)))
	r.onPacket(packetFor(3, 0, wire.NewFrame([]byte("stale"), false)))
	assert.Len(t, r.inQueue, 1, "duplicate and stale sequence numbers must be dropped")
}

// A gap in the sequence re-anchors using the next packet's offset field
// rather than treating the payload as a continuation of the prior stream.
func TestReceiverResyncsAfterGapUsingOffset(t *testing.T) {
	r := &Receiver{log: xslog.Discard()}
	r.onPacket(packetFor(1, 0, wire.NewFrame([]byte("first"), false)))
	require.True(t, r.synced)
	require.Equal(t, uint32(1), r.lastSeq)

	// seqNo jumps from 1 to 9: a gap. Re-anchor at the new boundary.
	r.onPacket(packetFor(9, 0, wire.NewFrame([]byte("after-gap"), false)))
	assert.True(t, r.synced)
	assert.Equal(t, uint32(9), r.lastSeq)
	require.Len(t, r.inQueue, 2)
	assert.Equal(t, []byte("after-gap"), r.inQueue[1].Data)
}

// A gap with no re-anchoring offset leaves the receiver unsynced until the
// next boundary arrives.
func TestReceiverLosesSyncOnGapWithoutBoundary(t *testing.T) {
	r := &Receiver{log: xslog.Discard()}
	r.onPacket(packetFor(1, 0, wire.NewFrame([]byte("first"), false)))
	require.True(t, r.synced)

	r.onPacket(packetFor(9, noBoundary, wire.NewFrame([]byte("ambiguous"), false)))
	assert.False(t, r.synced)
}

func newPipe() (near, far *pipe.Pipe) {
	return pipe.NewPair(10, 10, 1, nil, nil)
}

// TestPubOverUDPMultipartRoundtrip drives a real Sender/Receiver pair over
// loopback UDP: the sender's Plug fakes a subscribe-all so a PUB above it
// never stalls waiting for an upstream subscription, and a two-frame
// multipart publish must arrive at the receiver's socket-side pipe intact
// and in order.
func TestPubOverUDPMultipartRoundtrip(t *testing.T) {
	log := xslog.Discard()
	tr := New(log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lnAny, err := tr.Listen(ctx, "127.0.0.1:0", socket.Options{Type: socket.KindSUB, Protocol: socket.ProtocolCurrent})
	require.NoError(t, err)
	ln := lnAny.(*Listener)
	addr := ln.conn.LocalAddr().String()
	defer ln.Close()

	senderEngine, err := tr.Dial(ctx, addr, socket.Options{Type: socket.KindPUB, Protocol: socket.ProtocolCurrent})
	require.NoError(t, err)
	receiverEngine, err := ln.Accept(ctx)
	require.NoError(t, err)

	th := iothread.New(1, log)

	senderToSocketNear, senderToSocketFar := newPipe()
	senderToEngineFar, senderToEngineNear := newPipe()
	senderSess := session.New(th, senderToSocketNear, senderToEngineNear, true, addr, session.ReconnectPolicy{}, 0, log)
	senderSess.Plug(senderEngine)

	sub, ok := senderToSocketFar.Read()
	require.True(t, ok, "Sender.Plug must fake a subscribe-all so PUB never stalls")
	cmd, _, _, err := wire.DecodeSubscription(sub.Data)
	require.NoError(t, err)
	assert.Equal(t, wire.CmdSubscribe, cmd)

	receiverToSocketNear, receiverToSocketFar := newPipe()
	receiverUnusedToEngine, _ := newPipe()
	receiverSess := session.New(th, receiverToSocketNear, receiverUnusedToEngine, false, addr, session.ReconnectPolicy{}, 0, log)
	receiverSess.Plug(receiverEngine)

	require.NoError(t, senderToEngineFar.Write(wire.NewFrame([]byte("part1"), true)))
	require.NoError(t, senderToEngineFar.Write(wire.NewFrame([]byte("part2"), false)))
	senderToEngineFar.Flush()
	senderEngine.(*Sender).ActivateOut()

	var parts []wire.Message
	require.Eventually(t, func() bool {
		receiverEngine.(*Receiver).InEvent()
		for {
			m, ok := receiverToSocketFar.Read()
			if !ok {
				break
			}
			parts = append(parts, m)
		}
		return len(parts) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []byte("part1"), parts[0].Data)
	assert.True(t, parts[0].More())
	assert.Equal(t, []byte("part2"), parts[1].Data)
	assert.False(t, parts[1].More())

	senderSess.Terminate()
	receiverSess.Terminate()
}

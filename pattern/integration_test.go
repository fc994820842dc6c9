package pattern_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/pattern"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
)

// End-to-end reqrep-device: a REQ client talks through an XREP/XREQ
// forwarding device to a REP server and back. The device's XREP prepends
// the client's per-connection identity to the request envelope, and REP's
// label-stashing Xrecv carries that identity and the reqID back through the
// reply unmodified.
func TestReqRepDeviceForwarding(t *testing.T) {
	ctx := context.Background()

	reqPat := pattern.NewREQ()
	reqCore := newCore(socket.KindREQ, reqPat, socket.ProtocolCurrent)
	xrepPat := pattern.NewXREP() // device frontend, facing the client
	xrepCore := newCore(socket.KindXREP, xrepPat, socket.ProtocolCurrent)
	xreqPat := pattern.NewXREQ() // device backend, facing the server
	xreqCore := newCore(socket.KindXREQ, xreqPat, socket.ProtocolCurrent)
	repPat := pattern.NewREP()
	repCore := newCore(socket.KindREP, repPat, socket.ProtocolCurrent)

	connReq, connFrontend := duplexConns(1, 10)
	connBackend, connRep := duplexConns(2, 10)
	reqPat.XattachPipe(reqCore, connReq)
	xrepPat.XattachPipe(xrepCore, connFrontend)
	xreqPat.XattachPipe(xreqCore, connBackend)
	repPat.XattachPipe(repCore, connRep)

	require.NoError(t, reqCore.Send(ctx, wire.NewFrame([]byte("hello"), false), false, true))

	// Device forwards frontend -> backend verbatim until the final frame.
	for {
		m, more, err := xrepCore.Recv(ctx, true)
		require.NoError(t, err)
		require.NoError(t, xreqCore.Send(ctx, m, more, true))
		if !more {
			break
		}
	}

	body, more, err := repCore.Recv(ctx, true)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []byte("hello"), body.Data)

	require.NoError(t, repCore.Send(ctx, wire.NewFrame([]byte("world"), false), false, true))

	// REP replays every label it peeled off the request (the client's
	// identity as assigned by the frontend XREP, the reqID and the
	// delimiter) ahead of the body; the device forwards the whole reply
	// envelope verbatim and the frontend routes on its leading identity.
	var backendFrames []wire.Message
	for {
		m, more, err := xreqCore.Recv(ctx, true)
		require.NoError(t, err)
		backendFrames = append(backendFrames, m)
		if !more {
			break
		}
	}
	require.Len(t, backendFrames, 4, "reply envelope: client-identity, reqID, delimiter, body")
	for _, m := range backendFrames {
		require.NoError(t, xrepCore.Send(ctx, m, m.More(), true))
	}

	reply, more, err := reqCore.Recv(ctx, true)
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []byte("world"), reply.Data)
}

// End-to-end sub-forward via an XPUB/XSUB device: a PUB's message only
// reaches a SUB once the SUB's subscription has propagated upstream through
// the device, and the device's own forwarding in both directions must
// preserve the prefix-match semantics on each side independently.
func TestSubForwardingThroughXPubXSubDevice(t *testing.T) {
	ctx := context.Background()

	pubPat := pattern.NewPUB()
	pubCore := newCore(socket.KindPUB, pubPat, socket.ProtocolCurrent)
	xsubPat := pattern.NewXSUB() // device's upstream (publisher-facing) side
	xsubCore := newCore(socket.KindXSUB, xsubPat, socket.ProtocolCurrent)
	xpubPat := pattern.NewXPUB(true) // device's downstream (subscriber-facing) side
	xpubCore := newCore(socket.KindXPUB, xpubPat, socket.ProtocolCurrent)
	subPat := pattern.NewSUB()
	subCore := newCore(socket.KindSUB, subPat, socket.ProtocolCurrent)

	connPub, connUpstream := duplexConns(1, 10)
	connDownstream, connSub := duplexConns(2, 10)
	pubPat.XattachPipe(pubCore, connPub)
	xsubPat.XattachPipe(xsubCore, connUpstream)
	xpubPat.XattachPipe(xpubCore, connDownstream)
	subPat.XattachPipe(subCore, connSub)

	require.NoError(t, subCore.SetSockOpt(socket.OptSubscribe, []byte("t")))
	xpubPat.XreadActivated(xpubCore, connDownstream)

	notice, _, err := xpubCore.Recv(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, notice.Data)

	require.NoError(t, xsubCore.Send(ctx, notice, false, true))
	pubPat.XreadActivated(pubCore, connPub)

	require.NoError(t, pubCore.Send(ctx, wire.NewFrame([]byte("t.msg"), false), false, true))

	fwd, _, err := xsubCore.Recv(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("t.msg"), fwd.Data)

	require.NoError(t, xpubCore.Send(ctx, fwd, false, true))

	got, _, err := subCore.Recv(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("t.msg"), got.Data)

	// An unsubscribed topic must not reach the SUB even after this forward
	// path has been proven live.
	require.NoError(t, pubCore.Send(ctx, wire.NewFrame([]byte("other.msg"), false), false, true))
	_, _, err = xsubCore.Recv(ctx, true)
	assert.Error(t, err, "device's own upstream subscription never matches other.* so nothing should arrive")
}

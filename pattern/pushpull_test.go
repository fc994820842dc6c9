package pattern_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossroads-io/xscore/pattern"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// PUSH load-balances round-robin across attached pipes; PULL fair-queues
// inbound. Together they must deliver every sent message exactly once.
func TestPushPullRoundRobinDelivery(t *testing.T) {
	ctx := context.Background()
	pushPat := pattern.NewPUSH()
	pushCore := newCore(socket.KindPUSH, pushPat, socket.ProtocolCurrent)

	pullPatA, pullPatB := pattern.NewPULL(), pattern.NewPULL()
	pullCoreA := newCore(socket.KindPULL, pullPatA, socket.ProtocolCurrent)
	pullCoreB := newCore(socket.KindPULL, pullPatB, socket.ProtocolCurrent)

	connPushA, connPullA := duplexConns(1, 10)
	connPushB, connPullB := duplexConns(2, 10)
	pushPat.XattachPipe(pushCore, connPushA)
	pushPat.XattachPipe(pushCore, connPushB)
	pullPatA.XattachPipe(pullCoreA, connPullA)
	pullPatB.XattachPipe(pullCoreB, connPullB)

	for i := 0; i < 4; i++ {
		require.NoError(t, pushCore.Send(ctx, wire.NewFrame([]byte{byte(i)}, false), false, true))
	}

	var got []byte
	for {
		m, _, err := pullCoreA.Recv(ctx, true)
		if err != nil {
			break
		}
		got = append(got, m.Data[0])
	}
	for {
		m, _, err := pullCoreB.Recv(ctx, true)
		if err != nil {
			break
		}
		got = append(got, m.Data[0])
	}
	assert.Len(t, got, 4)
	assert.ElementsMatch(t, []byte{0, 1, 2, 3}, got)
}

func TestPushHasNoRecvPullHasNoSend(t *testing.T) {
	ctx := context.Background()
	pushCore := newCore(socket.KindPUSH, pattern.NewPUSH(), socket.ProtocolCurrent)
	pullCore := newCore(socket.KindPULL, pattern.NewPULL(), socket.ProtocolCurrent)

	_, _, err := pushCore.Recv(ctx, true)
	assert.True(t, xserr.Is(err, xserr.ENOTSUP))

	err = pullCore.Send(ctx, wire.NewFrame([]byte("x"), false), false, true)
	assert.True(t, xserr.Is(err, xserr.ENOTSUP))
}

package pattern_test

import (
	"context"

	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xslog"
)

// newCore builds a *socket.Core around pat without any transport or I/O
// thread wiring — enough to exercise Xsend/Xrecv/XattachPipe directly, since
// none of those touch c.thr or c.transports.
func newCore(kind socket.Kind, pat socket.Pattern, protocol socket.Protocol) *socket.Core {
	opt := socket.Default(kind)
	opt.Protocol = protocol
	reg := filter.NewRegistry(xslog.Discard())
	return socket.New(context.Background(), pat, opt, nil, nil, reg, xslog.Discard())
}

// duplexConns builds two independent one-way pipes and returns the Conn pair
// a caller attaches to two cross-wired sockets: a's Out is b's In and vice
// versa, so writes from one side become reads on the other.
func duplexConns(id uint32, hwm int64) (a, b socket.Conn) {
	abIn, abOut := mailbox.New(), mailbox.New()
	forward, _ := pipe.NewPair(hwm, hwm, 1, abIn, abOut)

	baIn, baOut := mailbox.New(), mailbox.New()
	backward, _ := pipe.NewPair(hwm, hwm, 1, baIn, baOut)

	a = socket.Conn{ID: id, In: backward, Out: forward}
	b = socket.Conn{ID: id, In: forward, Out: backward}
	return
}

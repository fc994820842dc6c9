/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package pattern

import (
	"github.com/crossroads-io/xscore/dist"
	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// XPUB is the raw publish socket: maintains one PublisherFilter instance
// tracking every attached pipe's subscription set, distributes outbound
// messages to whichever pipes match, and — unlike the cooked PUB — surfaces
// subscribe/unsubscribe notifications to the application via Recv.
type XPUB struct {
	conns map[uint32]socket.Conn
	pf    filter.PublisherFilter
	pfID  filter.ID

	notify  bool
	pending []wire.Message

	sendTargets []*pipe.Pipe
	sendBegins  bool
}

// NewXPUB returns a fresh raw publish-pattern vtable. When notify is true
// (the XPUB raw socket), subscribe/unsubscribe control frames are queued
// for delivery via Recv; the cooked PUB passes false.
func NewXPUB(notify bool) *XPUB {
	return &XPUB{conns: make(map[uint32]socket.Conn), notify: notify, sendBegins: true}
}

func (x *XPUB) ensureFilter(c *socket.Core) {
	if x.pf == nil {
		x.pfID = c.Options().FilterID
		x.pf, _ = c.Filters().NewPublisher(x.pfID)
		if x.pf == nil {
			x.pf, _ = c.Filters().NewPublisher(filter.Prefix)
			x.pfID = filter.Prefix
		}
	}
}

func (x *XPUB) processControl(c *socket.Core, conn socket.Conn, m wire.Message) {
	var subscribe bool
	var prefix []byte

	if c.Options().Protocol == socket.ProtocolCurrent {
		cmd, fid, p, err := wire.DecodeSubscription(m.Data)
		if err != nil {
			return
		}
		if filter.ID(fid) != x.pfID {
			c.Log().WithField("filter_id", fid).Warning("unknown filter-id in subscription frame, dropping")
			return
		}
		subscribe = cmd == wire.CmdSubscribe
		prefix = p
	} else {
		s, p, err := wire.DecodeLegacySubscription(m.Data)
		if err != nil {
			return
		}
		subscribe, prefix = s, p
	}

	var changed bool
	if subscribe {
		changed = x.pf.Subscribe(prefix, conn.Out)
	} else {
		changed = x.pf.Unsubscribe(prefix, conn.Out)
	}
	if x.notify && changed {
		flag := byte(0)
		if subscribe {
			flag = 1
		}
		data := append([]byte{flag}, prefix...)
		x.pending = append(x.pending, wire.NewFrame(data, false))
	}
}

func (x *XPUB) Xsend(c *socket.Core, m wire.Message, more bool) error {
	x.ensureFilter(c)
	if x.sendBegins {
		x.sendTargets = x.sendTargets[:0]
		x.pf.Match(m.Data, func(sub filter.Subscriber) {
			if p, ok := sub.(*pipe.Pipe); ok {
				x.sendTargets = append(x.sendTargets, p)
			}
		})
	}
	m.SetMore(more)
	dist.SendTo(x.sendTargets, m)
	x.sendBegins = !more
	return nil
}

func (x *XPUB) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if len(x.pending) == 0 {
		return wire.Message{}, false, xserr.EAGAIN.Error()
	}
	m := x.pending[0]
	x.pending = x.pending[1:]
	return m, false, nil
}

func (x *XPUB) XhasIn(c *socket.Core) bool  { return len(x.pending) > 0 }
func (x *XPUB) XhasOut(c *socket.Core) bool { return true }

func (x *XPUB) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (x *XPUB) XattachPipe(c *socket.Core, conn socket.Conn) {
	x.ensureFilter(c)
	x.conns[conn.ID] = conn
}

func (x *XPUB) XreadActivated(c *socket.Core, conn socket.Conn) {
	for {
		m, ok := conn.In.Read()
		if !ok {
			return
		}
		x.processControl(c, conn, m)
	}
}

func (x *XPUB) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (x *XPUB) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (x *XPUB) Xterminated(c *socket.Core, conn socket.Conn) {
	delete(x.conns, conn.ID)
	if x.pf != nil {
		x.pf.UnsubscribeAll(conn.Out, nil)
	}
}

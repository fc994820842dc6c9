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
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// XSUB is the raw subscribe socket: delivers every inbound message
// unfiltered (the application, typically a device, decides what to do with
// it) and translates application-issued [flag|prefix] control frames into
// real subscription wire frames broadcast upstream.
type XSUB struct {
	fq    *dist.FairQueue
	conns []*socketConnRef
}

type socketConnRef struct {
	conn socket.Conn
}

// NewXSUB returns a fresh raw subscribe-pattern vtable.
func NewXSUB() *XSUB {
	return &XSUB{fq: dist.NewFairQueue()}
}

func (x *XSUB) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if len(m.Data) == 0 {
		return xserr.EFAULT.Error()
	}
	subscribe := m.Data[0] != 0
	prefix := m.Data[1:]

	var frame wire.Message
	if c.Options().Protocol == socket.ProtocolCurrent {
		cmd := wire.CmdUnsubscribe
		if subscribe {
			cmd = wire.CmdSubscribe
		}
		frame = wire.EncodeSubscription(cmd, uint16(c.Options().FilterID), prefix)
	} else {
		frame = wire.EncodeLegacySubscription(subscribe, prefix)
	}

	for _, ref := range x.conns {
		if ref.conn.Out.Terminated() {
			continue
		}
		if err := ref.conn.Out.Write(frame); err == nil {
			ref.conn.Out.Flush()
		}
	}
	return nil
}

func (x *XSUB) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	m, err := x.fq.Recv()
	if err != nil {
		return wire.Message{}, false, err
	}
	return m, m.More(), nil
}

func (x *XSUB) XhasIn(c *socket.Core) bool  { return x.fq.Len() > 0 }
func (x *XSUB) XhasOut(c *socket.Core) bool { return len(x.conns) > 0 }

func (x *XSUB) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (x *XSUB) XattachPipe(c *socket.Core, conn socket.Conn) {
	x.fq.Attach(conn.In)
	x.conns = append(x.conns, &socketConnRef{conn: conn})
}

func (x *XSUB) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (x *XSUB) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (x *XSUB) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (x *XSUB) Xterminated(c *socket.Core, conn socket.Conn) {
	x.fq.Detach(conn.In)
	for i, ref := range x.conns {
		if ref.conn.ID == conn.ID {
			x.conns = append(x.conns[:i], x.conns[i+1:]...)
			return
		}
	}
}

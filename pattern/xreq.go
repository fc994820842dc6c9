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

// Package pattern implements the concrete pattern sockets (REQ/REP, PUB/SUB,
// PUSH/PULL, SURVEYOR/RESPONDENT) and their raw X-variants on top of
// socket.Core.
package pattern

import (
	"github.com/crossroads-io/xscore/dist"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// XREQ is the raw request socket: load-balanced outbound, fair-queued
// inbound, no FSM discipline. Used directly by devices/proxies.
type XREQ struct {
	fq *dist.FairQueue
	lb *dist.LoadBalance
}

// NewXREQ returns a fresh raw request-pattern vtable.
func NewXREQ() *XREQ {
	return &XREQ{fq: dist.NewFairQueue(), lb: dist.NewLoadBalance()}
}

func (x *XREQ) Xsend(c *socket.Core, m wire.Message, more bool) error {
	m.SetMore(more)
	return x.lb.Send(m)
}

func (x *XREQ) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	m, err := x.fq.Recv()
	if err != nil {
		return wire.Message{}, false, err
	}
	return m, m.More(), nil
}

func (x *XREQ) XhasIn(c *socket.Core) bool  { return x.fq.Len() > 0 }
func (x *XREQ) XhasOut(c *socket.Core) bool { return x.lb.HasOut() }

func (x *XREQ) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (x *XREQ) XattachPipe(c *socket.Core, conn socket.Conn) {
	x.fq.Attach(conn.In)
	x.lb.Attach(conn.Out)
}

func (x *XREQ) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (x *XREQ) XwriteActivated(c *socket.Core, conn socket.Conn) {}

func (x *XREQ) Xhiccuped(c *socket.Core, conn socket.Conn) {}

func (x *XREQ) Xterminated(c *socket.Core, conn socket.Conn) {
	x.fq.Detach(conn.In)
	x.lb.Detach(conn.Out)
}

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
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// XSURVEYOR is the raw survey socket: broadcasts outbound to every attached
// pipe and fair-queues inbound, with no request/response correlation.
type XSURVEYOR struct {
	fq    *dist.FairQueue
	conns []*pipe.Pipe
}

// NewXSURVEYOR returns a fresh raw surveyor-pattern vtable.
func NewXSURVEYOR() *XSURVEYOR {
	return &XSURVEYOR{fq: dist.NewFairQueue()}
}

func (x *XSURVEYOR) Xsend(c *socket.Core, m wire.Message, more bool) error {
	for _, p := range x.conns {
		if p.Terminated() {
			continue
		}
		if more {
			_ = p.WriteMore(m)
		} else {
			if err := p.Write(m); err == nil {
				p.Flush()
			}
		}
	}
	return nil
}

func (x *XSURVEYOR) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	m, err := x.fq.Recv()
	if err != nil {
		return wire.Message{}, false, err
	}
	return m, m.More(), nil
}

func (x *XSURVEYOR) XhasIn(c *socket.Core) bool  { return x.fq.Len() > 0 }
func (x *XSURVEYOR) XhasOut(c *socket.Core) bool { return len(x.conns) > 0 }

func (x *XSURVEYOR) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (x *XSURVEYOR) XattachPipe(c *socket.Core, conn socket.Conn) {
	x.fq.Attach(conn.In)
	x.conns = append(x.conns, conn.Out)
}

func (x *XSURVEYOR) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (x *XSURVEYOR) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (x *XSURVEYOR) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (x *XSURVEYOR) Xterminated(c *socket.Core, conn socket.Conn) {
	x.fq.Detach(conn.In)
	for i, p := range x.conns {
		if p == conn.Out {
			x.conns = append(x.conns[:i], x.conns[i+1:]...)
			return
		}
	}
}

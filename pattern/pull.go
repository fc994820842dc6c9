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

// PULL fair-queues inbound across attached pipes. It never sends.
type PULL struct {
	fq *dist.FairQueue
}

// NewPULL returns a fresh pull-pattern vtable.
func NewPULL() *PULL { return &PULL{fq: dist.NewFairQueue()} }

func (p *PULL) Xsend(c *socket.Core, m wire.Message, more bool) error {
	return xserr.ENOTSUP.Error()
}

func (p *PULL) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	m, err := p.fq.Recv()
	if err != nil {
		return wire.Message{}, false, err
	}
	return m, m.More(), nil
}

func (p *PULL) XhasIn(c *socket.Core) bool  { return p.fq.Len() > 0 }
func (p *PULL) XhasOut(c *socket.Core) bool { return false }

func (p *PULL) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (p *PULL) XattachPipe(c *socket.Core, conn socket.Conn)    { p.fq.Attach(conn.In) }
func (p *PULL) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (p *PULL) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (p *PULL) Xhiccuped(c *socket.Core, conn socket.Conn)       {}
func (p *PULL) Xterminated(c *socket.Core, conn socket.Conn)    { p.fq.Detach(conn.In) }

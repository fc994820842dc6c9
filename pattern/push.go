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

// PUSH load-balances outbound across attached pipes, round-robin, skipping
// any that are full. It never receives.
type PUSH struct {
	lb *dist.LoadBalance
}

// NewPUSH returns a fresh push-pattern vtable.
func NewPUSH() *PUSH { return &PUSH{lb: dist.NewLoadBalance()} }

func (p *PUSH) Xsend(c *socket.Core, m wire.Message, more bool) error {
	m.SetMore(more)
	return p.lb.Send(m)
}

func (p *PUSH) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	return wire.Message{}, false, xserr.ENOTSUP.Error()
}

func (p *PUSH) XhasIn(c *socket.Core) bool  { return false }
func (p *PUSH) XhasOut(c *socket.Core) bool { return p.lb.HasOut() }

func (p *PUSH) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (p *PUSH) XattachPipe(c *socket.Core, conn socket.Conn)    { p.lb.Attach(conn.Out) }
func (p *PUSH) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (p *PUSH) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (p *PUSH) Xhiccuped(c *socket.Core, conn socket.Conn)       {}
func (p *PUSH) Xterminated(c *socket.Core, conn socket.Conn)     { p.lb.Detach(conn.Out) }

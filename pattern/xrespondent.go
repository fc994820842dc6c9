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
	"encoding/binary"

	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// XRESPONDENT is the raw survey-response socket: receive prepends a 4-byte
// peer identity; send consumes that identity as a routing key, mirroring
// XREP.
type XRESPONDENT struct {
	conns  map[uint32]socket.Conn
	order  []uint32
	cursor int

	sendIdentity *uint32

	recvIdentity uint32
	recvMore     bool
	recvStashed  *wire.Message
}

// NewXRESPONDENT returns a fresh raw respondent-pattern vtable.
func NewXRESPONDENT() *XRESPONDENT {
	return &XRESPONDENT{conns: make(map[uint32]socket.Conn)}
}

func (x *XRESPONDENT) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if x.sendIdentity == nil {
		if len(m.Data) != 4 {
			return xserr.EFAULT.Error()
		}
		id := binary.BigEndian.Uint32(m.Data)
		x.sendIdentity = &id
		return nil
	}

	cn, ok := x.conns[*x.sendIdentity]
	if !more {
		x.sendIdentity = nil
	}
	if !ok {
		return nil
	}

	var err error
	if more {
		err = cn.Out.WriteMore(m)
	} else {
		err = cn.Out.Write(m)
		if err == nil {
			cn.Out.Flush()
		}
	}
	return err
}

func (x *XRESPONDENT) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if x.recvStashed != nil {
		m := *x.recvStashed
		x.recvStashed = nil
		x.recvMore = m.More()
		return m, x.recvMore, nil
	}
	if x.recvMore {
		cn := x.conns[x.recvIdentity]
		m, ok := cn.In.Read()
		if !ok {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		x.recvMore = m.More()
		return m, x.recvMore, nil
	}

	n := len(x.order)
	for i := 0; i < n; i++ {
		idx := (x.cursor + i) % n
		id := x.order[idx]
		cn, ok := x.conns[id]
		if !ok || cn.In.Terminated() {
			continue
		}
		if m, ok := cn.In.Read(); ok {
			x.cursor = (idx + 1) % n
			x.recvIdentity = id
			x.recvStashed = &m
			x.recvMore = true
			return identityFrame(id), true, nil
		}
	}
	return wire.Message{}, false, xserr.EAGAIN.Error()
}

func (x *XRESPONDENT) XhasIn(c *socket.Core) bool {
	for _, cn := range x.conns {
		if !cn.In.Terminated() {
			return true
		}
	}
	return false
}

func (x *XRESPONDENT) XhasOut(c *socket.Core) bool {
	for _, cn := range x.conns {
		if !cn.Out.Terminated() && !cn.Out.Full() {
			return true
		}
	}
	return false
}

func (x *XRESPONDENT) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (x *XRESPONDENT) XattachPipe(c *socket.Core, conn socket.Conn) {
	x.conns[conn.ID] = conn
	x.order = append(x.order, conn.ID)
}

func (x *XRESPONDENT) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (x *XRESPONDENT) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (x *XRESPONDENT) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (x *XRESPONDENT) Xterminated(c *socket.Core, conn socket.Conn) {
	delete(x.conns, conn.ID)
	for i, id := range x.order {
		if id == conn.ID {
			x.order = append(x.order[:i], x.order[i+1:]...)
			return
		}
	}
}

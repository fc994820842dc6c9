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
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

type repState int

const (
	repReceiving repState = iota
	repSending
)

// REP is XREP plus request/reply discipline: a Recv stashes every routing
// label (including the empty delimiter) it peels off the inbound envelope,
// and the following Send replays that stash ahead of the reply body so the
// response retraces the same path back through any intervening devices.
type REP struct {
	conns  map[uint32]socket.Conn
	order  []uint32
	cursor int

	state repState
	stash []wire.Message

	recvFromID uint32
	recvMore   bool
}

// NewREP returns a fresh REP-pattern vtable.
func NewREP() *REP {
	return &REP{conns: make(map[uint32]socket.Conn)}
}

func (r *REP) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if r.state == repSending {
		return wire.Message{}, false, xserr.EFSM.Error()
	}

	if r.recvMore {
		cn := r.conns[r.recvFromID]
		m, ok := cn.In.Read()
		if !ok {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		r.recvMore = m.More()
		if !r.recvMore {
			r.state = repSending
		}
		return m, r.recvMore, nil
	}

	n := len(r.order)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		id := r.order[idx]
		cn, ok := r.conns[id]
		if !ok || cn.In.Terminated() {
			continue
		}
		first, ok := cn.In.Read()
		if !ok {
			continue
		}
		r.cursor = (idx + 1) % n
		r.stash = nil // the reply is routed by recvFromID; only peeled labels are replayed

		label := first
		for len(label.Data) != 0 {
			r.stash = append(r.stash, label)
			next, ok := cn.In.Read()
			if !ok {
				return wire.Message{}, false, xserr.EAGAIN.Error()
			}
			label = next
		}
		r.stash = append(r.stash, label) // the empty delimiter itself

		body, ok := cn.In.Read()
		if !ok {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		r.recvFromID = id
		r.recvMore = body.More()
		if !r.recvMore {
			r.state = repSending
		}
		return body, r.recvMore, nil
	}
	return wire.Message{}, false, xserr.EAGAIN.Error()
}

func (r *REP) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if r.state != repSending {
		return xserr.EFSM.Error()
	}

	cn, ok := r.conns[r.recvFromID]
	if !ok {
		r.state = repReceiving
		r.stash = nil
		return xserr.EFSM.Error()
	}

	if r.stash != nil {
		for _, label := range r.stash {
			label.SetMore(true)
			if err := cn.Out.WriteMore(label); err != nil {
				return err
			}
		}
		r.stash = nil
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
	if !more && err == nil {
		r.state = repReceiving
	}
	return err
}

func (r *REP) XhasIn(c *socket.Core) bool {
	if r.state != repReceiving {
		return false
	}
	for _, cn := range r.conns {
		if !cn.In.Terminated() {
			return true
		}
	}
	return false
}

func (r *REP) XhasOut(c *socket.Core) bool {
	return r.state == repSending
}

func (r *REP) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (r *REP) XattachPipe(c *socket.Core, conn socket.Conn) {
	r.conns[conn.ID] = conn
	r.order = append(r.order, conn.ID)
}

func (r *REP) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (r *REP) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (r *REP) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (r *REP) Xterminated(c *socket.Core, conn socket.Conn) {
	delete(r.conns, conn.ID)
	for i, id := range r.order {
		if id == conn.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

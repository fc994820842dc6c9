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
	"math/rand"
	"time"

	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

type reqState int

const (
	reqSending reqState = iota
	reqReceiving
)

// REQ layers the strict request/reply FSM on top of raw XREQ-style routing:
// exactly one Send must be answered by exactly one matching Recv before the
// next Send is accepted, and the reply must come back on the same
// connection the request went out on.
type REQ struct {
	conns  []socket.Conn
	cursor int

	state         reqState
	messageBegins bool
	reqID         uint32
	pending       *socket.Conn // connection the in-progress/last request targeted
}

// NewREQ returns a fresh REQ-pattern vtable, seeding the request-id counter
// randomly so restarts don't reuse ids a peer might still associate with a
// prior process (mirrors the survey-id seeding in NewSURVEYOR).
func NewREQ() *REQ {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &REQ{
		state:         reqSending,
		messageBegins: true,
		reqID:         rng.Uint32(),
	}
}

func (r *REQ) pickConn() *socket.Conn {
	n := len(r.conns)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		cn := r.conns[idx]
		if !cn.Out.Terminated() && !cn.Out.Full() {
			r.cursor = (idx + 1) % n
			return &r.conns[idx]
		}
	}
	return nil
}

func (r *REQ) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if r.state == reqReceiving {
		return xserr.EFSM.Error()
	}

	if r.messageBegins {
		cn := r.pickConn()
		if cn == nil {
			return xserr.EAGAIN.Error()
		}
		r.pending = cn
		r.messageBegins = false

		if c.Options().Protocol == socket.ProtocolCurrent {
			idFrame := make([]byte, 4)
			binary.BigEndian.PutUint32(idFrame, r.reqID)
			if err := cn.Out.WriteMore(wire.NewFrame(idFrame, true)); err != nil {
				r.resetSend()
				return err
			}
		}
		if err := cn.Out.WriteMore(wire.NewFrame(nil, true)); err != nil {
			r.resetSend()
			return err
		}
	}

	out := r.pending.Out
	var err error
	if more {
		err = out.WriteMore(m)
	} else {
		err = out.Write(m)
	}
	if err != nil {
		return err
	}

	if !more {
		out.Flush()
		r.state = reqReceiving
		r.messageBegins = true
	}
	return nil
}

func (r *REQ) resetSend() {
	r.messageBegins = true
	r.pending = nil
}

func (r *REQ) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if r.state == reqSending || r.pending == nil {
		return wire.Message{}, false, xserr.EFSM.Error()
	}
	in := r.pending.In

	for {
		if c.Options().Protocol == socket.ProtocolCurrent {
			idFrame, ok := in.Read()
			if !ok {
				return wire.Message{}, false, xserr.EAGAIN.Error()
			}
			if len(idFrame.Data) != 4 || binary.BigEndian.Uint32(idFrame.Data) != r.reqID {
				r.drainRestOfMessage(in)
				continue
			}
		}
		delim, ok := in.Read()
		if !ok || len(delim.Data) != 0 {
			r.drainRestOfMessage(in)
			continue
		}

		body, ok := in.Read()
		if !ok {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		if !body.More() {
			r.reqID++
			r.state = reqSending
			r.pending = nil
		}
		return body, body.More(), nil
	}
}

func (r *REQ) drainRestOfMessage(p interface{ Read() (wire.Message, bool) }) {
	for {
		m, ok := p.Read()
		if !ok || !m.More() {
			return
		}
	}
}

func (r *REQ) XhasIn(c *socket.Core) bool {
	return r.state == reqReceiving
}

func (r *REQ) XhasOut(c *socket.Core) bool {
	if r.state != reqSending {
		return false
	}
	for _, cn := range r.conns {
		if !cn.Out.Terminated() && !cn.Out.Full() {
			return true
		}
	}
	return false
}

func (r *REQ) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (r *REQ) XattachPipe(c *socket.Core, conn socket.Conn) {
	r.conns = append(r.conns, conn)
}

func (r *REQ) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (r *REQ) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (r *REQ) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (r *REQ) Xterminated(c *socket.Core, conn socket.Conn) {
	for i, cn := range r.conns {
		if cn.ID == conn.ID {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return
		}
	}
}

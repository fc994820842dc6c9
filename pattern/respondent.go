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

type respondentState int

const (
	respondentReceiving respondentState = iota
	respondentSending
)

// RESPONDENT mirrors REP for the survey pattern: a Recv stashes the peer
// identity and survey-id label, and the following Send replies with that
// label replayed ahead of a single-part body — survey replies never span
// multiple frames.
type RESPONDENT struct {
	conns map[uint32]socket.Conn
	order []uint32
	cursor int

	state respondentState
	label *wire.Message // the survey-id frame to replay ahead of the reply

	recvFromID uint32
}

// NewRESPONDENT returns a fresh respondent-pattern vtable.
func NewRESPONDENT() *RESPONDENT {
	return &RESPONDENT{conns: make(map[uint32]socket.Conn)}
}

func (r *RESPONDENT) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if r.state == respondentSending {
		return wire.Message{}, false, xserr.EFSM.Error()
	}

	n := len(r.order)
	for i := 0; i < n; i++ {
		idx := (r.cursor + i) % n
		id := r.order[idx]
		cn, ok := r.conns[id]
		if !ok || cn.In.Terminated() {
			continue
		}
		surveyFrame, ok := cn.In.Read()
		if !ok {
			continue
		}
		r.cursor = (idx + 1) % n
		label := surveyFrame
		r.label = &label
		r.recvFromID = id

		body, ok := cn.In.Read()
		if !ok {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		r.state = respondentSending
		return body, false, nil
	}
	return wire.Message{}, false, xserr.EAGAIN.Error()
}

func (r *RESPONDENT) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if r.state != respondentSending {
		return xserr.EFSM.Error()
	}
	if more {
		return xserr.ENOTSUP.Error()
	}

	cn, ok := r.conns[r.recvFromID]
	r.state = respondentReceiving
	if !ok || r.label == nil {
		return xserr.EFSM.Error()
	}

	label := *r.label
	r.label = nil
	label.SetMore(true)
	if err := cn.Out.WriteMore(label); err != nil {
		return err
	}
	if err := cn.Out.Write(m); err != nil {
		return err
	}
	cn.Out.Flush()
	return nil
}

func (r *RESPONDENT) XhasIn(c *socket.Core) bool {
	if r.state != respondentReceiving {
		return false
	}
	for _, cn := range r.conns {
		if !cn.In.Terminated() {
			return true
		}
	}
	return false
}

func (r *RESPONDENT) XhasOut(c *socket.Core) bool { return r.state == respondentSending }

func (r *RESPONDENT) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	return xserr.ENOTSUP.Error()
}

func (r *RESPONDENT) XattachPipe(c *socket.Core, conn socket.Conn) {
	r.conns[conn.ID] = conn
	r.order = append(r.order, conn.ID)
}

func (r *RESPONDENT) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (r *RESPONDENT) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (r *RESPONDENT) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (r *RESPONDENT) Xterminated(c *socket.Core, conn socket.Conn) {
	delete(r.conns, conn.ID)
	for i, id := range r.order {
		if id == conn.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

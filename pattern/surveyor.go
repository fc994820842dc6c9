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
	"time"

	"github.com/crossroads-io/xscore/dist"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/google/uuid"
)

// SURVEYOR broadcasts a question and collects responses within a deadline,
// dropping any response whose correlation id doesn't match the
// in-progress survey.
type SURVEYOR struct {
	fq    *dist.FairQueue
	conns []*pipe.Pipe

	surveyID  uint32
	receiving bool
	deadline  time.Time // zero means no timeout configured

	onTimeout func() // optional metrics hook, set via SetOnTimeout
}

// SetOnTimeout installs a callback fired each time Xrecv observes an expired
// survey deadline, for metrics reporting.
func (s *SURVEYOR) SetOnTimeout(fn func()) {
	s.onTimeout = fn
}

// NewSURVEYOR returns a fresh surveyor-pattern vtable, seeding the survey-id
// counter from a UUID-derived value so restarts don't reuse ids a peer
// might still associate with a prior process.
func NewSURVEYOR() *SURVEYOR {
	seed := uuid.New()
	return &SURVEYOR{fq: dist.NewFairQueue(), surveyID: binary.BigEndian.Uint32(seed[:4])}
}

func (s *SURVEYOR) Xsend(c *socket.Core, m wire.Message, more bool) error {
	if s.receiving {
		return xserr.EFSM.Error()
	}

	s.surveyID++
	idFrame := make([]byte, 4)
	binary.BigEndian.PutUint32(idFrame, s.surveyID)

	for _, p := range s.conns {
		if p.Terminated() {
			continue
		}
		if err := p.WriteMore(wire.NewFrame(idFrame, true)); err != nil {
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

	if !more {
		s.receiving = true
		timeout := c.Options().SurveyTimeout
		if timeout > 0 {
			s.deadline = time.Now().Add(timeout)
		} else {
			s.deadline = time.Time{}
		}
	}
	return nil
}

func (s *SURVEYOR) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	if !s.receiving {
		return wire.Message{}, false, xserr.EFSM.Error()
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.receiving = false
		if s.onTimeout != nil {
			s.onTimeout()
		}
		return wire.Message{}, false, xserr.ETIMEDOUT.Error()
	}

	for {
		idFrame, err := s.fq.Recv()
		if err != nil {
			return wire.Message{}, false, err
		}
		if len(idFrame.Data) != 4 || binary.BigEndian.Uint32(idFrame.Data) != s.surveyID {
			continue
		}
		body, err := s.fq.Recv()
		if err != nil {
			return wire.Message{}, false, xserr.EAGAIN.Error()
		}
		return body, body.More(), nil
	}
}

func (s *SURVEYOR) XhasIn(c *socket.Core) bool  { return s.receiving && s.fq.Len() > 0 }
func (s *SURVEYOR) XhasOut(c *socket.Core) bool { return !s.receiving && len(s.conns) > 0 }

func (s *SURVEYOR) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	if opt == socket.OptSurveyTimeout {
		return nil // consumed via c.Options() at Send time
	}
	return xserr.ENOTSUP.Error()
}

func (s *SURVEYOR) XattachPipe(c *socket.Core, conn socket.Conn) {
	s.fq.Attach(conn.In)
	s.conns = append(s.conns, conn.Out)
}

func (s *SURVEYOR) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (s *SURVEYOR) XwriteActivated(c *socket.Core, conn socket.Conn) {}
func (s *SURVEYOR) Xhiccuped(c *socket.Core, conn socket.Conn)       {}

func (s *SURVEYOR) Xterminated(c *socket.Core, conn socket.Conn) {
	s.fq.Detach(conn.In)
	for i, p := range s.conns {
		if p == conn.Out {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

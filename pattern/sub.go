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
	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
)

// SUB is XSUB plus a local subscription cache: the application calls
// SetSockOpt(SUBSCRIBE/UNSUBSCRIBE) instead of framing control messages by
// hand, inbound messages are filtered before being handed back, and the
// cached set is replayed to every newly (re)attached upstream pipe.
type SUB struct {
	sf   filter.SubscriberFilter
	fID  filter.ID
	fq   *dist.FairQueue
	conns map[uint32]socket.Conn
}

// NewSUB returns a fresh cooked subscribe-pattern vtable.
func NewSUB() *SUB {
	return &SUB{fq: dist.NewFairQueue(), conns: make(map[uint32]socket.Conn)}
}

func (s *SUB) ensureFilter(c *socket.Core) {
	if s.sf == nil {
		s.fID = c.Options().FilterID
		var err error
		s.sf, err = c.Filters().NewSubscriber(s.fID)
		if err != nil {
			s.sf, _ = c.Filters().NewSubscriber(filter.Prefix)
			s.fID = filter.Prefix
		}
	}
}

func (s *SUB) controlFrame(c *socket.Core, subscribe bool, prefix []byte) wire.Message {
	if c.Options().Protocol == socket.ProtocolCurrent {
		cmd := wire.CmdUnsubscribe
		if subscribe {
			cmd = wire.CmdSubscribe
		}
		return wire.EncodeSubscription(cmd, uint16(s.fID), prefix)
	}
	return wire.EncodeLegacySubscription(subscribe, prefix)
}

func (s *SUB) broadcastControl(c *socket.Core, subscribe bool, prefix []byte) {
	frame := s.controlFrame(c, subscribe, prefix)
	for _, conn := range s.conns {
		if conn.Out.Terminated() {
			continue
		}
		if err := conn.Out.Write(frame); err == nil {
			conn.Out.Flush()
		}
	}
}

func (s *SUB) Xsend(c *socket.Core, m wire.Message, more bool) error {
	return xserr.ENOTSUP.Error()
}

func (s *SUB) Xrecv(c *socket.Core) (wire.Message, bool, error) {
	s.ensureFilter(c)
	for {
		m, err := s.fq.Recv()
		if err != nil {
			return wire.Message{}, false, err
		}
		if s.sf.Match(m.Data) {
			return m, m.More(), nil
		}
	}
}

func (s *SUB) XhasIn(c *socket.Core) bool  { return s.fq.Len() > 0 }
func (s *SUB) XhasOut(c *socket.Core) bool { return false }

func (s *SUB) Xsetsockopt(c *socket.Core, opt socket.Option, val any) error {
	s.ensureFilter(c)
	switch opt {
	case socket.OptSubscribe:
		prefix := val.([]byte)
		s.sf.Subscribe(prefix)
		s.broadcastControl(c, true, prefix)
	case socket.OptUnsubscribe:
		prefix := val.([]byte)
		s.sf.Unsubscribe(prefix)
		s.broadcastControl(c, false, prefix)
	default:
		return xserr.ENOTSUP.Error()
	}
	return nil
}

func (s *SUB) XattachPipe(c *socket.Core, conn socket.Conn) {
	s.ensureFilter(c)
	s.fq.Attach(conn.In)
	s.conns[conn.ID] = conn
	s.sf.Each(func(prefix []byte) {
		frame := s.controlFrame(c, true, prefix)
		if err := conn.Out.Write(frame); err == nil {
			conn.Out.Flush()
		}
	})
}

func (s *SUB) XreadActivated(c *socket.Core, conn socket.Conn)  {}
func (s *SUB) XwriteActivated(c *socket.Core, conn socket.Conn) {}

// Xhiccuped replays the cached subscription set to the pipe that just
// reconnected, matching the teacher reconnect idiom of re-establishing
// derived state after a hiccup.
func (s *SUB) Xhiccuped(c *socket.Core, conn socket.Conn) {
	s.XattachPipe(c, conn)
}

func (s *SUB) Xterminated(c *socket.Core, conn socket.Conn) {
	s.fq.Detach(conn.In)
	delete(s.conns, conn.ID)
}

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

// Package udp implements the reference datagram transport: a sender Engine
// that frames each outbound message behind a 6-byte sequence/offset header,
// and a receiver Engine that detects gaps and re-synchronizes on loss. UDP
// cannot carry upstream subscription traffic, so the sender fakes a
// subscribe-all into its own Session to unblock a PUB pattern sitting above
// it, and the receiver's OutEvent silently discards anything a SUB pattern
// tries to push back down.
package udp

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xslog"
)

const (
	headerLen  = 6
	noBoundary = 0xFFFF
	maxDatagram = 65507
)

func encodeHeader(seqNo uint32, offset uint16) []byte {
	b := make([]byte, headerLen)
	binary.BigEndian.PutUint32(b[0:4], seqNo)
	binary.BigEndian.PutUint16(b[4:6], offset)
	return b
}

func decodeHeader(b []byte) (seqNo uint32, offset uint16) {
	seqNo = binary.BigEndian.Uint32(b[0:4])
	offset = binary.BigEndian.Uint16(b[4:6])
	return seqNo, offset
}

// Transport dials and listens UDP "connections" — in the framework's sense,
// one Engine bound to one remote peer address.
type Transport struct {
	log xslog.Logger
}

// New returns a Transport logging through log.
func New(log xslog.Logger) *Transport {
	return &Transport{log: log.WithField("transport", "udp")}
}

// Dial opens a connected *net.UDPConn to address and returns a sender
// Engine, used by the connector side of a PUB-over-UDP pairing.
func (t *Transport) Dial(ctx context.Context, address string, opt socket.Options) (session.Engine, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	e := newSender(conn, opt, t.log)
	e.redialer = func(ctx context.Context) (session.Engine, error) {
		return t.Dial(ctx, address, opt)
	}
	return e, nil
}

// Listen opens a *net.UDPConn bound to address. This reference transport
// serves exactly one receiver Engine per bound address — UDP has no
// per-peer accept handshake, so the first Accept call claims the whole
// socket and subsequent calls block until ctx is canceled.
func (t *Transport) Listen(ctx context.Context, address string, opt socket.Options) (socket.Listener, error) {
	laddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return &Listener{conn: conn, opt: opt, log: t.log, claimed: make(chan struct{})}, nil
}

// Listener hands out exactly one receiver Engine, bound to the whole
// listening socket.
type Listener struct {
	conn    *net.UDPConn
	opt     socket.Options
	log     xslog.Logger
	claimed chan struct{}
}

// Accept returns the receiver Engine on its first call; later calls block
// until ctx is canceled, since this reference transport models one
// receiver per bound address.
func (l *Listener) Accept(ctx context.Context) (session.Engine, error) {
	select {
	case <-l.claimed:
		<-ctx.Done()
		return nil, ctx.Err()
	default:
		close(l.claimed)
		return newReceiver(l.conn, l.opt, l.log), nil
	}
}

// Close stops the listening socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

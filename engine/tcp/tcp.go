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

// Package tcp implements the reference stream transport: a net.Listener
// accept loop and a net.Dialer, each handing the connection to a fresh
// Engine that performs the SP greeting handshake when it is plugged. The
// tcp+tls scheme reuses the same Engine over a crypto/tls-wrapped net.Conn.
package tcp

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/socket"
	"github.com/crossroads-io/xscore/xslog"
)

// Transport dials and listens plain TCP connections, optionally wrapped in
// TLS when the Socket's options carry a non-nil TLSConfig.
type Transport struct {
	log xslog.Logger
}

// New returns a Transport logging through log.
func New(log xslog.Logger) *Transport {
	return &Transport{log: log.WithField("transport", "tcp")}
}

// Listen opens a net.Listener on address, wrapping it in tls.NewListener
// when opt carries a TLSConfig.
func (t *Transport) Listen(ctx context.Context, address string, opt socket.Options) (socket.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil {
		ln = tls.NewListener(ln, opt.TLSConfig)
	}
	return &Listener{ln: ln, opt: opt, log: t.log}, nil
}

// Dial opens a net.Conn to address, wrapping it in a TLS client handshake
// when opt carries a TLSConfig. The returned Engine retains a redialer
// closure so a later connection drop can be retried by the Session's
// reconnect back-off.
func (t *Transport) Dial(ctx context.Context, address string, opt socket.Options) (session.Engine, error) {
	conn, err := t.dial(ctx, address, opt)
	if err != nil {
		return nil, err
	}
	e := newEngine(conn, opt, t.log)
	e.redialer = func(ctx context.Context) (session.Engine, error) {
		return t.Dial(ctx, address, opt)
	}
	return e, nil
}

func (t *Transport) dial(ctx context.Context, address string, opt socket.Options) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil {
		tconn := tls.Client(conn, opt.TLSConfig)
		if err := tconn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return tconn, nil
	}
	return conn, nil
}

// Listener accepts inbound connections, wrapping each in a session.Engine;
// the greeting handshake runs later, in the Engine's Plug.
type Listener struct {
	ln  net.Listener
	opt socket.Options
	log xslog.Logger
}

// Accept blocks for the next inbound connection. ctx cancellation closes the
// listener to unblock a pending Accept call.
func (l *Listener) Accept(ctx context.Context) (session.Engine, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.ln.Close()
		case <-done:
		}
	}()

	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return newEngine(conn, l.opt, l.log), nil
}

// Close stops the listener, unblocking any pending Accept.
func (l *Listener) Close() error {
	return l.ln.Close()
}

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

// Package socket implements the common Socket base: option storage, pipe
// bookkeeping, command dispatch and the transport-agnostic Bind/Connect/
// Shutdown/Send/Recv/Term surface shared by every pattern type.
package socket

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/crossroads-io/xscore/filter"
	"github.com/crossroads-io/xscore/iothread"
	"github.com/crossroads-io/xscore/mailbox"
	"github.com/crossroads-io/xscore/pipe"
	"github.com/crossroads-io/xscore/session"
	"github.com/crossroads-io/xscore/wire"
	"github.com/crossroads-io/xscore/xserr"
	"github.com/crossroads-io/xscore/xslog"
)

// Conn is the pipe pair a Pattern sees for one attached peer: In is read by
// the socket (engine-to-socket direction), Out is written by the socket
// (socket-to-engine direction).
type Conn struct {
	ID  uint32
	In  *pipe.Pipe
	Out *pipe.Pipe
}

// Pattern is the per-socket-type vtable every concrete pattern (REQ, REP,
// PUB, ...) implements. Core dispatches the public API onto it.
type Pattern interface {
	Xsend(c *Core, m wire.Message, more bool) error
	Xrecv(c *Core) (wire.Message, bool, error)
	XhasIn(c *Core) bool
	XhasOut(c *Core) bool
	Xsetsockopt(c *Core, opt Option, val any) error
	XattachPipe(c *Core, conn Conn)
	XreadActivated(c *Core, conn Conn)
	XwriteActivated(c *Core, conn Conn)
	Xhiccuped(c *Core, conn Conn)
	Xterminated(c *Core, conn Conn)
}

// Listener abstracts an accept loop over an arbitrary transport.
type Listener interface {
	Accept(ctx context.Context) (session.Engine, error)
	Close() error
}

// Transport is a registered endpoint scheme (tcp, tcp+tls, udp, ...).
type Transport interface {
	Listen(ctx context.Context, address string, opt Options) (Listener, error)
	Dial(ctx context.Context, address string, opt Options) (session.Engine, error)
}

// Core is the shared state every pattern Socket embeds.
type Core struct {
	mu   sync.Mutex
	opt  Options
	pat  Pattern
	log  xslog.Logger
	mbx  *mailbox.Mailbox
	thr  *iothread.Thread

	transports map[string]Transport
	filters    *filter.Registry

	conns     map[uint32]Conn
	listeners map[string]Listener
	sessions  map[string]*session.Session
	nextConn  uint32

	ctx    context.Context
	cancel context.CancelFunc

	terminating bool
	shutdown    map[string]bool // endpoints explicitly shut down

	metrics MetricsSink
}

// MetricsSink is the narrow set of reporting calls Core needs from a
// metrics collector, kept here (rather than importing the metrics package)
// so Core has no dependency on any particular metrics backend.
type MetricsSink interface {
	ObservePipeDepth(socketType, direction string, depth int64)
	SetMailboxLen(actor string, n int)
	ReconnectFunc(socketType string) func()
	SurveyTimeoutFunc(socketType string) func()
}

// timeoutReporter is satisfied by pattern types (SURVEYOR) that report an
// expired deadline; matched by duck typing to avoid Core importing pattern.
type timeoutReporter interface {
	SetOnTimeout(func())
}

// SetMetrics wires a metrics collector into this socket: every pipe
// activation reports depth, and reconnect/survey-timeout hooks are
// installed on new sessions and on the pattern if it reports timeouts.
func (c *Core) SetMetrics(m MetricsSink) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
	if tr, ok := c.pat.(timeoutReporter); ok && m != nil {
		tr.SetOnTimeout(m.SurveyTimeoutFunc(fmt.Sprintf("%d", c.opt.Type)))
	}
}

// New returns a fresh Core bound to the given Pattern, I/O thread, and
// transport registry.
func New(parent context.Context, pat Pattern, opt Options, thr *iothread.Thread, transports map[string]Transport, filters *filter.Registry, log xslog.Logger) *Core {
	ctx, cancel := context.WithCancel(parent)
	return &Core{
		opt:        opt,
		pat:        pat,
		log:        log.WithField("actor", "socket").WithField("type", fmt.Sprintf("%d", opt.Type)),
		mbx:        mailbox.New(),
		thr:        thr,
		transports: transports,
		filters:    filters,
		conns:      make(map[uint32]Conn),
		listeners:  make(map[string]Listener),
		sessions:   make(map[string]*session.Session),
		shutdown:   make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func splitEndpoint(endpoint string) (scheme, address string, err error) {
	i := strings.Index(endpoint, "://")
	if i < 0 {
		return "", "", xserr.EINVAL.Error()
	}
	return endpoint[:i], endpoint[i+3:], nil
}

// Bind starts listening on endpoint and spawns an accept loop that attaches
// one Session+Conn per accepted Engine.
func (c *Core) Bind(endpoint string) error {
	scheme, address, err := splitEndpoint(endpoint)
	if err != nil {
		return err
	}
	if scheme == "ipc" {
		return xserr.ENOTSUP.Error()
	}
	t, ok := c.transports[scheme]
	if !ok {
		return xserr.EPROTONOSUPPORT.Error()
	}

	c.mu.Lock()
	if _, exists := c.listeners[endpoint]; exists {
		c.mu.Unlock()
		return xserr.EADDRINUSE.Error()
	}
	c.mu.Unlock()

	l, err := t.Listen(c.ctx, address, c.opt)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.listeners[endpoint] = l
	c.mu.Unlock()

	go func() {
		for {
			e, err := l.Accept(c.ctx)
			if err != nil {
				return
			}
			c.attach(endpoint, false, e)
		}
	}()
	return nil
}

// Connect dials endpoint once, with the Session itself driving reconnect
// back-off via session.ReconnectPolicy on failure.
func (c *Core) Connect(endpoint string) error {
	scheme, address, err := splitEndpoint(endpoint)
	if err != nil {
		return err
	}
	if scheme == "ipc" {
		return xserr.ENOTSUP.Error()
	}
	t, ok := c.transports[scheme]
	if !ok {
		return xserr.EPROTONOSUPPORT.Error()
	}

	e, err := t.Dial(c.ctx, address, c.opt)
	if err != nil {
		return err
	}
	c.attach(endpoint, true, e)
	return nil
}

func (c *Core) attach(endpoint string, connector bool, e session.Engine) {
	c.mu.Lock()
	if c.shutdown[endpoint] {
		c.mu.Unlock()
		return
	}
	id := c.nextConn
	c.nextConn++
	c.mu.Unlock()

	a, b := pipe.NewPair(c.opt.RcvHWM, c.opt.SndHWM, 16, c.mbx, c.thr.Mailbox())
	policy := session.ReconnectPolicy{Initial: c.opt.ReconnectIvl, Max: c.opt.ReconnectMax}
	sess := session.New(c.thr, a, b, connector, endpoint, policy, c.opt.Linger, c.log)

	conn := Conn{ID: id, In: a, Out: b}

	c.mu.Lock()
	c.conns[id] = conn
	c.sessions[endpoint] = sess
	c.mu.Unlock()

	c.mu.Lock()
	m := c.metrics
	c.mu.Unlock()
	if m != nil {
		sess.SetOnReconnect(m.ReconnectFunc(fmt.Sprintf("%d", c.opt.Type)))
	}

	sess.Plug(e)
	c.pat.XattachPipe(c, conn)
	c.mbx.Send(mailbox.Command{Type: mailbox.ActivateRead, Payload: id})
}

// Shutdown tears down the named bound/connected endpoint: already-queued
// messages keep draining (subject to linger); once its pipes are
// terminated, a DONTWAIT send with no other pipe to use returns EAGAIN.
func (c *Core) Shutdown(endpoint string) error {
	c.mu.Lock()
	c.shutdown[endpoint] = true
	l, hasListener := c.listeners[endpoint]
	sess, hasSession := c.sessions[endpoint]
	delete(c.listeners, endpoint)
	delete(c.sessions, endpoint)
	c.mu.Unlock()

	if hasListener {
		_ = l.Close()
	}
	if hasSession {
		sess.Terminate()
	}
	return nil
}

// Send dispatches to the Pattern, honoring SNDTIMEO/DONTWAIT via the
// Socket's own mailbox-based wait.
func (c *Core) Send(ctx context.Context, m wire.Message, more, dontwait bool) error {
	if c.Terminating() {
		return xserr.ETERM.Error()
	}
	err := c.pat.Xsend(c, m, more)
	if err == nil || dontwait || xserr.CodeOf(err) != xserr.EAGAIN {
		return err
	}
	deadline := c.opt.SndTimeo
	return c.waitRetry(ctx, deadline, func() error { return c.pat.Xsend(c, m, more) })
}

// Recv dispatches to the Pattern, honoring RCVTIMEO/DONTWAIT.
func (c *Core) Recv(ctx context.Context, dontwait bool) (wire.Message, bool, error) {
	if c.Terminating() {
		return wire.Message{}, false, xserr.ETERM.Error()
	}
	m, more, err := c.pat.Xrecv(c)
	if err == nil || dontwait || xserr.CodeOf(err) != xserr.EAGAIN {
		return m, more, err
	}
	deadline := c.opt.RcvTimeo
	var rm wire.Message
	var rmore bool
	rerr := c.waitRetry(ctx, deadline, func() error {
		rm, rmore, err = c.pat.Xrecv(c)
		return err
	})
	return rm, rmore, rerr
}

func (c *Core) waitRetry(ctx context.Context, timeout time.Duration, try func() error) error {
	wctx := ctx
	var cancel context.CancelFunc
	if timeout >= 0 {
		wctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for {
		_, err := c.mbx.Recv(wctx, -1)
		if err != nil {
			if xserr.CodeOf(err) == xserr.EINTR || wctx.Err() != nil {
				if err2 := try(); err2 == nil || xserr.CodeOf(err2) != xserr.EAGAIN {
					return err2
				}
				return xserr.EAGAIN.Error()
			}
			return err
		}
		if err := try(); err == nil || xserr.CodeOf(err) != xserr.EAGAIN {
			return err
		}
	}
}

// SetSockOpt routes to the Pattern first (for pattern-specific options such
// as SUBSCRIBE); generic options are handled here.
func (c *Core) SetSockOpt(opt Option, val any) error {
	switch opt {
	case OptLinger:
		c.opt.Linger = val.(time.Duration)
	case OptSndHWM:
		c.opt.SndHWM = val.(int64)
	case OptRcvHWM:
		c.opt.RcvHWM = val.(int64)
	case OptSndTimeo:
		c.opt.SndTimeo = val.(time.Duration)
	case OptRcvTimeo:
		c.opt.RcvTimeo = val.(time.Duration)
	case OptReconnectIvl:
		c.opt.ReconnectIvl = val.(time.Duration)
	case OptReconnectIvlMax:
		c.opt.ReconnectMax = val.(time.Duration)
	case OptBacklog:
		c.opt.Backlog = val.(int)
	case OptIPv4Only:
		c.opt.IPv4Only = val.(bool)
	case OptProtocol:
		c.opt.Protocol = val.(Protocol)
	case OptMaxMsgSize:
		c.opt.MaxMsgSize = val.(int64)
	case OptSurveyTimeout:
		c.opt.SurveyTimeout = val.(time.Duration)
	case OptTLSConfig:
		cfg, ok := val.(*tls.Config)
		if !ok {
			return xserr.EINVAL.Error()
		}
		c.opt.TLSConfig = cfg
	default:
		return c.pat.Xsetsockopt(c, opt, val)
	}
	return nil
}

// GetSockOpt reads back a generic option; pattern-specific reads are not
// exposed (write-only, matching SUBSCRIBE/UNSUBSCRIBE semantics).
func (c *Core) GetSockOpt(opt Option) (any, error) {
	switch opt {
	case OptType:
		return c.opt.Type, nil
	case OptLinger:
		return c.opt.Linger, nil
	case OptSndHWM:
		return c.opt.SndHWM, nil
	case OptRcvHWM:
		return c.opt.RcvHWM, nil
	case OptSurveyTimeout:
		return c.opt.SurveyTimeout, nil
	default:
		return nil, xserr.ENOTSUP.Error()
	}
}

// Term begins teardown of every endpoint and marks the socket terminating;
// subsequent calls return ETERM. Restartable on EINTR.
func (c *Core) Term(ctx context.Context) error {
	c.mu.Lock()
	if c.terminating {
		c.mu.Unlock()
		return nil
	}
	c.terminating = true
	endpoints := make([]string, 0, len(c.sessions)+len(c.listeners))
	for ep := range c.sessions {
		endpoints = append(endpoints, ep)
	}
	for ep := range c.listeners {
		endpoints = append(endpoints, ep)
	}
	c.mu.Unlock()

	for _, ep := range endpoints {
		_ = c.Shutdown(ep)
	}
	c.cancel()

	select {
	case <-ctx.Done():
		c.terminating = false
		return xserr.EINTR.Error()
	case <-time.After(c.opt.Linger):
	}
	return nil
}

// Terminating reports whether Term has been called.
func (c *Core) Terminating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminating
}

// Options returns the current (mutable, internally synchronized) option set.
func (c *Core) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opt
}

// Log returns the socket's scoped logger, for pattern implementations.
func (c *Core) Log() xslog.Logger { return c.log }

// Filters returns the Context-wide filter registry.
func (c *Core) Filters() *filter.Registry { return c.filters }

// Mailbox exposes the socket's own wake channel, for pattern
// implementations that need to post activation commands to themselves.
func (c *Core) Mailbox() *mailbox.Mailbox { return c.mbx }

// Conns returns a snapshot of the currently attached connections.
func (c *Core) Conns() []Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Conn, 0, len(c.conns))
	for _, cn := range c.conns {
		out = append(out, cn)
	}
	return out
}

// DispatchReadActivated is called by the owning I/O thread when a pipe
// crosses into readability; forwarded to the Pattern and used to wake any
// blocked Recv.
func (c *Core) DispatchReadActivated(conn Conn) {
	c.pat.XreadActivated(c, conn)
	c.reportPipeDepth(conn)
	c.mbx.Send(mailbox.Command{Type: mailbox.ActivateRead, Payload: conn.ID})
}

// DispatchWriteActivated mirrors DispatchReadActivated for credit becoming
// available on an outbound pipe.
func (c *Core) DispatchWriteActivated(conn Conn) {
	c.pat.XwriteActivated(c, conn)
	c.reportPipeDepth(conn)
	c.mbx.Send(mailbox.Command{Type: mailbox.ActivateWrite, Payload: conn.ID})
}

func (c *Core) reportPipeDepth(conn Conn) {
	c.mu.Lock()
	m := c.metrics
	c.mu.Unlock()
	if m == nil {
		return
	}
	typeName := fmt.Sprintf("%d", c.opt.Type)
	m.ObservePipeDepth(typeName, "in", conn.In.Depth())
	m.ObservePipeDepth(typeName, "out", conn.Out.Depth())
	m.SetMailboxLen(typeName, c.mbx.Len())
}

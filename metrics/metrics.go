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

// Package metrics wraps the prometheus collectors a Context and its Sockets
// report through: pipe depth, mailbox queue length, reconnect attempts and
// survey timeouts. A Collector is optional everywhere it's accepted — a nil
// *Collector on any reporting call is a no-op, so wiring it in never changes
// behavior, only observability.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds the registered collector set. Construct one with New and
// pass it to socket.Core.SetMetrics, session.Session.SetOnReconnect (via
// Collector.ReconnectFunc) and pattern.SURVEYOR.SetOnTimeout (via
// Collector.SurveyTimeoutFunc).
type Collector struct {
	pipeDepth      *prometheus.GaugeVec
	mailboxLen     *prometheus.GaugeVec
	reconnects     *prometheus.CounterVec
	surveyTimeouts *prometheus.CounterVec
}

// New creates and registers the collector set against reg. Passing
// prometheus.DefaultRegisterer matches the package-level convenience
// functions most callers reach for.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pipeDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xscore",
			Subsystem: "pipe",
			Name:      "depth",
			Help:      "Messages written but not yet read on a pipe.",
		}, []string{"socket_type", "direction"}),
		mailboxLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "xscore",
			Subsystem: "mailbox",
			Name:      "queue_length",
			Help:      "Pending commands queued on a mailbox.",
		}, []string{"actor"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xscore",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts scheduled after an Engine error.",
		}, []string{"socket_type"}),
		surveyTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xscore",
			Subsystem: "surveyor",
			Name:      "timeouts_total",
			Help:      "Surveys that expired before every response arrived.",
		}, []string{"socket_type"}),
	}
	reg.MustRegister(c.pipeDepth, c.mailboxLen, c.reconnects, c.surveyTimeouts)
	return c
}

// ObservePipeDepth records the current depth of one direction of a pipe.
func (c *Collector) ObservePipeDepth(socketType, direction string, depth int64) {
	if c == nil {
		return
	}
	c.pipeDepth.WithLabelValues(socketType, direction).Set(float64(depth))
}

// SetMailboxLen records the current queue length of a mailbox.
func (c *Collector) SetMailboxLen(actor string, n int) {
	if c == nil {
		return
	}
	c.mailboxLen.WithLabelValues(actor).Set(float64(n))
}

// IncReconnect bumps the reconnect counter for socketType.
func (c *Collector) IncReconnect(socketType string) {
	if c == nil {
		return
	}
	c.reconnects.WithLabelValues(socketType).Inc()
}

// IncSurveyTimeout bumps the survey-timeout counter for socketType.
func (c *Collector) IncSurveyTimeout(socketType string) {
	if c == nil {
		return
	}
	c.surveyTimeouts.WithLabelValues(socketType).Inc()
}

// ReconnectFunc returns a closure suitable for session.Session.SetOnReconnect.
func (c *Collector) ReconnectFunc(socketType string) func() {
	return func() { c.IncReconnect(socketType) }
}

// SurveyTimeoutFunc returns a closure suitable for pattern.SURVEYOR.SetOnTimeout.
func (c *Collector) SurveyTimeoutFunc(socketType string) func() {
	return func() { c.IncSurveyTimeout(socketType) }
}

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

package socket

import (
	"crypto/tls"
	"time"

	"github.com/crossroads-io/xscore/filter"
)

// Option identifies a generic socket option.
type Option int

const (
	OptType Option = iota
	OptLinger
	OptSndHWM
	OptRcvHWM
	OptSndTimeo
	OptRcvTimeo
	OptReconnectIvl
	OptReconnectIvlMax
	OptBacklog
	OptIPv4Only
	OptProtocol
	OptSubscribe
	OptUnsubscribe
	OptFilter
	OptSurveyTimeout
	OptMaxMsgSize
	OptTLSConfig
)

// Protocol selects the wire framing dialect.
type Protocol int

const (
	ProtocolLegacy  Protocol = 1 // 0MQ/2.1 wire compatibility
	ProtocolCurrent Protocol = 3
)

// Options holds the per-Socket configuration. Transports and engines
// receive it by value, which shares the TLSConfig pointer; Clone copies
// that too.
type Options struct {
	Type Kind

	Linger        time.Duration // zero or negative means no linger wait; there is no infinite setting
	SndHWM        int64
	RcvHWM        int64
	SndTimeo      time.Duration // -1 means infinite
	RcvTimeo      time.Duration
	ReconnectIvl  time.Duration
	ReconnectMax  time.Duration
	Backlog       int
	IPv4Only      bool
	Protocol      Protocol
	FilterID      filter.ID
	SurveyTimeout time.Duration // 0 means no timeout
	MaxMsgSize    int64

	TLSConfig *tls.Config
}

// Default returns the option set a freshly-created Socket starts with.
func Default(kind Kind) Options {
	return Options{
		Type:         kind,
		Linger:       time.Second,
		SndHWM:       1000,
		RcvHWM:       1000,
		SndTimeo:     -1,
		RcvTimeo:     -1,
		ReconnectIvl: 100 * time.Millisecond,
		ReconnectMax: 30 * time.Second,
		Backlog:      100,
		Protocol:     ProtocolCurrent,
		FilterID:     filter.Prefix,
	}
}

// Clone returns a deep copy, including its own copy of TLSConfig.
func (o Options) Clone() Options {
	cp := o
	if o.TLSConfig != nil {
		cp.TLSConfig = o.TLSConfig.Clone()
	}
	return cp
}

// Kind names a pattern socket type, used both for option reporting and for
// the SP greeting role/pattern byte lookup.
type Kind int

const (
	KindXREQ Kind = iota
	KindREQ
	KindXREP
	KindREP
	KindXPUB
	KindPUB
	KindXSUB
	KindSUB
	KindPUSH
	KindPULL
	KindXSURVEYOR
	KindSURVEYOR
	KindXRESPONDENT
	KindRESPONDENT
)

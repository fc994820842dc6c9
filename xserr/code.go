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

// Package xserr defines the error-code taxonomy used across the messaging
// core: user errors, transient transport errors and fatal invariant
// violations all carry a stable Code so callers can branch on behavior
// rather than string-matching messages.
package xserr

import "strconv"

// Code is a small numeric error code, analogous to an errno value.
type Code uint16

const (
	Unknown Code = iota
	EAGAIN
	EFSM
	ENOTSUP
	EPROTONOSUPPORT
	ENOCOMPATPROTO
	EADDRINUSE
	EADDRNOTAVAIL
	ECONNREFUSED
	ENETDOWN
	ETIMEDOUT
	ETERM
	EMFILE
	EINVAL
	EFAULT
	EINTR
)

var names = map[Code]string{
	Unknown:         "unknown error",
	EAGAIN:          "resource temporarily unavailable",
	EFSM:            "operation not valid in current state",
	ENOTSUP:         "operation not supported",
	EPROTONOSUPPORT: "protocol not supported",
	ENOCOMPATPROTO:  "incompatible protocol version or pattern",
	EADDRINUSE:      "address already in use",
	EADDRNOTAVAIL:   "address not available",
	ECONNREFUSED:    "connection refused",
	ENETDOWN:        "network is down",
	ETIMEDOUT:       "timed out",
	ETERM:           "context terminated",
	EMFILE:          "too many open sockets",
	EINVAL:          "invalid argument",
	EFAULT:          "bad address",
	EINTR:           "interrupted",
}

// String returns the registered message for the code, or a numeric fallback.
func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "error code " + strconv.Itoa(int(c))
}

// Error promotes the code to an Error with no parent.
func (c Code) Error() Error {
	return New(c, c.String())
}

// Errorf promotes the code to an Error wrapping the given parent errors.
func (c Code) Errorf(parents ...error) Error {
	return New(c, c.String(), parents...)
}

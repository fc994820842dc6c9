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

package xserr

import "strings"

// Error is a code-carrying error with an optional parent chain, so a
// transport-level error (e.g. a *net.OpError) can be wrapped while still
// exposing a stable Code to callers.
type Error interface {
	error
	Code() Code
	Is(Code) bool
	Parents() []error
}

type xsError struct {
	code    Code
	message string
	parents []error
}

// New builds an Error with the given code, message and optional parents.
func New(code Code, message string, parents ...error) Error {
	return &xsError{code: code, message: message, parents: parents}
}

func (e *xsError) Error() string {
	if len(e.parents) == 0 {
		return e.message
	}
	parts := make([]string, 0, len(e.parents)+1)
	parts = append(parts, e.message)
	for _, p := range e.parents {
		if p != nil {
			parts = append(parts, p.Error())
		}
	}
	return strings.Join(parts, ": ")
}

func (e *xsError) Code() Code { return e.code }

func (e *xsError) Is(c Code) bool { return e.code == c }

func (e *xsError) Parents() []error { return e.parents }

// CodeOf extracts the Code from err if err is itself an Error, and Unknown
// otherwise; wrapped errors are not unwrapped.
func CodeOf(err error) Code {
	if err == nil {
		return Unknown
	}
	if e, ok := err.(Error); ok {
		return e.Code()
	}
	return Unknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

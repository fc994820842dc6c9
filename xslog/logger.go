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

// Package xslog provides the structured, per-actor logger used across the
// messaging core. Every actor (I/O thread, socket, reaper, engine) clones a
// field-scoped logger rather than writing to a shared global one.
package xslog

import (
	"github.com/sirupsen/logrus"
)

// Logger is the structured logging surface used by every actor.
type Logger interface {
	WithField(key string, value any) Logger
	WithFields(fields map[string]any) Logger
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	// Fatal logs then terminates the process, matching the source's
	// posture toward invariant violations: there is no recovery path.
	Fatal(msg string)
	// Panic logs then panics, used for command-stream / pipe-protocol
	// corruption that the source treats as an assertion failure.
	Panic(msg string)
}

type logger struct {
	entry *logrus.Entry
}

// New returns a Logger writing structured entries through logrus, at the
// given minimum level.
func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logger{entry: logrus.NewEntry(l)}
}

func (l *logger) WithField(key string, value any) Logger {
	return &logger{entry: l.entry.WithField(key, value)}
}

func (l *logger) WithFields(fields map[string]any) Logger {
	return &logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logger) Debug(msg string)   { l.entry.Debug(msg) }
func (l *logger) Info(msg string)    { l.entry.Info(msg) }
func (l *logger) Warning(msg string) { l.entry.Warning(msg) }
func (l *logger) Error(msg string)   { l.entry.Error(msg) }
func (l *logger) Fatal(msg string)   { l.entry.Fatal(msg) }
func (l *logger) Panic(msg string)   { l.entry.Panic(msg) }

// Discard returns a Logger that drops everything, used as the zero-value
// default for actors constructed without an explicit logger (tests).
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return &logger{entry: logrus.NewEntry(l)}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

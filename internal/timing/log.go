// Copyright (C) 2026 parabench contributors.
// All rights reserved. This file is part of parabench.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timing

// Log owns this rank's time/ctime event histories and the core-time
// nesting stack. It is process-local and single-threaded, so it needs no
// locking.
type Log struct {
	rank int

	timeEvents     []TimeEvent
	nextTimeID     int
	coreTimeEvents []CoreTimeEvent
	nextCTimeID    int

	stack []*CoreTimeEvent
}

func NewLog(rank int) *Log {
	return &Log{rank: rank}
}

// RecordTime appends a completed `time` region measurement.
func (l *Log) RecordTime(label string, seconds float64) {
	l.timeEvents = append(l.timeEvents, TimeEvent{
		Rank: l.rank, ID: l.nextTimeID, Label: label, Seconds: seconds,
	})
	l.nextTimeID++
}

// PushCTime opens a new `ctime` region and puts it on the nesting stack.
func (l *Log) PushCTime(label string) {
	e := &CoreTimeEvent{Rank: l.rank, ID: l.nextCTimeID, Label: label}
	l.nextCTimeID++
	l.stack = append(l.stack, e)
}

// PopCTime closes the innermost open `ctime` region and appends it to the
// event log. It is an error (caller bug, not a user error) to call this
// with an empty stack.
func (l *Log) PopCTime() CoreTimeEvent {
	n := len(l.stack)
	e := l.stack[n-1]
	l.stack = l.stack[:n-1]
	l.coreTimeEvents = append(l.coreTimeEvents, *e)
	return *e
}

// DumpCoreTime folds one I/O observation into every `ctime` frame currently
// open, innermost and outermost alike.
func (l *Log) DumpCoreTime(ct CoreTime) {
	for _, e := range l.stack {
		e.dump(ct)
	}
}

// OpenCTimeDepth reports how many `ctime` regions are currently nested.
func (l *Log) OpenCTimeDepth() int { return len(l.stack) }

// CurrentCoreTime returns a snapshot of the innermost open `ctime` region,
// for progress reporting. The second return value is false if no `ctime`
// region is currently open.
func (l *Log) CurrentCoreTime() (CoreTimeEvent, bool) {
	if len(l.stack) == 0 {
		return CoreTimeEvent{}, false
	}
	return *l.stack[len(l.stack)-1], true
}

func (l *Log) TimeEvents() []TimeEvent         { return l.timeEvents }
func (l *Log) CoreTimeEvents() []CoreTimeEvent { return l.coreTimeEvents }

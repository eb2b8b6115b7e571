/*
NAME
  monitor.go

DESCRIPTION
  monitor.go implements the bounded single-writer/single-reader mailbox
  for the optional live monitor-output worker thread (spec.md §5).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pipeline

import (
	"sync"

	"github.com/ausocean/utils/logging"
)

// Monitor is the mailbox between the primary live-output stage (the one
// writer) and an optional second goroutine mirroring the signal to a
// monitoring speaker (the one reader), per spec.md §5. Send blocks the
// caller when the mailbox is full rather than dropping the frame: the
// monitor must receive the identical sample sequence, in the same
// order, as the primary output, and the spec forbids silently papering
// over a falling-behind monitor with a drop. The only way Send returns
// without enqueuing is if Stop has been called, which unblocks any
// pending or future Send once the monitor side has genuinely given up.
type Monitor struct {
	ch   chan []byte
	log  logging.Logger
	stop chan struct{}
	once sync.Once
}

// NewMonitor returns a Monitor with the given mailbox depth (number of
// pre-rendered frames it can hold before Send starts blocking).
func NewMonitor(depth int, l logging.Logger) *Monitor {
	if depth < 1 {
		depth = 1
	}
	return &Monitor{ch: make(chan []byte, depth), log: l, stop: make(chan struct{})}
}

// Send enqueues frame for the monitor goroutine to drain, blocking until
// there is room. If Stop has been called, Send returns immediately
// instead of blocking forever on a monitor that is no longer draining,
// logging that the frame was discarded for that reason (not a
// mailbox-full drop).
func (m *Monitor) Send(frame []byte) {
	select {
	case m.ch <- frame:
	case <-m.stop:
		if m.log != nil {
			m.log.Warning("monitor stopped, discarding frame", "bytes", len(frame))
		}
	}
}

// Frames returns the channel the monitor goroutine should range over
// until Close is called.
func (m *Monitor) Frames() <-chan []byte { return m.ch }

// Stop releases any Send call blocked on a mailbox nobody is draining
// any more, for use when the monitor goroutine itself exits early (for
// example, its output device failed). Idempotent.
func (m *Monitor) Stop() { m.once.Do(func() { close(m.stop) }) }

// Close closes the mailbox, letting the monitor goroutine drain what
// remains and exit.
func (m *Monitor) Close() { close(m.ch) }

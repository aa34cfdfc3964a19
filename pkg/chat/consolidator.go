// Package chat formalizes the streaming-chat consolidation ordering
// guarantee from spec §5 ("producers must never interleave streaming
// chunks of two sessions under the same (sender, session_id) pair") as a
// small, independently-testable component in front of
// pkg/state.ChatState, rather than leaving callers to get the discipline
// right by convention.
package chat

import (
	"sync"

	"github.com/voxdeck/voxdeck/pkg/state"
)

// Sink is the minimal surface Consolidator needs from a chat message
// store. *state.ChatState satisfies it.
type Sink interface {
	Push(msg state.ChatMessage)
}

type key struct {
	sender    string
	sessionID string
}

// Delta is one incremental chunk of a streaming reply. EndOfTurn marks the
// final delta for this (Sender, SessionID) pair; its own Content may be
// empty.
type Delta struct {
	Sender      string
	SessionID   string
	Role        state.Role
	Content     string
	TimestampMs int64
	EndOfTurn   bool
}

// Consolidator accumulates Deltas keyed by (Sender, SessionID), independent
// of arrival order relative to other keys, and on every delta forwards a
// message to a Sink carrying the open message's metadata and that delta's
// own text. Two keys may interleave arbitrarily —
// each is tracked in its own slot, so a chunk for session A arriving
// between two chunks of session B never gets attributed to B.
type Consolidator struct {
	mu   sync.Mutex
	open map[key]*state.ChatMessage
	sink Sink
}

// NewConsolidator constructs a Consolidator that forwards finalized/running
// messages to sink.
func NewConsolidator(sink Sink) *Consolidator {
	return &Consolidator{
		open: make(map[key]*state.ChatMessage),
		sink: sink,
	}
}

// Push accumulates d into the open message for (d.Sender, d.SessionID),
// starting a new one if none is open or the prior one for this key already
// closed, and forwards a ChatMessage with the open message's metadata and
// d's own Content (marked Streaming=true until d.EndOfTurn) to the sink.
func (c *Consolidator) Push(d Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{sender: d.Sender, sessionID: d.SessionID}
	msg, open := c.open[k]
	if !open {
		fresh := state.ChatMessage{
			Sender:      d.Sender,
			Role:        d.Role,
			TimestampMs: d.TimestampMs,
			Streaming:   true,
		}
		if d.SessionID != "" {
			sid := d.SessionID
			fresh.SessionID = &sid
		}
		msg = &fresh
		c.open[k] = msg
	}

	msg.Content += d.Content
	msg.TimestampMs = d.TimestampMs
	if d.EndOfTurn {
		msg.Streaming = false
	}

	// Forward only this delta's own content: the sink (state.ChatState)
	// performs the append itself when consolidating into the existing
	// open message. Forwarding the accumulated msg.Content here would
	// double it.
	out := *msg
	out.Content = d.Content
	if c.sink != nil {
		c.sink.Push(out)
	}

	if d.EndOfTurn {
		delete(c.open, k)
	}
}

// OpenCount reports how many (sender, session) pairs currently have an
// unfinished streaming message. Useful for tests and diagnostics.
func (c *Consolidator) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.open)
}

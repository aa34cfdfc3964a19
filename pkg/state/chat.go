package state

import "sync"

// Role identifies who authored a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage mirrors a single turn of chat, with enough metadata for
// streaming-reply consolidation (see ChatState.Push).
type ChatMessage struct {
	Content     string
	Sender      string
	Role        Role
	TimestampMs int64
	Streaming   bool
	SessionID   *string
}

const defaultChatCap = 500

// ChatState holds the consolidated chat history. Pushing a message whose
// sender and non-empty session id match a still-streaming earlier message
// (the newest such one) appends to it rather than creating a new
// entry; this is the only place in the system that decides how a streaming
// LLM reply becomes a single visible message.
type ChatState struct {
	mu      sync.RWMutex
	items   []ChatMessage
	maxSize int
	dirty   bool
}

// NewChatState creates a ChatState capped at maxSize messages (0 uses the
// default cap of 500).
func NewChatState(maxSize int) *ChatState {
	if maxSize <= 0 {
		maxSize = defaultChatCap
	}
	return &ChatState{maxSize: maxSize}
}

// consolidates reports whether incoming should be merged into existing
// rather than pushed as a new message. Per the testable invariant, this
// depends only on existing still being Streaming and both sharing a
// (sender, session id) pair — incoming's own Streaming flag decides what
// happens to the merge (see Push), not whether it happens.
func consolidates(existing, incoming ChatMessage) bool {
	if existing.SessionID == nil || incoming.SessionID == nil {
		return false
	}
	if *existing.SessionID != *incoming.SessionID {
		return false
	}
	if existing.Sender != incoming.Sender {
		return false
	}
	return existing.Streaming
}

// Push consolidates a continuation into the prior message when (sender,
// session id) match and the prior message is still streaming: its content
// is appended, never replaced. If incoming is terminal (Streaming=false),
// the prior message's Streaming flag flips false and its timestamp is
// refreshed, closing out the visible message. Otherwise msg is pushed as a
// new message, evicting the oldest once the cap is exceeded.
func (c *ChatState) Push(msg ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Search back-to-front for any still-open message matching (sender,
	// session id), not just the most recently pushed one: two sessions
	// interleaving their streaming chunks under this sender/producer
	// discipline must still consolidate independently (see scenario S3).
	for i := len(c.items) - 1; i >= 0; i-- {
		existing := &c.items[i]
		if consolidates(*existing, msg) {
			existing.Content += msg.Content
			existing.TimestampMs = msg.TimestampMs
			if !msg.Streaming {
				existing.Streaming = false
			}
			c.dirty = true
			return
		}
	}

	c.items = append(c.items, msg)
	if len(c.items) > c.maxSize {
		c.items = c.items[len(c.items)-c.maxSize:]
	}
	c.dirty = true
}

// ReadIfDirty returns a snapshot and true only if the state changed since
// the last call.
func (c *ChatState) ReadIfDirty() ([]ChatMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil, false
	}
	c.dirty = false
	return c.snapshotLocked(), true
}

// ReadAll returns a snapshot unconditionally.
func (c *ChatState) ReadAll() []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *ChatState) snapshotLocked() []ChatMessage {
	out := make([]ChatMessage, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of distinct (post-consolidation) messages held.
func (c *ChatState) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

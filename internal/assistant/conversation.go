package assistant

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxHistory bounds a conversation when no limit is configured.
const DefaultMaxHistory = 10

// Message is one turn of a conversation.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Export is a serialisable copy of a conversation.
type Export struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	ExportedAt    time.Time `json:"exported_at"`
	TotalMessages int       `json:"total_messages"`
}

// Conversation keeps the last maxHistory messages.
type Conversation struct {
	mu         sync.Mutex
	id         string
	maxHistory int
	messages   []Message
	now        func() time.Time
}

// NewConversation starts an empty conversation with a fresh ID.
func NewConversation(maxHistory int) *Conversation {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Conversation{id: uuid.NewString(), maxHistory: maxHistory, now: time.Now}
}

// ID identifies the conversation.
func (c *Conversation) ID() string { return c.id }

// Add appends a message and drops the oldest ones beyond the limit.
func (c *Conversation) Add(role, content string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: c.now(),
		Metadata:  metadata,
	})
	if over := len(c.messages) - c.maxHistory; over > 0 {
		c.messages = append([]Message(nil), c.messages[over:]...)
	}
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// LastMetadata returns the metadata of the newest message, or nil.
func (c *Conversation) LastMetadata() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1].Metadata
}

// Clear drops the history and keeps the ID.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()
}

// Export copies the conversation for serialisation.
func (c *Conversation) Export() Export {
	msgs := c.Messages()
	return Export{ID: c.id, Messages: msgs, ExportedAt: c.now(), TotalMessages: len(msgs)}
}

package pipeline

import (
	"sync"
	"time"
)

// maxTrackedConversations bounds the soft cache.
const maxTrackedConversations = 8192

// ConversationInfo is lightweight per-conversation memory. It is a soft
// cache: process lifetime only, never a source of truth.
type ConversationInfo struct {
	FirstSeen    time.Time
	LastSeen     time.Time
	MessageCount int
	LastBody     string
}

// ConversationCache tracks conversations seen by this process.
type ConversationCache struct {
	mu    sync.Mutex
	convs map[string]*ConversationInfo
}

// NewConversationCache creates an empty cache.
func NewConversationCache() *ConversationCache {
	return &ConversationCache{convs: make(map[string]*ConversationInfo)}
}

// Touch records one inbound message and reports whether the conversation is
// a returning one (seen before this message).
func (c *ConversationCache) Touch(chatID, body string) (ConversationInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	info, returning := c.convs[chatID]
	if !returning {
		if len(c.convs) >= maxTrackedConversations {
			for id := range c.convs {
				delete(c.convs, id)
				break
			}
		}
		info = &ConversationInfo{FirstSeen: now}
		c.convs[chatID] = info
	}
	info.LastSeen = now
	info.MessageCount++
	if body != "" {
		info.LastBody = body
	}
	return *info, returning
}

// Get returns a copy of the conversation info, if tracked.
func (c *ConversationCache) Get(chatID string) (ConversationInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.convs[chatID]
	if !ok {
		return ConversationInfo{}, false
	}
	return *info, true
}

// Package session keeps the per-conversation log a chat client shows and
// replays to the model on the next turn.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/larder/internal/ollama"
)

// DefaultCapacity is how many entries a History keeps when none is given.
const DefaultCapacity = 50

// Role is who produced an entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one line of the conversation. Action names the intent the
// assistant acted on, when there was one.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action,omitempty"`
}

// History is an ordered log capped at a fixed number of entries. When full,
// appending drops the oldest entry. It is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries []Entry
	cap     int
	now     func() time.Time
}

// New returns an empty History holding at most capacity entries. A
// capacity of zero or less uses DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{cap: capacity, now: time.Now}
}

// Append records a new entry and returns it.
func (h *History) Append(role Role, content, action string) Entry {
	e := Entry{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: h.now().UTC(),
		Action:    action,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push(e)
	return e
}

func (h *History) push(e Entry) {
	h.entries = append(h.entries, e)
	if over := len(h.entries) - h.cap; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
}

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry(nil), h.entries...)
}

// Len reports how many entries are held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}

// Messages renders the most recent limit entries as chat messages for the
// model. A limit of zero or less returns all of them.
func (h *History) Messages(limit int) []ollama.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	msgs := make([]ollama.Message, len(entries))
	for i, e := range entries {
		msgs[i] = ollama.Message{Role: string(e.Role), Content: e.Content}
	}
	return msgs
}

// Save writes the log to path as JSON, replacing any existing file.
func (h *History) Save(path string) error {
	data, err := json.MarshalIndent(h.Entries(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing history: %w", err)
	}
	return nil
}

// Load reads a log saved by Save. A missing file yields an empty History.
// Entries beyond capacity are trimmed from the oldest end.
func Load(path string, capacity int) (*History, error) {
	h := New(capacity)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding history %s: %w", path, err)
	}
	for _, e := range entries {
		h.push(e)
	}
	return h, nil
}

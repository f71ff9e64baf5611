package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	h := New(5)
	at := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return at }

	e := h.Append(RoleUser, "add milk", "")
	if e.ID == "" {
		t.Error("entry has no id")
	}
	if !e.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, at)
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestAppend_DropsOldestWhenFull(t *testing.T) {
	h := New(3)
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		h.Append(RoleUser, c, "")
	}

	var got []string
	for _, e := range h.Entries() {
		got = append(got, e.Content)
	}
	if diff := cmp.Diff([]string{"c", "d", "e"}, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_DefaultCapacity(t *testing.T) {
	h := New(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		h.Append(RoleAssistant, "x", "")
	}
	if h.Len() != DefaultCapacity {
		t.Errorf("Len = %d, want %d", h.Len(), DefaultCapacity)
	}
}

func TestMessages_Limit(t *testing.T) {
	h := New(10)
	h.Append(RoleUser, "hello", "")
	h.Append(RoleAssistant, "Hi!", "greeting")
	h.Append(RoleUser, "add eggs", "")

	msgs := h.Messages(2)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "assistant" || msgs[0].Content != "Hi!" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if len(h.Messages(0)) != 3 {
		t.Error("limit 0 should return every entry")
	}
}

func TestEntries_ReturnsCopy(t *testing.T) {
	h := New(3)
	h.Append(RoleUser, "a", "")
	got := h.Entries()
	got[0].Content = "changed"
	if h.Entries()[0].Content != "a" {
		t.Error("mutating Entries result changed the history")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	h := New(4)
	h.Append(RoleUser, "add milk", "")
	h.Append(RoleAssistant, "Added milk to your shopping list.", "add_shopping_item")

	if err := h.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, 4)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(h.Entries(), loaded.Entries()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_TrimsToCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h := New(10)
	for _, c := range []string{"a", "b", "c", "d"} {
		h.Append(RoleUser, c, "")
	}
	if err := h.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	entries := loaded.Entries()
	if len(entries) != 2 || entries[0].Content != "c" {
		t.Errorf("entries = %+v, want the newest two", entries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "absent.json"), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, 0); err == nil {
		t.Error("expected error for corrupt history")
	}
}

func TestAppend_Concurrent(t *testing.T) {
	h := New(20)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Append(RoleUser, "x", "")
		}()
	}
	wg.Wait()
	if h.Len() != 20 {
		t.Errorf("Len = %d, want 20", h.Len())
	}
}

package journal

import (
	"path/filepath"
	"testing"
	"time"

	"roomcast/pkg/logger"
)

func TestJournal_WriteAfterCleanup(t *testing.T) {
	// Journal operations log through the global logger
	logger.Init(false)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.journal")

	j, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer j.Close()

	entries := []Entry{
		{MessageID: "msg1", RoomCode: "ROOM01", Author: "alice", Content: "Hello 1", Role: "member", Timestamp: time.Now()},
		{MessageID: "msg2", RoomCode: "ROOM01", Author: "alice", Content: "Hello 2", Role: "member", Timestamp: time.Now()},
		{MessageID: "msg3", RoomCode: "ROOM01", Author: "bob", Content: "Hello 3", Role: "leader", Timestamp: time.Now()},
	}

	for _, entry := range entries {
		if err := j.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}

	allEntries, err := j.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read journal: %v", err)
	}
	if len(allEntries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(allEntries))
	}

	// Confirm the first two as delivered, then keep writing
	if err := j.Cleanup([]string{"msg1", "msg2"}); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	remaining, err := j.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read journal after cleanup: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("Expected 1 entry after cleanup, got %d", len(remaining))
	}
	if remaining[0].MessageID != "msg3" {
		t.Fatalf("Expected msg3 to remain, got %s", remaining[0].MessageID)
	}

	// The file handle must still be usable after the rename dance
	if err := j.Write(Entry{MessageID: "msg4", RoomCode: "ROOM01", Author: "bob", Content: "Hello 4", Role: "leader", Timestamp: time.Now()}); err != nil {
		t.Fatalf("Write after cleanup failed: %v", err)
	}

	final, err := j.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read journal after post-cleanup write: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("Expected 2 entries after post-cleanup write, got %d", len(final))
	}
}

func TestJournal_ReadAllEmpty(t *testing.T) {
	logger.Init(false)

	j, err := New(filepath.Join(t.TempDir(), "empty.journal"))
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	defer j.Close()

	entries, err := j.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Expected empty journal, got %d entries", len(entries))
	}
}

package contextstore

import (
	"testing"
	"time"

	"github.com/ivo-run/ivo/pkg/models"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := New(t.TempDir())

	meta, err := store.Save("<context>hello</context>", models.ContextMeta{Task: "demo", Files: []string{"a.go"}}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta.ID == "" || len(meta.ID) != IDLength {
		t.Fatalf("expected a %d-char id, got %q", IDLength, meta.ID)
	}

	if !store.Exists(meta.ID) {
		t.Fatalf("expected Exists(%q) to be true", meta.ID)
	}

	body, err := store.Load(meta.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if body != "<context>hello</context>" {
		t.Fatalf("unexpected body: %q", body)
	}

	loadedMeta, err := store.LoadMeta(meta.ID)
	if err != nil {
		t.Fatalf("LoadMeta() error = %v", err)
	}
	if loadedMeta.Task != "demo" {
		t.Fatalf("expected task %q, got %q", "demo", loadedMeta.Task)
	}
}

func TestStoreSaveIsContentAddressed(t *testing.T) {
	store := New(t.TempDir())

	first, err := store.Save("same content", models.ContextMeta{Task: "a"}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save("same content", models.ContextMeta{Task: "b"}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected identical content to produce the same id, got %q and %q", first.ID, second.ID)
	}
}

func TestStoreLoadMissingReturnsNotFound(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Load("abcdef0"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.LoadMeta("abcdef0"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreListSortsByCreatedAtDescending(t *testing.T) {
	store := New(t.TempDir())

	older, err := store.Save("older", models.ContextMeta{CreatedAt: time.Now().Add(-time.Hour)}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	newer, err := store.Save("newer", models.ContextMeta{CreatedAt: time.Now()}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest-first order, got %v", list)
	}
}

func TestStoreFindByPrefix(t *testing.T) {
	store := New(t.TempDir())
	meta, err := store.Save("unique content for prefix test", models.ContextMeta{}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	found, err := store.FindByPrefix(meta.ID[:4])
	if err != nil {
		t.Fatalf("FindByPrefix() error = %v", err)
	}
	if found.ID != meta.ID {
		t.Fatalf("expected id %q, got %q", meta.ID, found.ID)
	}

	if _, err := store.FindByPrefix("zzzzzzz"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for an unmatched prefix, got %v", err)
	}
}

func TestStorePinPreventsCleanup(t *testing.T) {
	store := New(t.TempDir())

	pinned, err := store.Save("pinned content", models.ContextMeta{CreatedAt: time.Now().Add(-48 * time.Hour)}, true)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	stale, err := store.Save("stale content", models.ContextMeta{CreatedAt: time.Now().Add(-48 * time.Hour)}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	deleted, err := store.Cleanup(time.Hour, DefaultCleanupMaxCount)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	if !store.Exists(pinned.ID) {
		t.Fatalf("expected pinned entry to survive cleanup")
	}
	if store.Exists(stale.ID) {
		t.Fatalf("expected stale unpinned entry to be removed")
	}
}

func TestStoreCleanupEnforcesMaxCount(t *testing.T) {
	store := New(t.TempDir())

	var ids []string
	for i := 0; i < 5; i++ {
		meta, err := store.Save(string(rune('a'+i))+" content", models.ContextMeta{CreatedAt: time.Now().Add(time.Duration(i) * time.Minute)}, false)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		ids = append(ids, meta.ID)
	}

	deleted, err := store.Cleanup(24*time.Hour, 2)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deletions, got %d", deleted)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 remaining entries, got %d", len(list))
	}
}

func TestStorePinUnpin(t *testing.T) {
	store := New(t.TempDir())
	meta, err := store.Save("toggle pin content", models.ContextMeta{}, false)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Pin(meta.ID); err != nil {
		t.Fatalf("Pin() error = %v", err)
	}
	reloaded, err := store.LoadMeta(meta.ID)
	if err != nil {
		t.Fatalf("LoadMeta() error = %v", err)
	}
	if !reloaded.Pinned {
		t.Fatalf("expected Pinned to be true after Pin()")
	}

	if err := store.Unpin(meta.ID); err != nil {
		t.Fatalf("Unpin() error = %v", err)
	}
	reloaded, err = store.LoadMeta(meta.ID)
	if err != nil {
		t.Fatalf("LoadMeta() error = %v", err)
	}
	if reloaded.Pinned {
		t.Fatalf("expected Pinned to be false after Unpin()")
	}
}

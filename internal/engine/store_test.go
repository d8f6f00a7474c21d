package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/shaiso/Maestro/internal/domain"
)

func TestStore_PutGet(t *testing.T) {
	store := NewStore()

	if err := store.Put("1", "result one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := store.Get("1")
	if !ok {
		t.Fatal("result should exist")
	}
	if result != "result one" {
		t.Errorf("expected 'result one', got %q", result)
	}

	if _, ok := store.Get("2"); ok {
		t.Error("result for unknown step should not exist")
	}
}

func TestStore_AppendOnce(t *testing.T) {
	store := NewStore()

	if err := store.Put("1", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Повторная запись запрещена
	err := store.Put("1", "second")
	if !errors.Is(err, ErrResultExists) {
		t.Fatalf("expected ErrResultExists, got %v", err)
	}

	// Исходный результат не перезаписан
	result, _ := store.Get("1")
	if result != "first" {
		t.Errorf("result should not be overwritten, got %q", result)
	}
}

func TestStore_SnapshotFor(t *testing.T) {
	store := NewStore()
	store.Put("1", "one")
	store.Put("2", "two")
	store.Put("3", "three")

	step := &domain.Step{
		ID:         "4",
		Capability: domain.CapabilityCoder,
		Need:       []string{"2", "3"},
	}

	snapshot := store.SnapshotFor(step)

	// Ровно результаты зависимостей, без посторонних записей
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snapshot))
	}
	if snapshot["2"] != "two" || snapshot["3"] != "three" {
		t.Errorf("unexpected snapshot: %v", snapshot)
	}
	if _, ok := snapshot["1"]; ok {
		t.Error("snapshot should not contain results of non-dependencies")
	}
}

func TestStore_SnapshotIsolated(t *testing.T) {
	store := NewStore()
	store.Put("1", "one")

	step := &domain.Step{ID: "2", Need: []string{"1"}}
	snapshot := store.SnapshotFor(step)

	// Мутация снапшота не трогает хранилище
	snapshot["1"] = "mutated"

	result, _ := store.Get("1")
	if result != "one" {
		t.Errorf("store should be isolated from snapshot mutation, got %q", result)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%26))
			store.Put(id, "r")
			store.Get(id)
		}(i)
	}
	wg.Wait()

	if store.Len() != 26 {
		t.Errorf("expected 26 results, got %d", store.Len())
	}
}

package store

import (
	"errors"
	"image"
	"os"
	"testing"
)

func testImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func newTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	s, err := New(t.TempDir(), capacity)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestAddAndList(t *testing.T) {
	s := newTestStore(t, 5)

	rec, err := s.Add(QueueMain, testImage())
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("expected screenshot file on disk: %v", err)
	}
	if rec.Preview == "" {
		t.Error("expected non-empty preview")
	}

	main := s.List(QueueMain)
	if len(main) != 1 || main[0].Path != rec.Path {
		t.Errorf("expected main queue to hold the new record, got %v", main)
	}
	if extra := s.List(QueueExtra); len(extra) != 0 {
		t.Errorf("expected empty extra queue, got %v", extra)
	}
}

func TestQueueOrderAndEviction(t *testing.T) {
	s := newTestStore(t, 2)

	var paths []string
	for i := 0; i < 3; i++ {
		rec, err := s.Add(QueueMain, testImage())
		if err != nil {
			t.Fatalf("Add %d failed: %v", i, err)
		}
		paths = append(paths, rec.Path)
	}

	got := s.List(QueueMain)
	if len(got) != 2 {
		t.Fatalf("expected queue capped at 2, got %d records", len(got))
	}
	// Oldest evicted, insertion order preserved.
	if got[0].Path != paths[1] || got[1].Path != paths[2] {
		t.Errorf("expected records [1,2], got %v", got)
	}
	if _, err := os.Stat(paths[0]); !os.IsNotExist(err) {
		t.Errorf("expected evicted file to be removed, stat err=%v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t, 5)

	rec1, _ := s.Add(QueueMain, testImage())
	rec2, _ := s.Add(QueueMain, testImage())

	if err := s.Delete(rec1.Path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(rec1.Path); !os.IsNotExist(err) {
		t.Errorf("expected deleted file to be removed, stat err=%v", err)
	}

	got := s.List(QueueMain)
	if len(got) != 1 || got[0].Path != rec2.Path {
		t.Errorf("expected only rec2 to remain, got %v", got)
	}

	// The queue never contains a record whose file was already deleted.
	for _, rec := range got {
		if _, err := os.Stat(rec.Path); err != nil {
			t.Errorf("listed record %s has no backing file: %v", rec.Path, err)
		}
	}
}

func TestDeleteAbsentPathFailsWithoutSideEffects(t *testing.T) {
	s := newTestStore(t, 5)
	rec, _ := s.Add(QueueMain, testImage())

	if err := s.Delete("/no/such/file.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := s.List(QueueMain); len(got) != 1 || got[0].Path != rec.Path {
		t.Errorf("expected queue unchanged after failed delete, got %v", got)
	}
}

func TestDeleteSearchesBothQueues(t *testing.T) {
	s := newTestStore(t, 5)
	rec, _ := s.Add(QueueExtra, testImage())

	if err := s.Delete(rec.Path); err != nil {
		t.Fatalf("Delete from extra queue failed: %v", err)
	}
	if got := s.List(QueueExtra); len(got) != 0 {
		t.Errorf("expected empty extra queue, got %v", got)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t, 5)
	rec1, _ := s.Add(QueueMain, testImage())
	rec2, _ := s.Add(QueueExtra, testImage())

	s.ClearAll()

	if len(s.List(QueueMain)) != 0 || len(s.List(QueueExtra)) != 0 {
		t.Error("expected both queues empty after ClearAll")
	}
	for _, p := range []string{rec1.Path, rec2.Path} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s removed, stat err=%v", p, err)
		}
	}
}

func TestImages(t *testing.T) {
	s := newTestStore(t, 5)
	s.Add(QueueMain, testImage())
	s.Add(QueueMain, testImage())

	images, err := s.Images(QueueMain)
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	for i, data := range images {
		if len(data) == 0 {
			t.Errorf("image %d is empty", i)
		}
	}
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	if _, err := New(t.TempDir(), 0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

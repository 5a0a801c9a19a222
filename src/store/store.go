package store

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// ErrNotFound is returned by Delete for a path not present in either queue.
var ErrNotFound = errors.New("screenshot not found")

const previewWidth = 300

// Queue identifies which screenshot queue a record belongs to.
type Queue string

const (
	// QueueMain holds screenshots composing the problem statement.
	QueueMain Queue = "main"
	// QueueExtra holds supplemental screenshots for a debug pass.
	QueueExtra Queue = "extra"
)

// Record is one captured image on disk. Records are never mutated in place.
type Record struct {
	Path    string `json:"path"`
	Preview string `json:"preview"`
}

// Store owns the ordered screenshot queues. Queues are bounded: adding past
// capacity evicts the oldest record and deletes its file.
type Store struct {
	mu    sync.Mutex
	dir   string
	cap   int
	main  []Record
	extra []Record
}

// New creates a store writing PNGs under dir. Capacity must be positive.
func New(dir string, capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	return &Store{dir: dir, cap: capacity}, nil
}

// Add encodes img to a new PNG file and appends its record to q. When the
// queue is at capacity the oldest record is evicted first.
func (s *Store) Add(q Queue, img *image.RGBA) (Record, error) {
	if img == nil {
		return Record{}, errors.New("nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Record{}, fmt.Errorf("failed to encode screenshot: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+".png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return Record{}, fmt.Errorf("failed to write screenshot: %w", err)
	}

	rec := Record{Path: path, Preview: encodePreview(img)}

	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queue(q)
	if len(*queue) >= s.cap {
		evicted := (*queue)[0]
		*queue = (*queue)[1:]
		if err := os.Remove(evicted.Path); err != nil {
			log.Printf("store: failed to remove evicted screenshot %s: %v", evicted.Path, err)
		}
	}
	*queue = append(*queue, rec)
	return rec, nil
}

// List returns the records of q in insertion order.
func (s *Store) List(q Queue) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queue(q)
	out := make([]Record, len(*queue))
	copy(out, *queue)
	return out
}

// Images reads every file in q, oldest first.
func (s *Store) Images(q Queue) ([][]byte, error) {
	var images [][]byte
	for _, rec := range s.List(q) {
		data, err := os.ReadFile(rec.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read screenshot %s: %w", rec.Path, err)
		}
		images = append(images, data)
	}
	return images, nil
}

// Delete removes the record with the given path from whichever queue holds it
// and deletes its file. An absent path returns ErrNotFound with no side
// effects.
func (s *Store) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queue := range []*[]Record{&s.main, &s.extra} {
		for i, rec := range *queue {
			if rec.Path != path {
				continue
			}
			*queue = append((*queue)[:i], (*queue)[i+1:]...)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Printf("store: failed to remove screenshot %s: %v", path, err)
			}
			return nil
		}
	}
	return ErrNotFound
}

// ClearAll empties both queues and deletes their files.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queue := range []*[]Record{&s.main, &s.extra} {
		for _, rec := range *queue {
			if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
				log.Printf("store: failed to remove screenshot %s: %v", rec.Path, err)
			}
		}
		*queue = nil
	}
}

func (s *Store) queue(q Queue) *[]Record {
	if q == QueueExtra {
		return &s.extra
	}
	return &s.main
}

// encodePreview downscales img to a thumbnail and returns it as a PNG data
// URL for the UI's queue view.
func encodePreview(img *image.RGBA) string {
	thumb := resize.Resize(previewWidth, 0, img, resize.Bilinear)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		log.Printf("store: failed to encode preview: %v", err)
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

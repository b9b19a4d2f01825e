// Package syncqueue keeps scan and backtest results on disk until they can be
// delivered to a remote endpoint.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Kind labels the payload of an item
type Kind string

const (
	KindScan     Kind = "scan"
	KindBacktest Kind = "backtest"
)

// Item is one queued payload
type Item struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// Sender delivers a single item
type Sender interface {
	Send(ctx context.Context, item Item) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, item Item) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, item Item) error { return f(ctx, item) }

// Queue is a FIFO persisted to a JSON file
type Queue struct {
	mu       sync.Mutex
	filepath string
	items    []Item
	now      func() time.Time
}

// NewQueue opens the queue stored in dir, creating the directory if needed.
// A corrupt file is logged and replaced by an empty queue.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating queue dir: %w", err)
	}

	q := &Queue{
		filepath: filepath.Join(dir, "queue.json"),
		now:      time.Now,
	}
	if err := q.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", q.filepath).Msg("Could not load sync queue, starting empty")
		q.items = nil
	}

	log.Debug().Int("items", len(q.items)).Str("path", q.filepath).Msg("Sync queue loaded")
	return q, nil
}

// Append encodes payload and adds it to the tail
func (q *Queue) Append(kind Kind, payload any) (Item, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{ID: uuid.NewString(), Kind: kind, CreatedAt: q.now().UTC(), Payload: data}
	q.items = append(q.items, item)
	if err := q.persist(); err != nil {
		q.items = q.items[:len(q.items)-1]
		return Item{}, err
	}
	return item, nil
}

// Drain sends items from the head in order. It stops at the first failure,
// keeping that item and everything after it, and returns how many were sent.
func (q *Queue) Drain(ctx context.Context, s Sender) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sent := 0
	var sendErr error
	for _, item := range q.items {
		if err := ctx.Err(); err != nil {
			sendErr = err
			break
		}
		if err := s.Send(ctx, item); err != nil {
			sendErr = fmt.Errorf("sending %s item %s: %w", item.Kind, item.ID, err)
			break
		}
		sent++
	}

	if sent > 0 {
		q.items = q.items[sent:]
		if err := q.persist(); err != nil {
			return sent, errors.Join(sendErr, err)
		}
	}
	log.Debug().Int("sent", sent).Int("remaining", len(q.items)).Msg("Sync queue drained")
	return sent, sendErr
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued items, head first
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

func (q *Queue) load() error {
	data, err := os.ReadFile(q.filepath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &q.items)
}

// persist writes through a temp file so a crash never leaves a torn queue
func (q *Queue) persist() error {
	data, err := json.MarshalIndent(q.items, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding queue: %w", err)
	}
	tmp := q.filepath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	if err := os.Rename(tmp, q.filepath); err != nil {
		return fmt.Errorf("replacing queue: %w", err)
	}
	return nil
}

package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string  `json:"symbol"`
	Score  float64 `json:"score"`
}

func TestAppendPersists(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQueue(dir)
	require.NoError(t, err)
	assert.Zero(t, q.Len())

	item, err := q.Append(KindScan, payload{Symbol: "AAPL", Score: 72})
	require.NoError(t, err)
	assert.Len(t, item.ID, 36)
	_, err = q.Append(KindBacktest, payload{Symbol: "MSFT"})
	require.NoError(t, err)

	reopened, err := NewQueue(dir)
	require.NoError(t, err)
	require.Equal(t, 2, reopened.Len())

	items := reopened.Items()
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, KindBacktest, items[1].Kind)

	var p payload
	require.NoError(t, json.Unmarshal(items[0].Payload, &p))
	assert.Equal(t, "AAPL", p.Symbol)
}

func TestAppendRejectsUnencodable(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	_, err = q.Append(KindScan, func() {})
	assert.Error(t, err)
	assert.Zero(t, q.Len())
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQueue(dir)
	require.NoError(t, err)
	for _, sym := range []string{"A", "B", "C", "D"} {
		_, err := q.Append(KindScan, payload{Symbol: sym})
		require.NoError(t, err)
	}

	var delivered []string
	sender := SenderFunc(func(ctx context.Context, item Item) error {
		var p payload
		require.NoError(t, json.Unmarshal(item.Payload, &p))
		if p.Symbol == "C" {
			return errors.New("endpoint down")
		}
		delivered = append(delivered, p.Symbol)
		return nil
	})

	sent, err := q.Drain(context.Background(), sender)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint down")
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"A", "B"}, delivered)
	assert.Equal(t, 2, q.Len())

	reopened, err := NewQueue(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len(), "remainder persisted")

	sent, err = q.Drain(context.Background(), SenderFunc(func(context.Context, Item) error { return nil }))
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, q.Len())
}

func TestDrainHonoursContext(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	_, err = q.Append(KindScan, payload{Symbol: "A"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent, err := q.Drain(ctx, SenderFunc(func(context.Context, Item) error { return nil }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
	assert.Equal(t, 1, q.Len())
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.json"), []byte("{not json"), 0o644))

	q, err := NewQueue(dir)
	require.NoError(t, err)
	assert.Zero(t, q.Len())
}

func TestHTTPSender(t *testing.T) {
	var got Item
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, got.ID, r.Header.Get("Idempotency-Key"))
		if got.Kind == KindBacktest {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, 5*time.Second)
	item := Item{ID: "abc", Kind: KindScan, Payload: json.RawMessage(`{"symbol":"AAPL"}`)}
	require.NoError(t, s.Send(context.Background(), item))
	assert.Equal(t, "abc", got.ID)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, string(got.Payload))

	item.Kind = KindBacktest
	assert.ErrorContains(t, s.Send(context.Background(), item), "status 503")
}

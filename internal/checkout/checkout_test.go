package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/underworlds/internal/cart"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/storage"
)

type mockNotifier struct {
	mu       sync.Mutex
	received []Intent
	notifyFn func(ctx context.Context, intent Intent) error
}

func (m *mockNotifier) Notify(ctx context.Context, intent Intent) error {
	if m.notifyFn != nil {
		if err := m.notifyFn(ctx, intent); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, intent)
	return nil
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// resetRunAfter makes a backed-off job claimable again.
func resetRunAfter(t *testing.T, store *storage.Store, jobID string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := store.DB().Exec(`UPDATE jobs SET run_after = ? WHERE id = ?`, now, jobID); err != nil {
		t.Fatalf("resetRunAfter: %v", err)
	}
}

func filledCart(t *testing.T, h cart.CheckoutHandler) *cart.Cart {
	t.Helper()
	c := cart.New(cart.WithOwner("sess-42"), cart.WithCheckoutHandler(h))
	cat := catalog.Default()
	for _, id := range []string{"p1", "p4"} {
		p, ok := cat.Product(id)
		if !ok {
			t.Fatalf("product %s missing", id)
		}
		p.Price = 12000
		c.Add(p)
	}
	return c
}

func onlyJobID(t *testing.T, store *storage.Store) string {
	t.Helper()
	var id string
	if err := store.DB().QueryRow(`SELECT id FROM jobs WHERE type = ?`, JobType).Scan(&id); err != nil {
		t.Fatalf("selecting job id: %v", err)
	}
	return id
}

func TestQueue_EnqueuesIntent(t *testing.T) {
	store := openTestStore(t)
	c := filledCart(t, NewQueue(store))

	if _, err := c.Checkout(context.Background()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	job, err := store.GetJob(onlyJobID(t, store))
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Type != JobType || job.Status != storage.JobPending {
		t.Errorf("job = %+v", job)
	}
	var intent Intent
	if err := json.Unmarshal([]byte(job.PayloadJSON), &intent); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if intent.SessionID != "sess-42" || intent.Count != 2 || intent.Total != 24000 {
		t.Errorf("intent = %+v", intent)
	}
	if intent.Items[1].ProductID != "p4" {
		t.Errorf("items = %+v", intent.Items)
	}
}

func TestQueue_CancelledContext(t *testing.T) {
	store := openTestStore(t)
	q := NewQueue(store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Submit(ctx, cart.Snapshot{Count: 1}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestWorker_DeliversIntent(t *testing.T) {
	store := openTestStore(t)
	c := filledCart(t, NewQueue(store))
	if _, err := c.Checkout(context.Background()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	n := &mockNotifier{}
	w := NewWorker(store, n, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.received) != 1 || n.received[0].SessionID != "sess-42" {
		t.Fatalf("received = %+v", n.received)
	}

	job, err := store.GetJob(n.received[0].ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != storage.JobCompleted {
		t.Errorf("status = %q, want completed", job.Status)
	}
}

func TestWorker_NothingToDo(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, &mockNotifier{}, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil || didWork {
		t.Errorf("RunOnce = %v, %v; want false, nil", didWork, err)
	}
}

func TestWorker_RetryOnFailure(t *testing.T) {
	store := openTestStore(t)
	c := filledCart(t, NewQueue(store))
	if _, err := c.Checkout(context.Background()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	jobID := onlyJobID(t, store)

	var calls atomic.Int32
	n := &mockNotifier{notifyFn: func(context.Context, Intent) error {
		if calls.Add(1) == 1 {
			return fmt.Errorf("receiver unavailable")
		}
		return nil
	}}
	w := NewWorker(store, n, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce 1: %v", err)
	}
	job, _ := store.GetJob(jobID)
	if job.Status != storage.JobPending || job.Attempts != 1 || job.LastError == "" {
		t.Errorf("after failure: %+v", job)
	}

	resetRunAfter(t, store, jobID)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce 2: %v", err)
	}
	job, _ = store.GetJob(jobID)
	if job.Status != storage.JobCompleted {
		t.Errorf("after retry: status = %q, want completed", job.Status)
	}
}

func TestWorker_MaxRetriesExceeded(t *testing.T) {
	store := openTestStore(t)
	c := filledCart(t, NewQueue(store))
	if _, err := c.Checkout(context.Background()); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	jobID := onlyJobID(t, store)

	w := NewWorker(store, &mockNotifier{notifyFn: func(context.Context, Intent) error {
		return fmt.Errorf("permanent error")
	}}, 0)

	for i := 1; i <= 3; i++ {
		didWork, err := w.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("RunOnce %d error: %v", i, err)
		}
		if !didWork {
			t.Fatalf("RunOnce %d returned false", i)
		}
		if i < 3 {
			resetRunAfter(t, store, jobID)
		}
	}

	job, _ := store.GetJob(jobID)
	if job.Status != storage.JobFailed {
		t.Errorf("final status = %q, want failed", job.Status)
	}
}

func TestWorker_BadPayloadFails(t *testing.T) {
	store := openTestStore(t)
	if err := store.EnqueueJob(storage.Job{ID: "bad", Type: JobType, PayloadJSON: "{", MaxAttempts: 1}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	n := &mockNotifier{}
	w := NewWorker(store, n, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	job, _ := store.GetJob("bad")
	if job.Status != storage.JobFailed {
		t.Errorf("status = %q, want failed", job.Status)
	}
	if len(n.received) != 0 {
		t.Error("notifier should not be called for unparseable payload")
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, &mockNotifier{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got Intent
	var idem string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		idem = r.Header.Get("Idempotency-Key")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	intent := Intent{ID: "int-1", SessionID: "s", Count: 1, Total: 500}
	if err := n.Notify(context.Background(), intent); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.ID != "int-1" || got.Total != 500 || idem != "int-1" {
		t.Errorf("received %+v idempotency=%q", got, idem)
	}
}

func TestWebhookNotifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Notify(context.Background(), Intent{ID: "x"})
	if err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestLogNotifier(t *testing.T) {
	if err := (LogNotifier{}).Notify(context.Background(), Intent{ID: "x"}); err != nil {
		t.Errorf("LogNotifier: %v", err)
	}
}

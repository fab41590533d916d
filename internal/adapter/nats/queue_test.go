package nats

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueue_PublishSubscribe(t *testing.T) {
	q := testConnect(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []byte
	done := make(chan struct{})

	cancel, err := q.Subscribe(ctx, "billing.events", func(_ context.Context, _ string, data []byte) error {
		mu.Lock()
		got = data
		mu.Unlock()
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := q.Publish(ctx, "billing.events", []byte(`{"type":"invoice.paid"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(got) != `{"type":"invoice.paid"}` {
		t.Fatalf("unexpected payload: %s", got)
	}
}

func TestKVCache_RoundTrip(t *testing.T) {
	q := testConnect(t)
	ctx := context.Background()

	kv, err := q.NewKVCache(ctx, "hourstack_test", time.Minute)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	if err := kv.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	data, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(data) != "v" {
		t.Fatalf("unexpected value: %s", data)
	}

	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	q := NewInMemory(4)
	msg := NewMessage(TypeBulkWarning, json.RawMessage(`[{"roll_number":"R1"}]`))
	if msg.ID == "" {
		t.Fatal("message id not set")
	}

	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	select {
	case got := <-out:
		if got.ID != msg.ID || got.Type != TypeBulkWarning {
			t.Errorf("got %+v, want %+v", got, msg)
		}
		var raws []json.RawMessage
		if err := json.Unmarshal(got.Body, &raws); err != nil || len(raws) != 1 {
			t.Errorf("body did not round-trip: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishCancelled(t *testing.T) {
	q := NewInMemory(0) // unbuffered, nothing consuming
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Publish(ctx, NewMessage(TypeBulkWarning, nil)); err == nil {
		t.Error("Publish() on cancelled context succeeded, want error")
	}
}

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/datemaker/internal/domain/model"
)

func command(user int64) model.Command {
	return model.NewCommand(model.CmdSendRules, 1, user, nil)
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Publish(ctx, command(1)); err != nil {
		t.Fatalf("expected publish to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	dctx, cancel := context.WithCancel(ctx)
	defer cancel()
	got := <-q.Dequeue(dctx)
	if got.UserID != 1 {
		t.Errorf("expected user 1, got %d", got.UserID)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	_ = q.Publish(ctx, command(1))
	_ = q.Publish(ctx, command(2))

	if err := q.Publish(ctx, command(3)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
}

func TestInMemoryQueue_Drain(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		_ = q.Publish(ctx, command(i))
	}

	if !q.Wait(3, time.Second) {
		t.Fatal("expected three queued commands")
	}
	drained := q.Drain()
	if len(drained) != 3 || drained[0].UserID != 1 || drained[2].UserID != 3 {
		t.Fatalf("unexpected drain result: %+v", drained)
	}
	if q.Len(ctx) != 0 {
		t.Errorf("expected empty queue after drain")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue()
	ctx := context.Background()
	_ = q.Publish(ctx, command(1))

	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Publish(ctx, command(2)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	var seen int
	for range q.Dequeue(ctx) {
		seen++
	}
	if seen != 1 {
		t.Errorf("expected the queued command to survive close, got %d", seen)
	}
}

func TestInMemoryQueue_CancelledPublish(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1), WithBufferSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = q.Publish(context.Background(), command(1))
	if err := q.Publish(ctx, command(2)); err == nil {
		t.Error("expected publish on a full queue to fail")
	}
}

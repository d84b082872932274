package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bakery-quote/internal/queue"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestEnqueueDequeue(t *testing.T) {
	client := newTestRedis(t)

	enq := queue.Enqueuer{R: client, Prefix: "bakery"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := enq.Enqueue(ctx, queue.Task{Kind: queue.KindQuoteSheet, Payload: []byte("payload"), IdempotencyKey: "q1"})
	require.NoError(t, err)

	processed := make(chan []byte, 1)
	worker := queue.Worker{
		R:                 client,
		Prefix:            "bakery",
		Kind:              queue.KindQuoteSheet,
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         10 * time.Millisecond,
		Handler: func(ctx context.Context, task queue.Task) error {
			processed <- task.Payload
			cancel()
			return nil
		},
	}

	go func() {
		_ = worker.Run(ctx)
	}()

	select {
	case payload := <-processed:
		require.Equal(t, []byte("payload"), payload)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for payload")
	}
}

func TestEnqueueDeduplicates(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	enq := queue.Enqueuer{R: client, Prefix: "bakery"}
	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: queue.KindQuoteEmail, Payload: []byte("a"), IdempotencyKey: "same"}))
	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: queue.KindQuoteEmail, Payload: []byte("b"), IdempotencyKey: "same"}))

	size, err := client.ZCard(ctx, "bakery:queue:"+queue.KindQuoteEmail).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, size)
}

func TestWorkerRetriesThenDeadLetters(t *testing.T) {
	client := newTestRedis(t)

	enq := queue.Enqueuer{R: client, Prefix: "bakery"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, enq.Enqueue(ctx, queue.Task{Kind: queue.KindQuoteEmail, Payload: []byte("retry"), IdempotencyKey: "r1", MaxAttempts: 3}))

	var attempts atomic.Int32
	done := make(chan struct{})
	worker := queue.Worker{
		R:                 client,
		Prefix:            "bakery",
		Kind:              queue.KindQuoteEmail,
		Concurrency:       1,
		VisibilityTimeout: time.Second,
		RetryBase:         time.Millisecond,
		Handler: func(ctx context.Context, task queue.Task) error {
			if attempts.Add(1) == 3 {
				close(done)
			}
			return errors.New("smtp unavailable")
		},
	}

	go func() {
		_ = worker.Run(ctx)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for retries")
	}
	require.Eventually(t, func() bool {
		n, err := client.LLen(context.Background(), "bakery:queue:"+queue.KindQuoteEmail+":dlq").Result()
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond, "task should land in the dead letter queue")
	cancel()
}

func TestEnqueueRejectsBadKind(t *testing.T) {
	client := newTestRedis(t)
	enq := queue.Enqueuer{R: client}
	err := enq.Enqueue(context.Background(), queue.Task{Kind: "Not Valid!"})
	require.Error(t, err)
}

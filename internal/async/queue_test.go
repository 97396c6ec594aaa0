package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScanQueueProcessesEveryJob(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	q := NewScanQueue(func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Path] = true
		mu.Unlock()
		if job.Path == "bad.png" {
			return errors.New("boom")
		}
		return nil
	}, nil, WithWorkers(3), WithQueueSize(2))

	paths := []string{"a.png", "b.png", "bad.png", "c.png", "d.png"}
	for _, p := range paths {
		if err := q.Enqueue(context.Background(), Job{Path: p}); err != nil {
			t.Fatalf("enqueue %s: %v", p, err)
		}
	}
	q.Shutdown(context.Background())

	for _, p := range paths {
		if !seen[p] {
			t.Fatalf("job %s never ran", p)
		}
	}
	if err := q.Enqueue(context.Background(), Job{Path: "late.png"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue after shutdown err = %v", err)
	}
	q.Shutdown(context.Background())
}

func TestScanQueueTimeoutAndBackpressure(t *testing.T) {
	release := make(chan struct{})
	var timedOut atomic.Int32
	q := NewScanQueue(func(ctx context.Context, job Job) error {
		if job.Path == "slow.png" {
			<-ctx.Done()
			timedOut.Add(1)
			return ctx.Err()
		}
		<-release
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1), WithProcessTimeout(20*time.Millisecond))

	if err := q.Enqueue(context.Background(), Job{Path: "slow.png"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(context.Background(), Job{Path: "blocked.png"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// the worker is stuck on blocked.png once slow.png times out, so the
	// single buffer slot fills and a further enqueue waits for its context
	deadline := time.Now().Add(2 * time.Second)
	for timedOut.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := q.Enqueue(context.Background(), Job{Path: "filler.png"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Job{Path: "overflow.png"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("full queue err = %v", err)
	}

	close(release)
	q.Shutdown(context.Background())
	if timedOut.Load() != 1 {
		t.Fatalf("slow job not cancelled by timeout")
	}
}

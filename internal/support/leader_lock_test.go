package support

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRunWithLeaderHoldsAndReleasesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithLeader(ctx, client, "scangate:leader:test", time.Minute, func(leaderCtx context.Context) {
			if !mr.Exists("scangate:leader:test") {
				t.Error("lock key missing while leader runs")
			}
			close(ran)
			cancel()
		})
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("run was never invoked")
	}

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("RunWithLeader returned %v, want context.Canceled", err)
	}
	if mr.Exists("scangate:leader:test") {
		t.Fatal("lock not released after run returned")
	}
}

func TestRunWithLeaderWithoutRedis(t *testing.T) {
	called := false
	err := RunWithLeader(context.Background(), nil, "k", 0, func(context.Context) { called = true })
	if err != nil {
		t.Fatalf("RunWithLeader: %v", err)
	}
	if !called {
		t.Fatal("run not invoked without redis")
	}
}

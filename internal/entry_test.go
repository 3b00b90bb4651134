package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	batches int
}

func (f *fakePruner) PruneViewBatches(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	return 0, nil
}

func (f *fakePruner) PruneIdempotencyKeys(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return 1, nil
}

func (f *fakePruner) calls() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.cutoffs...)
}

func TestSweepIdempotencyKeys(t *testing.T) {
	p := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweepIdempotencyKeys(ctx, p, IdempotencyConfig{TTL: time.Hour, SweepInterval: 10 * time.Millisecond},
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(p.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	calls := p.calls()
	if len(calls) == 0 {
		t.Fatal("sweeper never pruned")
	}
	p.mu.Lock()
	batches := p.batches
	p.mu.Unlock()
	if batches == 0 {
		t.Error("view batches never pruned")
	}
	if age := time.Since(calls[0]); age < 59*time.Minute || age > 61*time.Minute {
		t.Errorf("cutoff age = %v, want about 1h", age)
	}
}

func TestRunImport(t *testing.T) {
	dir := t.TempDir()
	post := "---\ntitle: Volatility profile for Win10 dumps\ntags: [Forensics]\n---\n\nWhich profile should I use for a Windows 10 memory image?\n"
	if err := os.WriteFile(filepath.Join(dir, "vol.md"), []byte(post), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "import.db")

	err := RunImport(context.Background(), dir, "alice", WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("RunImport: %v", err)
	}

	if err := RunImport(context.Background(), dir, "", WithConfig(cfg)); err == nil {
		t.Error("missing author should fail")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}

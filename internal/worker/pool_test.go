package worker

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolDefaultConcurrency(t *testing.T) {
	p := NewPool[string](0)
	if p.Concurrency() != runtime.NumCPU() {
		t.Errorf("expected concurrency %d, got %d", runtime.NumCPU(), p.Concurrency())
	}

	p2 := NewPool[string](-1)
	if p2.Concurrency() != runtime.NumCPU() {
		t.Errorf("expected concurrency %d for -1, got %d", runtime.NumCPU(), p2.Concurrency())
	}
}

func TestNewPoolExplicitConcurrency(t *testing.T) {
	p := NewPool[string](4)
	if p.Concurrency() != 4 {
		t.Errorf("expected concurrency 4, got %d", p.Concurrency())
	}
}

func TestRunEmpty(t *testing.T) {
	p := NewPool[string](2)
	results := p.Run(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results for empty input, got %v", results)
	}
}

func jobsFor(items []string, fn func(string) (string, error)) []Job[string] {
	jobs := make([]Job[string], len(items))
	for i, item := range items {
		item := item
		jobs[i] = Job[string]{
			FileKey: item,
			Run: func(ctx context.Context) (string, error) {
				return fn(item)
			},
		}
	}
	return jobs
}

func TestRunPreservesOrder(t *testing.T) {
	p := NewPool[string](4)
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	results := p.Run(context.Background(), jobsFor(items, func(s string) (string, error) {
		return "processed-" + s, nil
	}))

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result[%d] unexpected error: %v", i, r.Err)
		}
		expected := "processed-" + items[i]
		if r.Value != expected {
			t.Errorf("result[%d] = %q, expected %q", i, r.Value, expected)
		}
		if r.Index != i {
			t.Errorf("result[%d].Index = %d, expected %d", i, r.Index, i)
		}
	}
}

func TestRunCapturesErrors(t *testing.T) {
	p := NewPool[int](2)
	items := []string{"ok", "fail", "ok", "fail"}

	jobs := make([]Job[int], len(items))
	for i, item := range items {
		item := item
		jobs[i] = Job[int]{
			FileKey: item,
			Run: func(ctx context.Context) (int, error) {
				if item == "fail" {
					return 0, fmt.Errorf("failed on %s", item)
				}
				return 1, nil
			},
		}
	}

	results := p.Run(context.Background(), jobs)

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Value != 1 {
		t.Errorf("result[0] should succeed, got err=%v val=%d", results[0].Err, results[0].Value)
	}
	if results[2].Err != nil || results[2].Value != 1 {
		t.Errorf("result[2] should succeed, got err=%v val=%d", results[2].Err, results[2].Value)
	}
	if results[1].Err == nil {
		t.Error("result[1] should have error")
	}
	if results[3].Err == nil {
		t.Error("result[3] should have error")
	}
}

func TestRunConcurrencyAcrossDistinctFiles(t *testing.T) {
	p := NewPool[int](4)

	var maxConcurrent int64
	var current int64
	items := make([]string, 20)
	for i := range items {
		items[i] = fmt.Sprintf("file-%d", i)
	}

	jobs := make([]Job[int], len(items))
	for i, item := range items {
		jobs[i] = Job[int]{
			FileKey: item, // distinct files: these may run concurrently
			Run: func(ctx context.Context) (int, error) {
				c := atomic.AddInt64(&current, 1)
				for {
					old := atomic.LoadInt64(&maxConcurrent)
					if c <= old || atomic.CompareAndSwapInt64(&maxConcurrent, old, c) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return 1, nil
			},
		}
	}

	got := p.Run(context.Background(), jobs)
	if len(got) != 20 {
		t.Fatalf("expected 20 results, got %d", len(got))
	}

	peak := atomic.LoadInt64(&maxConcurrent)
	if peak < 2 {
		t.Errorf("expected concurrent execution across distinct files (peak=%d), got sequential", peak)
	}
}

func TestRunSerializesSameFile(t *testing.T) {
	p := NewPool[int](8)

	var current int64
	var overlapped bool
	jobs := make([]Job[int], 10)
	for i := range jobs {
		jobs[i] = Job[int]{
			FileKey: "shared-file", // same file: must never run concurrently
			Run: func(ctx context.Context) (int, error) {
				if atomic.AddInt64(&current, 1) > 1 {
					overlapped = true
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt64(&current, -1)
				return 1, nil
			},
		}
	}

	p.Run(context.Background(), jobs)
	if overlapped {
		t.Error("expected jobs sharing a FileKey to never run concurrently")
	}
}

func TestRunSingleItem(t *testing.T) {
	p := NewPool[string](4)
	results := p.Run(context.Background(), jobsFor([]string{"only"}, func(s string) (string, error) {
		return "done-" + s, nil
	}))

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Value != "done-only" {
		t.Errorf("expected done-only, got %s", results[0].Value)
	}
}

func TestRunMoreWorkersThanItems(t *testing.T) {
	p := NewPool[string](100)
	items := []string{"a", "b"}

	results := p.Run(context.Background(), jobsFor(items, func(s string) (string, error) {
		return s + "!", nil
	}))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Value != "a!" || results[1].Value != "b!" {
		t.Errorf("unexpected values: %v, %v", results[0].Value, results[1].Value)
	}
}

func TestRunResultsAreSortable(t *testing.T) {
	p := NewPool[string](4)
	items := []string{"c", "a", "b"}

	results := p.Run(context.Background(), jobsFor(items, func(s string) (string, error) {
		return s, nil
	}))

	for i, r := range results {
		if r.Index != i {
			t.Errorf("result[%d].Index = %d", i, r.Index)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Value < results[j].Value
	})
	if results[0].Value != "a" || results[1].Value != "b" || results[2].Value != "c" {
		t.Error("sorting by value failed")
	}
}

func TestRunRespectsCanceledContext(t *testing.T) {
	p := NewPool[int](2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make([]Job[int], 3)
	for i := range jobs {
		jobs[i] = Job[int]{
			FileKey: fmt.Sprintf("f%d", i),
			Run: func(ctx context.Context) (int, error) {
				return 1, nil
			},
		}
	}

	results := p.Run(ctx, jobs)
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("result[%d] expected an error from a pre-canceled context", i)
		}
	}
}

// --- Benchmarks ---

func BenchmarkPoolRun(b *testing.B) {
	items := make([]string, 100)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	b.ResetTimer()
	for range b.N {
		p := NewPool[string](4)
		_ = p.Run(context.Background(), jobsFor(items, func(s string) (string, error) {
			return s + "-done", nil
		}))
	}
}

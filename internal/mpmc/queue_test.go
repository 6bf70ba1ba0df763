package mpmc

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestFIFO(t *testing.T) {
	q := New[int](8)
	for i := 0; i < 8; i++ {
		if !q.TryPush(i) {
			t.Fatalf("TryPush(%d) failed on non-full queue", i)
		}
	}
	if q.TryPush(8) {
		t.Fatal("TryPush succeeded on full queue")
	}
	for i := 0; i < 8; i++ {
		v, ok := q.TryPop()
		if !ok || v != i {
			t.Fatalf("TryPop() = %d,%v, want %d", v, ok, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop succeeded on empty queue")
	}
}

func TestPushPanicsWhenFull(t *testing.T) {
	q := New[int](2)
	q.Push(1)
	q.Push(2)
	defer func() {
		if recover() == nil {
			t.Fatal("Push on full queue did not panic")
		}
	}()
	q.Push(3)
}

func TestManyProducersManyConsumers(t *testing.T) {
	q := New[int](1024)
	const (
		producers        = 8
		consumers        = 8
		itemsPerProducer = 10_000
	)

	var sentSum, receivedSum, receivedCount atomic.Int64
	total := int64(producers * itemsPerProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for i := 0; i < itemsPerProducer; i++ {
				val := pid*itemsPerProducer + i + 1
				for !q.TryPush(val) {
					runtime.Gosched()
				}
				sentSum.Add(int64(val))
			}
		}(p)
	}

	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				if v, ok := q.TryPop(); ok {
					receivedSum.Add(int64(v))
					if receivedCount.Add(1) >= total {
						return
					}
				} else {
					if receivedCount.Load() >= total {
						return
					}
					runtime.Gosched()
				}
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	if sentSum.Load() != receivedSum.Load() {
		t.Fatalf("sum mismatch: sent %d, received %d", sentSum.Load(), receivedSum.Load())
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after drain, want 0", q.Len())
	}
}

func BenchmarkPushPop(b *testing.B) {
	q := New[int](1024)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.TryPush(i)
		q.TryPop()
	}
}

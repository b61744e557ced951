package parallel

import "testing"
import "sync/atomic"

func TestForEach(t *testing.T) {
	for _, limit := range []int{-1, 0, 1, 3, 64} {
		var out = make([]int, 100)
		var calls atomic.Int64
		ForEach(len(out), limit, func(i int) {
			out[i] = i * i
			calls.Add(1)
		})
		if calls.Load() != 100 {
			t.Errorf("limit %d: %d calls, want 100", limit, calls.Load())
		}
		for i, v := range out {
			if v != i*i {
				t.Fatalf("limit %d: out[%d] = %d", limit, i, v)
			}
		}
	}
}

func TestForEachEmpty(t *testing.T) {
	ForEach(0, 4, func(i int) {
		t.Fatal("body called for empty range")
	})
}

func TestWorkers(t *testing.T) {
	if Workers() < 1 {
		t.Errorf("Workers() = %d", Workers())
	}
}

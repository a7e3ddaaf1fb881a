package lagrangian

import (
	"math"
	"testing"
)

func TestIteratorForwardSequence(t *testing.T) {
	it := NewIterator(0, 10, 3)
	var got []float64
	got = append(got, it.Current())
	for !it.Done() {
		got = append(got, it.Next())
	}
	want := []float64{0, 3, 6, 9, 10}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestIteratorBackwardSequence(t *testing.T) {
	it := NewIterator(10, 0, 3)
	var got []float64
	got = append(got, it.Current())
	for !it.Done() {
		got = append(got, it.Next())
	}
	want := []float64{10, 7, 4, 1, 0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestIteratorTrivialRange(t *testing.T) {
	it := NewIterator(5, 5, 1)
	if !it.Done() {
		t.Fatalf("expected an immediately-done iterator for t0 == t1")
	}
	if it.Current() != 5 {
		t.Fatalf("got %v, want 5", it.Current())
	}
}

func TestIteratorCloneIsIndependent(t *testing.T) {
	it := NewIterator(0, 10, 5)
	it.Next()
	clone := it.Clone()
	clone.Next()
	if it.Current() == clone.Current() {
		t.Fatalf("expected the clone to advance independently")
	}
}

func TestIteratorNextAfterDoneIsNoOp(t *testing.T) {
	it := NewIterator(0, 4, 2)
	for !it.Done() {
		it.Next()
	}
	if got := it.Next(); got != 4 {
		t.Fatalf("got %v, want the terminal timestamp 4", got)
	}
}

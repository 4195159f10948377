package arbitrage

import (
	"reflect"
	"testing"
)

func TestSearchSizeShrinkSequence(t *testing.T) {
	var tried []float64
	_, _, found := searchSize(500, func(shares float64) (float64, bool) {
		tried = append(tried, shares)
		return 0, false
	})

	if found {
		t.Error("found an opportunity when every size was rejected")
	}
	want := []float64{500, 300, 180, 108, 64}
	if !reflect.DeepEqual(tried, want) {
		t.Errorf("sizes tried = %v, want %v", tried, want)
	}
}

func TestSearchSizeKeepsBestEdge(t *testing.T) {
	size, edge, found := searchSize(500, func(shares float64) (float64, bool) {
		// Smaller clips clear the book more cheaply.
		if shares > 200 {
			return 0, false
		}
		return 1 / shares, true
	})

	if !found {
		t.Fatal("no size found")
	}
	if size != 64 {
		t.Errorf("size = %v, want 64 (the smallest, best-edge clip)", size)
	}
	if edge != 1.0/64 {
		t.Errorf("edge = %v, want %v", edge, 1.0/64)
	}
}

func TestSearchSizeStopsBelowOneShare(t *testing.T) {
	var tried []float64
	_, _, found := searchSize(2, func(shares float64) (float64, bool) {
		tried = append(tried, shares)
		return 0, false
	})

	if found {
		t.Error("found an opportunity when every size was rejected")
	}
	// 2 -> 1 -> 0: the sub-share size is never evaluated.
	want := []float64{2, 1}
	if !reflect.DeepEqual(tried, want) {
		t.Errorf("sizes tried = %v, want %v", tried, want)
	}
}

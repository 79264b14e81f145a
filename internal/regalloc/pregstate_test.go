package regalloc

import "testing"

func TestRangeOverlaps(t *testing.T) {
	a := Range{Start: 0, End: 5}
	b := Range{Start: 4, End: 10}
	c := Range{Start: 5, End: 10}
	if !a.overlaps(b) {
		t.Error("[0,5) and [4,10) should overlap")
	}
	if a.overlaps(c) {
		t.Error("[0,5) and [5,10) are adjacent, not overlapping (half-open)")
	}
}

func TestPregStateInsertAndConflict(t *testing.T) {
	p := &pregState{}
	p.insert([]Range{{Start: 0, End: 10}})

	if conflicts := p.conflict([]Range{{Start: 5, End: 15}}); len(conflicts) == 0 {
		t.Error("expected a conflict for an overlapping range")
	}
	if conflicts := p.conflict([]Range{{Start: 10, End: 20}}); len(conflicts) != 0 {
		t.Errorf("expected no conflict for an adjacent, non-overlapping range, got %v", conflicts)
	}
}

func TestPregStateEvictRemovesOnlyNamedSpans(t *testing.T) {
	p := &pregState{}
	r1 := Range{Start: 0, End: 5}
	r2 := Range{Start: 10, End: 15}
	p.insert([]Range{r1, r2})

	p.evict([]Range{r1})
	if len(p.spans) != 1 || p.spans[0] != r2 {
		t.Errorf("spans after evict = %v, want only %v", p.spans, r2)
	}
	if conflicts := p.conflict([]Range{r1}); len(conflicts) != 0 {
		t.Error("evicted span should no longer conflict")
	}
}

package gas

import "testing"

func TestGasMonotonicity(t *testing.T) {
	tr := NewTracker(1000, DefaultSchedule())
	before := tr.Consumed()
	if err := tr.ConsumeOp(OpDBRead, 10); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if tr.Consumed() < before {
		t.Fatalf("gas tracker must be monotonic non-decreasing: before=%d after=%d", before, tr.Consumed())
	}
}

func TestOutOfGasAbortsAtLimit(t *testing.T) {
	tr := NewTracker(5, DefaultSchedule())
	if err := tr.Consume(3, "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Consume(10, "second"); err == nil {
		t.Fatalf("expected out-of-gas error")
	}
	if tr.Consumed() != tr.Limit() {
		t.Fatalf("expected consumed to clamp at limit after out-of-gas")
	}
}

package orchestrator

import "testing"

func TestAntiReplayGuardMarksAndDetects(t *testing.T) {
	g := newAntiReplayGuard()
	var c [32]byte
	c[0] = 1

	if g.alreadyCommitted(c) {
		t.Fatalf("expected commitment to be unmarked before markCommitted")
	}
	g.markCommitted(c)
	if !g.alreadyCommitted(c) {
		t.Fatalf("expected commitment to be marked after markCommitted")
	}

	var other [32]byte
	other[0] = 2
	if g.alreadyCommitted(other) {
		t.Fatalf("unrelated commitment should not be marked (false positive rate is 1e-6)")
	}
}

package observability

import "testing"

func TestPipelineWindowSnapshot(t *testing.T) {
	w := newPipelineWindow(8)
	w.Observe(StageGenerate, 500)
	w.Observe(StageGenerate, 700)
	w.Observe(StageGenerate, 900)
	w.Observe(StageExtract, 1)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(snap.Stages))
	}

	// Stages are sorted alphabetically: extract before generate.
	if snap.Stages[0].Stage != StageExtract {
		t.Fatalf("Stages[0] = %q, want %q", snap.Stages[0].Stage, StageExtract)
	}
	gen := snap.Stages[1]
	if gen.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", gen.Samples)
	}
	if gen.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", gen.LastMS)
	}
	if gen.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", gen.P50MS)
	}
	if gen.P95MS <= 700 || gen.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", gen.P95MS)
	}
}

func TestPipelineWindowWrapAround(t *testing.T) {
	w := newPipelineWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StagePersist, float64(i))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("Samples = %d, want 4", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("LastMS = %.2f, want 9", snap.Stages[0].LastMS)
	}
}

package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"boardvm/pkg/evaluator"
	"boardvm/pkg/ioport"
	"boardvm/pkg/loader"
	"boardvm/pkg/random"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.mbl", "01\n{0\n")

	prog, err := loader.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, ok := prog.MB()
	if !ok {
		t.Fatalf("MB board not found")
	}

	ev := evaluator.New(prog, ioport.NewBuffer(nil), random.NewMathRand(1), evaluator.Config{}, nil)
	rs := ev.NewRunState(b, 0)
	ev.Tick(rs, false)

	data, err := Save(rs, prog)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, err := Restore(data, prog)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if restored.Board != b {
		t.Fatalf("restored board = %p; want %p", restored.Board, b)
	}
	if restored.Tick != rs.Tick {
		t.Fatalf("restored tick = %d; want %d", restored.Tick, rs.Tick)
	}
	if len(restored.Cur) != len(rs.Cur) {
		t.Fatalf("restored Cur length = %d; want %d", len(restored.Cur), len(rs.Cur))
	}
	for i := range rs.Cur {
		if restored.Cur[i] != rs.Cur[i] {
			t.Fatalf("restored Cur[%d] = %+v; want %+v", i, restored.Cur[i], rs.Cur[i])
		}
	}

	// The restored state must continue ticking identically to the original.
	ev.Tick(rs, false)
	ev.Tick(restored, false)
	for i := range rs.Cur {
		if restored.Cur[i] != rs.Cur[i] {
			t.Fatalf("post-restore Cur[%d] diverged: %+v vs %+v", i, restored.Cur[i], rs.Cur[i])
		}
	}
}

func TestRestoreRejectsTruncatedArchive(t *testing.T) {
	dir := t.TempDir()
	path := writeSource(t, dir, "prog.mbl", "01\n{0\n")
	prog, err := loader.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, _ := prog.MB()

	ev := evaluator.New(prog, ioport.NewBuffer(nil), random.NewMathRand(1), evaluator.Config{}, nil)
	rs := ev.NewRunState(b, 0)

	data, err := Save(rs, prog)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Restore(data[:len(data)-1], prog); err == nil {
		t.Fatalf("Restore of truncated archive should fail")
	}
}

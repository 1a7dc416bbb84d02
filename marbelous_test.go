package boardvm

import (
	"os"
	"path/filepath"
	"testing"

	"boardvm/pkg/ioport"
)

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
	return path
}

// TestEndToEndDeflectorFallsToStdout is spec §8 scenario 2: a marble
// enters a RIGHT_DEFLECTOR from above, deflects into the next column, then
// falls off the bottom row to stdout.
func TestEndToEndDeflectorFallsToStdout(t *testing.T) {
	dir := t.TempDir()
	src := "41..\n\\\\..\n....\n"
	path := writeSource(t, dir, "prog.mbl", src)

	prog, err := LoadProgram(path, nil)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	mb, ok := prog.MB()
	if !ok {
		t.Fatal("expected default board MB")
	}

	buf := ioport.NewBuffer(nil)
	m := NewMachine(prog, buf, Config{}, nil)

	if _, _, _, stdout := m.CallBoard(mb, nil); len(stdout) != 1 || stdout[0] != 0x41 {
		t.Fatalf("stdout = %v; want [0x41]", stdout)
	}
	if len(buf.Written) != 1 || buf.Written[0] != 0x41 {
		t.Fatalf("IoPort.Written = %v; want [0x41]", buf.Written)
	}
}

// TestEndToEndSubBoardCall is spec §8 scenario 5: a length-1 board ID
// copies its declared input straight down to its declared output. The
// host seeds its own input cell, lets it fall one row into the call site,
// and splices ID's result one row below that into its own output.
func TestEndToEndSubBoardCall(t *testing.T) {
	dir := t.TempDir()
	src := ":ID\n}0\n{0\n:MB\n}0\nID\n{0\n"
	path := writeSource(t, dir, "prog.mbl", src)

	prog, err := LoadProgram(path, nil)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	mb, ok := prog.MB()
	if !ok {
		t.Fatal("expected default board MB")
	}

	m := NewMachine(prog, nil, Config{}, nil)
	outputs, _, _, _ := m.CallBoard(mb, []byte{0x2A})

	if !outputs[0].Occupied || outputs[0].Value != 0x2A {
		t.Fatalf("outputs[0] = %+v; want occupied 0x2A", outputs[0])
	}
}

// TestEndToEndPortalPair is spec §8 scenario 4: a marble entering one of
// two portals sharing a label deterministically emerges from the other,
// since a two-member group has exactly one "other" to pick.
func TestEndToEndPortalPair(t *testing.T) {
	dir := t.TempDir()
	src := "FF..\n@0@0\n..{0\n"
	path := writeSource(t, dir, "prog.mbl", src)

	prog, err := LoadProgram(path, nil)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	mb, ok := prog.MB()
	if !ok {
		t.Fatal("expected default board MB")
	}

	m := NewMachine(prog, nil, Config{}, nil)
	outputs, _, _, _ := m.CallBoard(mb, nil)

	if !outputs[0].Occupied || outputs[0].Value != 0xFF {
		t.Fatalf("outputs[0] = %+v; want occupied 0xFF", outputs[0])
	}
}

// TestEndToEndStepwiseMatchesCollapsed is spec §9's claim that a batch
// call() recursing immediately reaches the same observable end-state as
// the stepwise NewRunState/PrepareBoardCalls/Tick(usePrepared)/Finalize
// surface a visualiser drives one step at a time.
func TestEndToEndStepwiseMatchesCollapsed(t *testing.T) {
	dir := t.TempDir()
	src := ":ID\n}0\n{0\n:MB\n}0\nID\n{0\n"
	path := writeSource(t, dir, "prog.mbl", src)

	prog, err := LoadProgram(path, nil)
	if err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	mb, ok := prog.MB()
	if !ok {
		t.Fatal("expected default board MB")
	}

	m := NewMachine(prog, nil, Config{}, nil)
	rs := m.NewRunState(mb, []byte{0x17})

	for {
		m.PrepareBoardCalls(rs)
		m.Tick(rs, true)
		if m.IsFinished(rs) {
			break
		}
	}
	m.Finalize(rs)

	if !rs.Outputs[0].Occupied || rs.Outputs[0].Value != 0x17 {
		t.Fatalf("stepwise outputs[0] = %+v; want occupied 0x17", rs.Outputs[0])
	}

	collapsed, _, _, _ := m.CallBoard(mb, []byte{0x17})
	if collapsed[0] != rs.Outputs[0] {
		t.Fatalf("collapsed outputs[0] = %+v; stepwise = %+v", collapsed[0], rs.Outputs[0])
	}
}

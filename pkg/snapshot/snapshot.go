// Package snapshot serializes a RunState tree (a host invocation plus every
// child invocation a sub-board call has spawned) into a single zip archive,
// and restores one, so a stepwise caller can pause mid call and resume in a
// later process.
//
// Grounded on the teacher's pkg/cpu/hibernate.go: a JSON control-state
// envelope inside a zip archive, open for further entries if a future
// revision needs binary ones. A RunState tree is small and entirely
// JSON-shaped (no large binary planes the way CPU memory/graphics banks
// are), so one JSON entry suffices here instead of hibernate.go's many.
package snapshot

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"boardvm/pkg/board"
	"boardvm/pkg/runstate"
)

// formatVersion guards against restoring an archive written by an
// incompatible future revision of this package.
const formatVersion = 1

// BoardLocator resolves a *board.Board back to its index within a Program,
// the inverse of runstate.BoardIndexer. Implemented by *loader.Program.
type BoardLocator interface {
	IndexOf(b *board.Board) int
}

type meta struct {
	Version int `json:"version"`
}

type callState struct {
	Site  board.BoardCall `json:"site"`
	Ready bool            `json:"ready"`
	Child *nodeState      `json:"child,omitempty"`
}

type nodeState struct {
	BoardIndex int `json:"board_index"`
	Indents    uint32
	Tick       uint32

	Cur           []runstate.Marble
	Next          []runstate.Marble
	StdoutStaging []runstate.Marble

	OutputsFilled [board.NumLabels]bool
	LeftFilled    bool
	RightFilled   bool
	NoOutput      bool

	MarblesMoved      bool
	TerminatorReached bool

	Outputs     [board.NumLabels]runstate.Marble
	OutputLeft  runstate.Marble
	OutputRight runstate.Marble

	StdoutText []byte

	Prepared  []callState `json:"prepared,omitempty"`
	Processed []callState `json:"processed,omitempty"`
}

// Save serializes rs and every nested Prepared/Processed child into a zip
// archive. loc resolves each node's board back to an index so the archive
// carries no pointers, only integers meaningful against the Program that
// Restore is later given.
func Save(rs *runstate.RunState, loc BoardLocator) ([]byte, error) {
	root, err := toNode(rs, loc)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	metaJSON, err := json.Marshal(meta{Version: formatVersion})
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if err := writeZipEntry(zw, "meta.json", metaJSON); err != nil {
		return nil, err
	}

	nodeJSON, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal runstate: %w", err)
	}
	if err := writeZipEntry(zw, "runstate.json", nodeJSON); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore rebuilds a RunState tree from an archive written by Save. prog
// resolves each node's stored board index back to a *board.Board; it must
// be (a view onto) the same Program the tree was saved against.
func Restore(data []byte, prog runstate.BoardIndexer) (*runstate.RunState, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	metaJSON, err := readZipEntry(files, "meta.json")
	if err != nil {
		return nil, err
	}
	var m meta
	if err := json.Unmarshal(metaJSON, &m); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if m.Version != formatVersion {
		return nil, fmt.Errorf("snapshot: unsupported format version %d", m.Version)
	}

	nodeJSON, err := readZipEntry(files, "runstate.json")
	if err != nil {
		return nil, err
	}
	var root nodeState
	if err := json.Unmarshal(nodeJSON, &root); err != nil {
		return nil, fmt.Errorf("unmarshal runstate: %w", err)
	}

	return fromNode(&root, prog)
}

func toNode(rs *runstate.RunState, loc BoardLocator) (*nodeState, error) {
	idx := loc.IndexOf(rs.Board)
	if idx < 0 {
		return nil, fmt.Errorf("snapshot: board %q not found in program", rs.Board.FullName)
	}

	n := &nodeState{
		BoardIndex:        idx,
		Indents:           rs.Indents,
		Tick:              rs.Tick,
		Cur:               rs.Cur,
		Next:              rs.Next,
		StdoutStaging:     rs.StdoutStaging,
		OutputsFilled:     rs.OutputsFilled,
		LeftFilled:        rs.LeftFilled,
		RightFilled:       rs.RightFilled,
		NoOutput:          rs.NoOutput,
		MarblesMoved:      rs.MarblesMoved,
		TerminatorReached: rs.TerminatorReached,
		Outputs:           rs.Outputs,
		OutputLeft:        rs.OutputLeft,
		OutputRight:       rs.OutputRight,
		StdoutText:        rs.StdoutText,
	}

	for _, call := range rs.Prepared {
		cs := callState{Site: call.Site, Ready: call.Child != nil}
		if call.Child != nil {
			child, err := toNode(call.Child, loc)
			if err != nil {
				return nil, err
			}
			cs.Child = child
		}
		n.Prepared = append(n.Prepared, cs)
	}
	for _, call := range rs.Processed {
		cs := callState{Site: call.Site, Ready: call.Child != nil}
		if call.Child != nil {
			child, err := toNode(call.Child, loc)
			if err != nil {
				return nil, err
			}
			cs.Child = child
		}
		n.Processed = append(n.Processed, cs)
	}
	return n, nil
}

func fromNode(n *nodeState, prog runstate.BoardIndexer) (*runstate.RunState, error) {
	b := prog.BoardAt(n.BoardIndex)
	if b == nil {
		return nil, fmt.Errorf("snapshot: board index %d not found in program", n.BoardIndex)
	}

	rs := &runstate.RunState{
		Board:             b,
		Program:           prog,
		Indents:           n.Indents,
		Tick:              n.Tick,
		Cur:               n.Cur,
		Next:              n.Next,
		StdoutStaging:     n.StdoutStaging,
		OutputsFilled:     n.OutputsFilled,
		LeftFilled:        n.LeftFilled,
		RightFilled:       n.RightFilled,
		NoOutput:          n.NoOutput,
		MarblesMoved:      n.MarblesMoved,
		TerminatorReached: n.TerminatorReached,
		Outputs:           n.Outputs,
		OutputLeft:        n.OutputLeft,
		OutputRight:       n.OutputRight,
		StdoutText:        n.StdoutText,
	}

	for _, cs := range n.Prepared {
		call, err := fromCall(cs, prog)
		if err != nil {
			return nil, err
		}
		rs.Prepared = append(rs.Prepared, call)
	}
	for _, cs := range n.Processed {
		call, err := fromCall(cs, prog)
		if err != nil {
			return nil, err
		}
		rs.Processed = append(rs.Processed, call)
	}
	return rs, nil
}

func fromCall(cs callState, prog runstate.BoardIndexer) (*runstate.Call, error) {
	call := &runstate.Call{Site: cs.Site}
	if cs.Child != nil {
		child, err := fromNode(cs.Child, prog)
		if err != nil {
			return nil, err
		}
		call.Child = child
	}
	return call, nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

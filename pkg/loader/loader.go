// Package loader turns one source file, plus its transitive #include
// graph, into a resolved board.Board graph: it splits files into board
// declarations, parses each grid, and resolves contiguous runs of
// board-call candidate cells against declared board names by longest
// match.
//
// Grounded in shape on the teacher's pkg/asm (two-pass: a first pass that
// discovers declarations, a second that resolves references against them)
// and in exact semantics on original_source/src/load.cpp.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"boardvm/pkg/board"
	"boardvm/pkg/device"
	"boardvm/pkg/sourcefs"
)

// Program is the result of a successful Load: every board reachable from
// the root file (directly or transitively through #include), addressed by
// index to break the Board<->BoardCall<->Cell reference cycle (spec §9).
type Program struct {
	Boards []*board.Board

	// entry holds the boards declared directly in the root file, keyed by
	// ActualName — mirroring the reference loader's load_mbl_file, whose
	// returned lookup is deliberately non-transitive: a caller may only
	// invoke a board the root file itself declares, not one buried in an
	// include.
	entry map[string]int
}

// Find resolves name against the program's directly-declared boards using
// the same cyclic-repetition equivalence the board-call resolver uses.
func (p *Program) Find(name string) (*board.Board, bool) {
	for actual, id := range p.entry {
		if board.NamesEquivalent(actual, name) {
			return p.Boards[id], true
		}
	}
	return nil, false
}

// MB returns the file's default board, declared implicitly before any
// ":NAME" directive.
func (p *Program) MB() (*board.Board, bool) {
	return p.Find("MB")
}

// BoardAt resolves a BoardCall's BoardIndex to its Board, implementing
// runstate.BoardIndexer.
func (p *Program) BoardAt(index int) *board.Board {
	return p.Boards[index]
}

// IndexOf returns b's position in Boards, implementing snapshot.BoardLocator
// so a RunState tree can be serialized by board index rather than by
// pointer. Returns -1 if b does not belong to this Program.
func (p *Program) IndexOf(b *board.Board) int {
	for i, candidate := range p.Boards {
		if candidate == b {
			return i
		}
	}
	return -1
}

// Loader reads source files through a sandboxed, cached sourcefs.FS and
// assembles their boards into a single Program.
type Loader struct {
	fs     *sourcefs.FS
	logger *slog.Logger

	mu     sync.Mutex
	boards []*board.Board
}

// New returns a Loader rooted at the directory containing the entry file.
// A nil logger defaults to slog.Default().
func New(fs *sourcefs.FS, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: fs, logger: logger}
}

// Load reads path and its transitive #include graph, and returns the
// assembled Program.
func Load(path string, logger *slog.Logger) (*Program, error) {
	fs, err := sourcefs.New(dirOf(path))
	if err != nil {
		return nil, err
	}
	ld := New(fs, logger)
	self, _, err := ld.loadFile(path)
	if err != nil {
		return nil, err
	}
	return &Program{Boards: ld.boards, entry: self}, nil
}

func dirOf(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[:i]
	}
	return "."
}

func (l *Loader) appendBoard(b *board.Board) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boards = append(l.boards, b)
	return len(l.boards) - 1
}

type segment struct {
	isInclude   bool
	includePath string
	includeLine int

	shortName string
	nameLine  int
	gridLines []Line
}

// splitSegments partitions a file's non-blank lines into #include
// directives and board declarations, attaching each grid row to the most
// recently opened board (or the implicit default board "MB" if no ":NAME"
// directive has appeared yet).
func splitSegments(lines []Line) ([]segment, error) {
	var segments []segment
	lastBoard := -1

	for _, ln := range lines {
		if ln.Stripped() == "" {
			continue
		}
		if ln.IsInclude() {
			segments = append(segments, segment{
				isInclude:   true,
				includePath: ln.IncludePath(),
				includeLine: ln.Number,
			})
			continue
		}
		if ln.IsBoardDirective() {
			name := ln.BoardName()
			if name == "" {
				return nil, ln.Errorf("%w", ErrUnnamedBoard)
			}
			segments = append(segments, segment{shortName: name, nameLine: ln.Number})
			lastBoard = len(segments) - 1
			continue
		}
		if lastBoard == -1 {
			segments = append(segments, segment{shortName: "MB", nameLine: ln.Number})
			lastBoard = len(segments) - 1
		}
		segments[lastBoard].gridLines = append(segments[lastBoard].gridLines, ln)
	}
	return segments, nil
}

func splitLines(path string, data []byte) []Line {
	raw := strings.Split(string(data), "\n")
	lines := make([]Line, 0, len(raw))
	for i, text := range raw {
		text = strings.TrimRight(text, "\r")
		lines = append(lines, NewLine(path, i+1, text))
	}
	return lines
}

type includeResult struct {
	merged map[string]int
}

// loadFile parses one file (reading it through l.fs) and returns two
// lookups by ActualName: self holds only the boards this file declares
// directly, merged additionally folds in every name visible through its
// #include graph (itself merged recursively) minus each included file's
// own private "MB". Load uses the root file's self as the Program's entry
// table; merged is what an including file folds into its own tables, and
// is also what this file's own board-call resolution may reference.
//
// Sibling #include directives are read and recursively parsed
// concurrently via errgroup, since the work is I/O-bound and independent;
// the merge back into this file's own tables afterward is strictly
// sequential and declaration-order-dependent, to preserve the reference
// loader's shadowing rules exactly.
func (l *Loader) loadFile(path string) (self, merged map[string]int, err error) {
	data, err := l.fs.Read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrLoadIO, path, err)
	}

	lines := splitLines(path, data)
	segments, err := splitSegments(lines)
	if err != nil {
		return nil, nil, err
	}

	includeResults := make([]includeResult, len(segments))
	g, _ := errgroup.WithContext(context.Background())
	for i := range segments {
		i := i
		seg := segments[i]
		if !seg.isInclude {
			continue
		}
		g.Go(func() error {
			includePath := l.fs.Resolve(path, seg.includePath)
			_, childMerged, err := l.loadFile(includePath)
			if err != nil {
				return fmt.Errorf("%s:%d: including %q: %w", path, seg.includeLine, seg.includePath, err)
			}
			includeResults[i] = includeResult{merged: childMerged}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	selfIDs := make(map[string]int)
	includeIDs := make(map[string]int)
	sourceByID := make(map[int][]pendingRun)

	for i, seg := range segments {
		if seg.isInclude {
			for name, id := range includeResults[i].merged {
				if board.NamesEquivalent(name, "MB") {
					continue
				}
				for sname := range selfIDs {
					if board.NamesEquivalent(name, sname) {
						delete(selfIDs, sname)
						break
					}
				}
				includeIDs[name] = id
			}
			continue
		}

		b := &board.Board{
			ShortName: seg.shortName,
			FullName:  fmt.Sprintf("%s:%d#%s", path, seg.nameLine, seg.shortName),
		}
		runs, err := loadBoardGrid(seg.gridLines, b)
		if err != nil {
			return nil, nil, err
		}
		b.Initialize()
		id := l.appendBoard(b)
		sourceByID[id] = runs

		for name := range includeIDs {
			if board.NamesEquivalent(name, b.ActualName) {
				delete(includeIDs, name)
			}
		}
		selfIDs[b.ActualName] = id
	}

	if err := l.resolveBoardCalls(sourceByID, selfIDs, includeIDs); err != nil {
		return nil, nil, err
	}

	merged = make(map[string]int, len(selfIDs)+len(includeIDs))
	for k, v := range includeIDs {
		merged[k] = v
	}
	for k, v := range selfIDs {
		merged[k] = v
	}
	return selfIDs, merged, nil
}

// resolveBoardCalls resolves every pending board-call run recorded while
// parsing this file's own boards, against the combined set of this file's
// own boards and the boards visible through its includes (spec §4.7).
func (l *Loader) resolveBoardCalls(sourceByID map[int][]pendingRun, selfIDs, includeIDs map[string]int) error {
	candidates := make(map[string]int, len(selfIDs)+len(includeIDs))
	for k, v := range includeIDs {
		candidates[k] = v
	}
	for k, v := range selfIDs {
		candidates[k] = v
	}

	for id, runs := range sourceByID {
		b := l.boards[id]
		for _, run := range runs {
			if err := resolveRun(b, run, candidates); err != nil {
				return fmt.Errorf("%s: %w", b.FullName, err)
			}
		}
	}
	return nil
}

// resolveRun repeatedly matches the longest declared board name that is a
// prefix of the remaining call text, emitting a BoardCall and patching the
// corresponding host cells to reference it.
func resolveRun(b *board.Board, run pendingRun, candidates map[string]int) error {
	text := run.Text
	pos := 0
	for pos < len(text) {
		bestLen := 0
		bestID := -1
		for name, id := range candidates {
			if len(name) == 0 || len(name) > len(text)-pos || len(name) <= bestLen {
				continue
			}
			if text[pos:pos+len(name)] == name {
				bestLen = len(name)
				bestID = id
			}
		}
		if bestID < 0 {
			return fmt.Errorf("%w: %q at row %d col %d", ErrUnresolvedBoardCall, text[pos:], run.Y, run.XStart+pos/2)
		}

		callIndex := len(b.BoardCalls)
		cellCount := bestLen / 2
		x0 := run.XStart + pos/2
		b.BoardCalls = append(b.BoardCalls, board.BoardCall{BoardIndex: bestID, X: x0, Y: run.Y})
		for i := 0; i < cellCount; i++ {
			loc := b.Index(x0+i, run.Y)
			b.Cells[loc].Kind = device.BoardRef
			b.Cells[loc].CallIndex = callIndex
		}
		pos += bestLen
	}
	return nil
}

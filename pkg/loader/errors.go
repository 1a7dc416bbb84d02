package loader

import "errors"

// Sentinel error kinds, wrapped with %w so callers can errors.Is/errors.As
// against them, mirroring the teacher's pkg/vfs sentinel errors
// (ErrFileNotFound / ErrInvalidFilename / ErrQuotaExceeded).
var (
	// ErrLoadIO is returned when a source file (root or #include target)
	// cannot be read from disk.
	ErrLoadIO = errors.New("loader: source file unreadable")
	// ErrLex is returned for a malformed row: odd unspaced length, a
	// spaced row whose length is not 3n-1, or a misplaced space in a
	// spaced row. Rows narrower than the board's widest row are padded
	// with BLANK, not rejected.
	ErrLex = errors.New("loader: malformed row")
	// ErrUnnamedBoard is returned for a ":" directive with an empty name.
	ErrUnnamedBoard = errors.New("loader: board directive has empty name")
	// ErrUnresolvedBoardCall is returned when a run of board-reference
	// candidate cells has no declared board name as a prefix.
	ErrUnresolvedBoardCall = errors.New("loader: unresolved sub-board call")
)

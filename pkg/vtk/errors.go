package vtk

import (
	"errors"
	"fmt"
)

// Parse error kinds.
var (
	ErrMalformedHeader       = errors.New("malformed header")
	ErrUnsupportedCellType   = errors.New("unsupported cell type")
	ErrAttributeSizeMismatch = errors.New("attribute size mismatch")
	ErrTruncatedStream       = errors.New("truncated stream")
	ErrUnsupportedFormat     = errors.New("unsupported format")
)

// ParseError describes a failed parse with its kind and location.
// The location is "path:line" for text input or "path@offset" for binary
// sections; path may be empty when parsing from memory.
type ParseError struct {
	Kind   error  // one of the Err* sentinels above
	Path   string // source file, empty for in-memory buffers
	Line   int    // 1-based line of the failure, 0 if unknown
	Detail string // human-readable context
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if loc == "" {
		return fmt.Sprintf("vtk: %v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("vtk: %s: %v: %s", loc, e.Kind, e.Detail)
}

// Unwrap returns the error kind so callers can match with errors.Is.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

func parseErrf(kind error, line int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:   kind,
		Line:   line,
		Detail: fmt.Sprintf(format, args...),
	}
}

package ion

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalState           = errors.New("illegal state")
	ErrIllegalArgument        = errors.New("illegal argument")
	ErrReadOnly               = errors.New("value is read-only")
	ErrContained              = errors.New("value is already contained")
	ErrConcurrentModification = errors.New("container was modified during iteration")
	ErrUnexpectedEOF          = errors.New("unexpected end of input")
)

// SyntaxError reports malformed input. It is fatal for the stream it was
// raised on.
type SyntaxError struct {
	Msg    string // may be empty when Err says it all
	Offset int64 // -1 when position is not known
	Err    error // optional cause
}

// NewSyntaxError formats new SyntaxError at a given input offset.
func NewSyntaxError(offset int64, format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Offset: offset}
}

func (e *SyntaxError) Error() string {
	msg := e.Msg
	switch {
	case e.Err != nil && msg == "":
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at position %d", msg, e.Offset)
	}
	return msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// UnknownSymbolError is raised when text is requested for a symbol whose text
// is not available. It does not poison the stream.
type UnknownSymbolError struct {
	SID int64
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol text for $%d", e.SID)
}

// UsageError is a programming error: operation requested in a state or with
// arguments which do not allow it. Err is one of the package sentinels.
type UsageError struct {
	Op  string
	Msg string
	Err error
}

// NewUsageError returns UsageError wrapping ErrIllegalState.
func NewUsageError(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrIllegalState}
}

// NewArgumentError returns UsageError wrapping ErrIllegalArgument.
func NewArgumentError(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrIllegalArgument}
}

func (e *UsageError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ValueError rejects a value outside of its domain: invalid calendar date,
// negative seconds, bad code point and such.
type ValueError struct {
	Kind string
	Msg  string
}

// NewValueError formats new ValueError for the value kind.
func NewValueError(kind, format string, args ...any) *ValueError {
	return &ValueError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Msg)
}

// IsSyntax checks if error chain has SyntaxError in it.
func IsSyntax(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// IsUnknownSymbol checks if error chain has UnknownSymbolError in it.
func IsUnknownSymbol(err error) bool {
	var ue *UnknownSymbolError
	return errors.As(err, &ue)
}

// IsUsage checks if error chain has UsageError in it.
func IsUsage(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsValue checks if error chain has ValueError in it.
func IsValue(err error) bool {
	var ve *ValueError
	return errors.As(err, &ve)
}

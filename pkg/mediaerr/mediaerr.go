// Package mediaerr defines the closed set of failure kinds surfaced by the
// thumbnail pipeline, so callers can pick a response without inspecting
// message text.
package mediaerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	Unknown Kind = iota
	// IO covers upload stream and temp storage failures.
	IO
	// Decode means the file is not a decodable container or has no readable frames.
	Decode
	// FrameOutOfRange means the requested timestamp is at or past the clip duration.
	FrameOutOfRange
	// Encode means the raster image could not be built or serialized.
	Encode
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	IO:              "io",
	Decode:          "decode",
	FrameOutOfRange: "frame_out_of_range",
	Encode:          "encode",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is checks.
var (
	ErrIO              = &Error{Kind: IO}
	ErrDecode          = &Error{Kind: Decode}
	ErrFrameOutOfRange = &Error{Kind: FrameOutOfRange}
	ErrEncode          = &Error{Kind: Encode}
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E wraps err with a kind and operation name. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches bare sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures.
type ErrorKind string

const (
	// KindDecode means a field value or the document itself could not be read.
	KindDecode ErrorKind = "decode"
	// KindSerialize means the stripped document could not be re-written.
	KindSerialize ErrorKind = "serialize"
	// KindExternalTool means a conversion process failed, timed out or is missing.
	KindExternalTool ErrorKind = "external-tool"
	// KindIO means a rename, erase or temp-file step failed.
	KindIO ErrorKind = "io"
	// KindUnsupported means no adapter handles the file.
	KindUnsupported ErrorKind = "unsupported"
)

// Stage names the step of the rasterize fallback an error came from.
type Stage string

const (
	StageRasterize  Stage = "rasterize"
	StageStrip      Stage = "strip"
	StageReassemble Stage = "reassemble"
)

// Error is the typed error returned by adapters.
type Error struct {
	Kind    ErrorKind
	Stage   Stage
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix += "/" + string(e.Stage)
	}
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", prefix, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Partial reports whether intermediate files had been produced when the
// error occurred. A rasterize failure happens before anything is written.
func (e *Error) Partial() bool {
	return e.Stage == StageStrip || e.Stage == StageReassemble
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, path, message string, err error) *Error {
	return &Error{Kind: kind, Path: path, Message: message, Err: err}
}

func DecodeError(path, message string, err error) *Error {
	return NewError(KindDecode, path, message, err)
}

func SerializeError(path, message string, err error) *Error {
	return NewError(KindSerialize, path, message, err)
}

func IOError(path, message string, err error) *Error {
	return NewError(KindIO, path, message, err)
}

func UnsupportedError(path, message string) *Error {
	return NewError(KindUnsupported, path, message, nil)
}

// ExternalToolError creates a KindExternalTool error tagged with the
// fallback stage it happened in.
func ExternalToolError(stage Stage, path, message string, err error) *Error {
	e := NewError(KindExternalTool, path, message, err)
	e.Stage = stage
	return e
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StageOf returns the fallback stage recorded in err's chain, if any.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("domain: not found")
	ErrUnsupportedFormat = errors.New("domain: unsupported audio format")
	ErrFileTooLarge      = errors.New("domain: file too large")
	ErrSilentOrTooQuiet  = errors.New("domain: audio silent or too quiet")
	ErrDecode            = errors.New("domain: audio decode failed")
	ErrAnalysis          = errors.New("domain: feature extraction failed")
	ErrInternal          = errors.New("domain: internal error")
	ErrInvalidInput      = errors.New("domain: invalid input")
)

// UnsupportedFormatError is returned before any decode work when the upload's
// extension is not in the accepted set.
type UnsupportedFormatError struct {
	Ext       string
	Supported []string
}

func (e UnsupportedFormatError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported audio format %q", e.Ext)
	}
	return fmt.Sprintf("unsupported audio format %q (supported: %s)", e.Ext, strings.Join(e.Supported, ", "))
}

func (e UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// FileTooLargeError reports an upload above the configured ceiling.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds %d", e.Size, e.Limit)
}

func (e FileTooLargeError) Is(target error) bool {
	return target == ErrFileTooLarge
}

// SilentOrTooQuietError covers uploads too small to hold useful audio and
// decoded buffers with no usable signal.
type SilentOrTooQuietError struct {
	Size   int64
	Reason string
}

func (e SilentOrTooQuietError) Error() string {
	if e.Reason != "" {
		return "audio silent or too quiet: " + e.Reason
	}
	return fmt.Sprintf("audio silent or too quiet: %d bytes", e.Size)
}

func (e SilentOrTooQuietError) Is(target error) bool {
	return target == ErrSilentOrTooQuiet
}

// DecodeError wraps a failed decode. Stderr holds the decoder's diagnostic
// output for logs and never appears in Error().
type DecodeError struct {
	Stderr string
	Err    error
}

func (e DecodeError) Error() string {
	if e.Err == nil {
		return "audio decode failed"
	}
	return "audio decode failed: " + e.Err.Error()
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

func (e DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// AnalysisError is raised by the primary extractor. Callers recover from it
// by running the fallback estimator.
type AnalysisError struct {
	Stage string
	Err   error
}

func (e AnalysisError) Error() string {
	msg := "feature extraction failed"
	if e.Stage != "" {
		msg += " at " + e.Stage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e AnalysisError) Unwrap() error {
	return e.Err
}

func (e AnalysisError) Is(target error) bool {
	return target == ErrAnalysis
}

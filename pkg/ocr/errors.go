package ocr

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package and its backends matches
// exactly one of these through errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDocumentFormat    = errors.New("invalid document")
	ErrBackendTimeout    = errors.New("ocr service timed out")
	ErrBackendNetwork    = errors.New("ocr service unreachable")
	ErrBackendProcessing = errors.New("ocr processing failed")
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
)

var kinds = []error{
	ErrUnsupportedFormat,
	ErrDocumentFormat,
	ErrBackendTimeout,
	ErrBackendNetwork,
	ErrBackendProcessing,
	ErrEngineUnavailable,
}

// Error attaches a kind and the failing operation to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap classifies cause under kind. A nil cause still yields an error.
func Wrap(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Errorf is Wrap with a formatted cause.
func Errorf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind sentinel err belongs to, or ErrBackendProcessing
// for errors that were never classified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrBackendProcessing
}

// ensureKind returns err untouched when it already carries a kind, otherwise
// wraps it under kind.
func ensureKind(kind error, op string, err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return Wrap(kind, op, err)
}

package bootimg

import (
	"errors"
	"fmt"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// Kind classifies an Error.
type Kind int

const (
	// KindInvalidArgument indicates a caller error (bad alignment, bad whence).
	KindInvalidArgument Kind = iota + 1
	// KindFileFormat indicates the file contents violate the format.
	KindFileFormat
	// KindUnsupported indicates a field or entry type the active format
	// does not accept.
	KindUnsupported
	// KindUnknownOption indicates an unrecognized option key.
	KindUnknownOption
	// KindInternal indicates a bug or unusable instance state.
	KindInternal
	// KindIO wraps a file-layer error.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindFileFormat:
		return "file format"
	case KindUnsupported:
		return "unsupported"
	case KindUnknownOption:
		return "unknown option"
	case KindInternal:
		return "internal error"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the structured error produced by the boot image engine. Fatal
// marks the owning Reader or Writer unusable; Warn marks recoverable
// conditions (a format that did not match during probing) that must not
// abort a probe the way an I/O failure does.
type Error struct {
	Kind  Kind
	Msg   string
	Fatal bool
	Warn  bool
	Err   error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel conditions surfaced during iteration and probing.
var (
	// ErrEndOfEntries is returned after the last entry has been read or
	// written.
	ErrEndOfEntries = errors.New("no more entries")
	// ErrEntryNotFound is returned by GoToEntry for an absent entry type.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrFormatNotFound is returned when no enabled format wins a bid.
	ErrFormatNotFound = errors.New("no enabled format matched the file")

	// errCannotWin is returned by a bid that cannot beat the best score
	// seen so far; the dispatcher skips the codec without reading the file.
	errCannotWin = errors.New("bid cannot win")
)

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func fatalf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Fatal: true}
}

func warnf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Warn: true}
}

// wrapFile wraps a file-layer error, carrying its fatal bit forward.
func wrapFile(err error, format string, args ...any) *Error {
	return &Error{
		Kind:  KindIO,
		Msg:   fmt.Sprintf(format, args...) + ": " + err.Error(),
		Fatal: iofile.IsFatal(err),
		Err:   err,
	}
}

// IsFatal reports whether err leaves the Reader or Writer unusable.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Fatal
}

// IsWarn reports whether err is a recoverable probe-level condition.
func IsWarn(err error) bool {
	if errors.Is(err, ErrFormatNotFound) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Warn
}

// Package iofile defines the seekable byte store consumed by the boot image
// codecs, plus OS-file, in-memory, and mmap-backed implementations.
package iofile

import "errors"

// Whence selects the reference point for Seek.
type Whence int

const (
	// SeekSet seeks relative to the start of the file.
	SeekSet Whence = iota
	// SeekCur seeks relative to the current position.
	SeekCur
	// SeekEnd seeks relative to the end of the file.
	SeekEnd
)

// File is a seekable byte-addressable store.
//
// ReadFully reads len(p) bytes unless it hits EOF, in which case it returns
// the number of bytes actually read with a nil error. A short read is only
// ever caused by EOF. WriteFully writes all of p or returns an error.
type File interface {
	Seek(offset int64, whence Whence) (int64, error)
	ReadFully(p []byte) (int, error)
	WriteFully(p []byte) (int, error)
	Truncate(size int64) error
	Position() (int64, error)
}

// Error is the error type produced by File implementations. Fatal marks
// unrecoverable states (corrupt handle, closed file) as opposed to
// recoverable I/O failures.
type Error struct {
	Code  int
	Msg   string
	Fatal bool
}

func (e *Error) Error() string {
	return e.Msg
}

// IsFatal reports whether err is (or wraps) a fatal file error.
func IsFatal(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Fatal
}

package iofile

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// OSFile is a File backed by an *os.File.
type OSFile struct {
	f *os.File
}

// Open opens path for reading.
func Open(path string) (*OSFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Msg: "open " + path + ": " + err.Error()}
	}
	return &OSFile{f: f}, nil
}

// Create creates or truncates path for reading and writing.
func Create(path string) (*OSFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &Error{Msg: "create " + path + ": " + err.Error()}
	}
	return &OSFile{f: f}, nil
}

// Close closes the underlying file. Operations after Close fail fatally.
func (o *OSFile) Close() error {
	if err := o.f.Close(); err != nil {
		return o.wrap("close", err)
	}
	return nil
}

func (o *OSFile) wrap(op string, err error) *Error {
	// A closed or invalid handle cannot recover; plain I/O errors can.
	fatal := errors.Is(err, os.ErrClosed) || errors.Is(err, fs.ErrInvalid)
	return &Error{Msg: op + ": " + err.Error(), Fatal: fatal}
}

func (o *OSFile) Seek(offset int64, whence Whence) (int64, error) {
	var w int
	switch whence {
	case SeekSet:
		w = io.SeekStart
	case SeekCur:
		w = io.SeekCurrent
	case SeekEnd:
		w = io.SeekEnd
	default:
		return 0, &Error{Msg: "seek: invalid whence"}
	}
	pos, err := o.f.Seek(offset, w)
	if err != nil {
		return 0, o.wrap("seek", err)
	}
	return pos, nil
}

func (o *OSFile) ReadFully(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := o.f.Read(p[total:])
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, o.wrap("read", err)
		}
	}
	return total, nil
}

func (o *OSFile) WriteFully(p []byte) (int, error) {
	n, err := o.f.Write(p)
	if err != nil {
		return n, o.wrap("write", err)
	}
	return n, nil
}

func (o *OSFile) Truncate(size int64) error {
	if err := o.f.Truncate(size); err != nil {
		return o.wrap("truncate", err)
	}
	return nil
}

func (o *OSFile) Position() (int64, error) {
	pos, err := o.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, o.wrap("seek", err)
	}
	return pos, nil
}

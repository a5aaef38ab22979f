package iofile

import (
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only File backed by a memory mapping. It avoids
// read syscalls during probing and unpacking; writes and truncation fail.
type MmapFile struct {
	data []byte
	pos  int64
}

// OpenMmap opens path and maps it read-only into memory.
func OpenMmap(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Msg: "open " + path + ": " + err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &Error{Msg: "stat " + path + ": " + err.Error()}
	}

	size := info.Size()
	if size == 0 {
		return &MmapFile{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Msg: "mmap " + path + ": " + err.Error()}
	}

	return &MmapFile{data: data}, nil
}

// Close unmaps the file. Afterwards the file reads as empty: ReadFully
// returns zero bytes with a nil error, Seek and Position still succeed, and
// no operation reports the closed state or returns a fatal error.
func (m *MmapFile) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return &Error{Msg: "munmap: " + err.Error()}
	}
	return nil
}

func (m *MmapFile) Seek(offset int64, whence Whence) (int64, error) {
	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = m.pos
	case SeekEnd:
		base = int64(len(m.data))
	default:
		return 0, &Error{Msg: "seek: invalid whence"}
	}
	pos := base + offset
	if pos < 0 {
		return 0, &Error{Msg: "seek: negative position"}
	}
	m.pos = pos
	return pos, nil
}

func (m *MmapFile) ReadFully(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MmapFile) WriteFully(p []byte) (int, error) {
	return 0, &Error{Msg: "write: read-only mapping"}
}

func (m *MmapFile) Truncate(size int64) error {
	return &Error{Msg: "truncate: read-only mapping"}
}

func (m *MmapFile) Position() (int64, error) {
	return m.pos, nil
}

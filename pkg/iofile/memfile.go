package iofile

// MemFile is a growable in-memory File. Writing past the current end
// zero-fills the gap, so sparse seek-then-write patterns behave like a
// regular file.
type MemFile struct {
	data []byte
	pos  int64
}

// NewMemFile returns a MemFile initialized with data. The slice is not
// copied; callers that need isolation should pass a copy.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: data}
}

// Bytes returns the current contents.
func (m *MemFile) Bytes() []byte {
	return m.data
}

// Len returns the current length in bytes.
func (m *MemFile) Len() int64 {
	return int64(len(m.data))
}

func (m *MemFile) Seek(offset int64, whence Whence) (int64, error) {
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

func (m *MemFile) ReadFully(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, nil
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *MemFile) WriteFully(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *MemFile) Truncate(size int64) error {
	if size < 0 {
		return &Error{Msg: "truncate: negative size"}
	}
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, m.data)
		m.data = grown
	}
	return nil
}

func (m *MemFile) Position() (int64, error) {
	return m.pos, nil
}

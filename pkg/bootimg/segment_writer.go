package bootimg

import "github.com/eunmann/bootimg/pkg/iofile"

// segmentWriterEntry is one row of the writer-side segment table. offset
// and size are unknown until the segment is started and finished; they
// become authoritative only after finishEntry.
type segmentWriterEntry struct {
	typ     EntryType
	offset  uint64
	size    uint64
	sizeSet bool
	align   uint32
}

// segmentWriter is the streaming cursor used while producing an image.
type segmentWriter struct {
	entries []segmentWriterEntry
	// cur is -1 before the first entry and len(entries) after the last.
	cur          int
	open         bool
	written      uint64
	expected     uint64
	haveExpected bool
}

var zeroPad [4096]byte

func newSegmentWriter() *segmentWriter {
	return &segmentWriter{cur: -1}
}

func (s *segmentWriter) entriesClear() {
	s.entries = s.entries[:0]
	s.cur = -1
	s.open = false
}

// entriesAdd appends a segment with an unknown offset. align is the page
// size the next segment must start at, or zero for none (MTK sub-headers
// sit flush against their payload).
func (s *segmentWriter) entriesAdd(typ EntryType, sizeHint uint64, align uint32) error {
	for _, e := range s.entries {
		if e.typ == typ {
			return errorf(KindUnsupported, "duplicate entry type %s", typ)
		}
	}
	if align != 0 && !isPowerOfTwo(uint64(align)) {
		return errorf(KindInvalidArgument, "alignment %d is not a power of two", align)
	}
	s.entries = append(s.entries, segmentWriterEntry{
		typ:   typ,
		size:  sizeHint,
		align: align,
	})
	return nil
}

func (s *segmentWriter) entriesSize() int {
	return len(s.entries)
}

func (s *segmentWriter) entriesGet(i int) *segmentWriterEntry {
	return &s.entries[i]
}

// entry returns the most recently touched segment, or nil before the first
// getEntry and after the cursor has moved past the last segment.
func (s *segmentWriter) entry() *segmentWriterEntry {
	if s.cur < 0 || s.cur >= len(s.entries) {
		return nil
	}
	return &s.entries[s.cur]
}

// getEntry advances the cursor and records the segment's offset from the
// current file position.
func (s *segmentWriter) getEntry(f iofile.File) (*Entry, error) {
	if s.open {
		return nil, errorf(KindInternal, "previous entry not finished")
	}
	next := s.cur + 1
	if next >= len(s.entries) {
		s.cur = len(s.entries)
		return nil, ErrEndOfEntries
	}
	pos, err := f.Position()
	if err != nil {
		return nil, wrapFile(err, "failed to get file position")
	}
	s.cur = next
	e := &s.entries[next]
	e.offset = uint64(pos)
	s.open = true
	s.written = 0
	s.haveExpected = false
	return &Entry{Type: e.typ, Offset: e.offset}, nil
}

// writeEntry commits the caller-provided size (if any) for the current
// segment. A zero size in entry means the size is unknown until finish.
func (s *segmentWriter) writeEntry(entry *Entry) error {
	e := s.entry()
	if e == nil || !s.open {
		return errorf(KindInternal, "no entry started")
	}
	if entry.Type != e.typ {
		return errorf(KindInvalidArgument, "entry type %s does not match current %s", entry.Type, e.typ)
	}
	if entry.Size > 0 {
		s.expected = entry.Size
		s.haveExpected = true
	}
	return nil
}

func (s *segmentWriter) writeData(f iofile.File, p []byte) (int, error) {
	e := s.entry()
	if e == nil || !s.open {
		return 0, errorf(KindInternal, "no entry started")
	}
	if s.haveExpected && s.written+uint64(len(p)) > s.expected {
		return 0, errorf(KindFileFormat, "%s entry data exceeds declared size %d", e.typ, s.expected)
	}
	n, err := f.WriteFully(p)
	s.written += uint64(n)
	if err != nil {
		return n, wrapFile(err, "failed to write %s entry", e.typ)
	}
	return n, nil
}

// finishEntry records the final size and writes zero padding so the next
// segment starts aligned.
func (s *segmentWriter) finishEntry(f iofile.File) error {
	e := s.entry()
	if e == nil || !s.open {
		return errorf(KindInternal, "no entry started")
	}
	if s.haveExpected && s.written != s.expected {
		return errorf(KindFileFormat, "%s entry is %d bytes; declared size was %d",
			e.typ, s.written, s.expected)
	}
	e.size = s.written
	e.sizeSet = true
	s.open = false

	pad := alignPageSize(e.offset+e.size, e.align)
	for pad > 0 {
		n := pad
		if n > uint64(len(zeroPad)) {
			n = uint64(len(zeroPad))
		}
		if _, err := f.WriteFully(zeroPad[:n]); err != nil {
			return wrapFile(err, "failed to write padding after %s entry", e.typ)
		}
		pad -= n
	}
	return nil
}

package bootimg

import "github.com/eunmann/bootimg/pkg/iofile"

// segmentReaderEntry is one row of the reader-side segment table.
type segmentReaderEntry struct {
	typ         EntryType
	offset      uint64
	size        uint64
	canTruncate bool
}

// segmentReader is the streaming cursor over an ordered table of typed,
// page-aligned segments. Exactly one cursor exists per table and it only
// moves forward (or jumps via goToEntry) until entriesClear.
type segmentReader struct {
	entries []segmentReaderEntry
	// cur is -1 before the first entry and len(entries) after the last.
	cur       int
	remaining uint64
}

func newSegmentReader() *segmentReader {
	return &segmentReader{cur: -1}
}

func (s *segmentReader) entriesClear() {
	s.entries = s.entries[:0]
	s.cur = -1
	s.remaining = 0
}

func (s *segmentReader) entriesAdd(typ EntryType, offset, size uint64, canTruncate bool) error {
	for _, e := range s.entries {
		if e.typ == typ {
			return errorf(KindUnsupported, "duplicate entry type %s", typ)
		}
	}
	s.entries = append(s.entries, segmentReaderEntry{
		typ:         typ,
		offset:      offset,
		size:        size,
		canTruncate: canTruncate,
	})
	return nil
}

func (s *segmentReader) entriesSize() int {
	return len(s.entries)
}

func (s *segmentReader) entriesGet(i int) *segmentReaderEntry {
	return &s.entries[i]
}

// moveTo positions the cursor on entry i and seeks the file to its offset.
func (s *segmentReader) moveTo(f iofile.File, i int) (*Entry, error) {
	e := &s.entries[i]
	if _, err := f.Seek(int64(e.offset), iofile.SeekSet); err != nil {
		return nil, wrapFile(err, "failed to seek to %s entry", e.typ)
	}
	s.cur = i
	s.remaining = e.size
	return &Entry{Type: e.typ, Offset: e.offset, Size: e.size}, nil
}

func (s *segmentReader) readEntry(f iofile.File) (*Entry, error) {
	next := s.cur + 1
	if next >= len(s.entries) {
		s.cur = len(s.entries)
		return nil, ErrEndOfEntries
	}
	return s.moveTo(f, next)
}

func (s *segmentReader) goToEntry(f iofile.File, typ EntryType) (*Entry, error) {
	for i := range s.entries {
		if s.entries[i].typ == typ {
			return s.moveTo(f, i)
		}
	}
	return nil, ErrEntryNotFound
}

// readData reads up to min(len(p), remaining) bytes of the current segment.
// A zero return means the segment is exhausted. For truncatable segments a
// short read at EOF ends the segment instead of failing.
func (s *segmentReader) readData(f iofile.File, p []byte) (int, error) {
	if s.cur < 0 || s.cur >= len(s.entries) {
		return 0, errorf(KindInternal, "no current entry to read from")
	}
	e := &s.entries[s.cur]

	toRead := uint64(len(p))
	if toRead > s.remaining {
		toRead = s.remaining
	}
	if toRead == 0 {
		return 0, nil
	}

	n, err := f.ReadFully(p[:toRead])
	if err != nil {
		return n, wrapFile(err, "failed to read %s entry", e.typ)
	}
	s.remaining -= uint64(n)
	if uint64(n) < toRead {
		if !e.canTruncate {
			return n, errorf(KindFileFormat, "unexpected EOF in %s entry", e.typ)
		}
		s.remaining = 0
	}
	return n, nil
}

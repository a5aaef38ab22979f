package bootimg

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// writerCodec is the per-format writing contract.
type writerCodec interface {
	format() Format
	getHeader() *Header
	writeHeader(f iofile.File, h *Header) error
	getEntry(f iofile.File) (*Entry, error)
	writeEntry(e *Entry) error
	writeData(f iofile.File, p []byte) (int, error)
	finishEntry(f iofile.File) error
	close(f iofile.File) error
}

// Writer produces one boot image. It is not safe for concurrent use;
// after a fatal error every operation fails fast.
type Writer struct {
	file       iofile.File
	log        zerolog.Logger
	codec      writerCodec
	haveHeader bool
	inEntry    bool
	fatal      bool
	closed     bool
}

// NewWriter returns a Writer over f with no format selected.
func NewWriter(f iofile.File) *Writer {
	return &Writer{file: f, log: zerolog.Nop()}
}

// SetLogger installs a logger for finalization diagnostics.
func (w *Writer) SetLogger(log zerolog.Logger) {
	w.log = log
}

// SetFormat selects the output format. It must be called exactly once,
// before WriteHeader.
func (w *Writer) SetFormat(fm Format) error {
	if w.codec != nil {
		return errorf(KindInternal, "format is already set")
	}
	switch fm {
	case FormatAndroid:
		w.codec = newAndroidWriter()
	case FormatBump:
		w.codec = newBumpWriter()
	case FormatMTK:
		w.codec = newMTKWriter()
	default:
		return errorf(KindInvalidArgument, "unknown format %d", fm)
	}
	return nil
}

func (w *Writer) failFast() error {
	if w.fatal {
		return fatalf(KindInternal, "writer is in a fatal state")
	}
	if w.closed {
		return errorf(KindInternal, "writer is closed")
	}
	if w.codec == nil {
		return errorf(KindInternal, "no format set")
	}
	return nil
}

func (w *Writer) note(err error) error {
	if IsFatal(err) {
		w.fatal = true
	}
	return err
}

// GetHeader returns a header template advertising the fields the selected
// format accepts.
func (w *Writer) GetHeader() (*Header, error) {
	if err := w.failFast(); err != nil {
		return nil, err
	}
	return w.codec.getHeader(), nil
}

// WriteHeader validates the header and lays out the segment table. The
// on-disk header itself is written during Close.
func (w *Writer) WriteHeader(h *Header) error {
	if err := w.failFast(); err != nil {
		return err
	}
	if err := w.codec.writeHeader(w.file, h); err != nil {
		return w.note(err)
	}
	w.haveHeader = true
	return nil
}

// GetEntry finishes any open entry and advances to the next one.
func (w *Writer) GetEntry() (*Entry, error) {
	if err := w.failFast(); err != nil {
		return nil, err
	}
	if !w.haveHeader {
		return nil, errorf(KindInternal, "header has not been written")
	}
	if w.inEntry {
		if err := w.FinishEntry(); err != nil {
			return nil, err
		}
	}
	entry, err := w.codec.getEntry(w.file)
	if err != nil {
		return nil, w.note(err)
	}
	w.inEntry = true
	return entry, nil
}

// WriteEntry commits the caller-provided size (if any) for the current
// entry.
func (w *Writer) WriteEntry(e *Entry) error {
	if err := w.failFast(); err != nil {
		return err
	}
	if !w.inEntry {
		return errorf(KindInternal, "no entry started")
	}
	if err := w.codec.writeEntry(e); err != nil {
		return w.note(err)
	}
	return nil
}

// WriteData appends payload bytes to the current entry.
func (w *Writer) WriteData(p []byte) (int, error) {
	if err := w.failFast(); err != nil {
		return 0, err
	}
	if !w.inEntry {
		return 0, errorf(KindInternal, "no entry started")
	}
	n, err := w.codec.writeData(w.file, p)
	if err != nil {
		return n, w.note(err)
	}
	return n, nil
}

// FinishEntry records the entry's final size and pads to its alignment.
func (w *Writer) FinishEntry() error {
	if err := w.failFast(); err != nil {
		return err
	}
	if !w.inEntry {
		return errorf(KindInternal, "no entry started")
	}
	if err := w.codec.finishEntry(w.file); err != nil {
		return w.note(err)
	}
	w.inEntry = false
	return nil
}

// Close streams any remaining entries as empty, then finalizes the image:
// truncation, size patching, digest, and the header write.
func (w *Writer) Close() error {
	if err := w.failFast(); err != nil {
		return err
	}
	if w.haveHeader {
		if w.inEntry {
			if err := w.FinishEntry(); err != nil {
				return err
			}
		}
		for {
			_, err := w.codec.getEntry(w.file)
			if errors.Is(err, ErrEndOfEntries) {
				break
			}
			if err != nil {
				return w.note(err)
			}
			if err := w.codec.finishEntry(w.file); err != nil {
				return w.note(err)
			}
		}
	}
	if err := w.codec.close(w.file); err != nil {
		return w.note(err)
	}
	w.closed = true
	w.log.Debug().Str("format", w.codec.format().String()).Msg("image finalized")
	return nil
}

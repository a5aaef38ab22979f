package bootimg

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// readerCodec is the per-format reading contract.
type readerCodec interface {
	format() Format
	// bid scores the file against this format given the best score seen
	// so far. It returns errCannotWin when bestBid is already out of
	// reach, a zero score for "definitely not this format", and a warn
	// error only for probe-internal conditions.
	bid(f iofile.File, bestBid int) (int, error)
	setOption(key, value string) error
	readHeader(f iofile.File) (*Header, error)
	readEntry(f iofile.File) (*Entry, error)
	goToEntry(f iofile.File, typ EntryType) (*Entry, error)
	readData(f iofile.File, p []byte) (int, error)
}

func newReaderCodec(fm Format) readerCodec {
	switch fm {
	case FormatBump:
		return newBumpReader()
	case FormatMTK:
		return newMTKReader()
	default:
		return newAndroidReader()
	}
}

// Reader reads one boot image. It is not safe for concurrent use; after a
// fatal error every operation fails fast.
type Reader struct {
	file       iofile.File
	log        zerolog.Logger
	codecs     []readerCodec
	codec      readerCodec
	haveHeader bool
	fatal      bool
}

// NewReader returns a Reader over f with no formats enabled.
func NewReader(f iofile.File) *Reader {
	return &Reader{file: f, log: zerolog.Nop()}
}

// SetLogger installs a logger for probe and dispatch diagnostics.
func (r *Reader) SetLogger(log zerolog.Logger) {
	r.log = log
}

// EnableFormat registers a format for bidding. Enabling a format twice is
// a recoverable error.
func (r *Reader) EnableFormat(fm Format) error {
	for _, c := range r.codecs {
		if c.format() == fm {
			return warnf(KindInvalidArgument, "format %s is already enabled", fm)
		}
	}
	r.codecs = append(r.codecs, newReaderCodec(fm))
	return nil
}

// EnableAllFormats registers every supported format.
func (r *Reader) EnableAllFormats() {
	for _, fm := range []Format{FormatAndroid, FormatBump, FormatMTK} {
		_ = r.EnableFormat(fm)
	}
}

// SetFormat forces a format, skipping the bidding round.
func (r *Reader) SetFormat(fm Format) error {
	for _, c := range r.codecs {
		if c.format() == fm {
			r.codec = c
			return nil
		}
	}
	c := newReaderCodec(fm)
	r.codecs = append(r.codecs, c)
	r.codec = c
	return nil
}

// SetOption passes a key/value option to every enabled codec. It fails
// with KindUnknownOption if no codec recognizes the key.
func (r *Reader) SetOption(key, value string) error {
	recognized := false
	for _, c := range r.codecs {
		err := c.setOption(key, value)
		if err == nil {
			recognized = true
			continue
		}
		var e *Error
		if errors.As(err, &e) && e.Kind == KindUnknownOption {
			continue
		}
		return err
	}
	if !recognized {
		return errorf(KindUnknownOption, "unknown option %q", key)
	}
	return nil
}

func (r *Reader) failFast() error {
	if r.fatal {
		return fatalf(KindInternal, "reader is in a fatal state")
	}
	return nil
}

func (r *Reader) note(err error) error {
	if IsFatal(err) {
		r.fatal = true
	}
	return err
}

// probe runs a bidding round over the enabled codecs. The highest positive
// score wins; ties go to the codec registered first.
func (r *Reader) probe() error {
	bestBid := 0
	var best readerCodec

	for _, c := range r.codecs {
		score, err := c.bid(r.file, bestBid)
		switch {
		case err == errCannotWin:
			r.log.Debug().Str("format", c.format().String()).Msg("bid cannot win, skipped")
			continue
		case err == nil:
		case IsWarn(err):
			// A failed bid does not disqualify the other codecs.
			r.log.Debug().Str("format", c.format().String()).Err(err).Msg("bid failed")
			continue
		default:
			return r.note(err)
		}

		r.log.Debug().Str("format", c.format().String()).Int("bid", score).Msg("bid placed")
		if score > bestBid {
			bestBid = score
			best = c
		}
	}

	if best == nil {
		return ErrFormatNotFound
	}

	r.log.Debug().Str("format", best.format().String()).Int("bid", bestBid).Msg("format selected")
	r.codec = best
	return nil
}

// ReadHeader selects a format (bidding if none was forced) and returns the
// decoded logical header.
func (r *Reader) ReadHeader() (*Header, error) {
	if err := r.failFast(); err != nil {
		return nil, err
	}
	if len(r.codecs) == 0 {
		return nil, errorf(KindInternal, "no formats enabled")
	}
	if r.codec == nil {
		if err := r.probe(); err != nil {
			return nil, err
		}
	}
	header, err := r.codec.readHeader(r.file)
	if err != nil {
		return nil, r.note(err)
	}
	r.haveHeader = true
	return header, nil
}

// Format returns the selected format. Valid only after ReadHeader or
// SetFormat.
func (r *Reader) Format() (Format, bool) {
	if r.codec == nil {
		return 0, false
	}
	return r.codec.format(), true
}

// ReadEntry advances to the next entry and seeks the file to its start.
func (r *Reader) ReadEntry() (*Entry, error) {
	if err := r.failFast(); err != nil {
		return nil, err
	}
	if !r.haveHeader {
		return nil, errorf(KindInternal, "header has not been read")
	}
	entry, err := r.codec.readEntry(r.file)
	if err != nil {
		return nil, r.note(err)
	}
	return entry, nil
}

// GoToEntry positions the cursor at the entry of the given type.
func (r *Reader) GoToEntry(typ EntryType) (*Entry, error) {
	if err := r.failFast(); err != nil {
		return nil, err
	}
	if !r.haveHeader {
		return nil, errorf(KindInternal, "header has not been read")
	}
	entry, err := r.codec.goToEntry(r.file, typ)
	if err != nil {
		return nil, r.note(err)
	}
	return entry, nil
}

// ReadData reads payload bytes of the current entry. A zero return means
// the entry is exhausted.
func (r *Reader) ReadData(p []byte) (int, error) {
	if err := r.failFast(); err != nil {
		return 0, err
	}
	if !r.haveHeader {
		return 0, errorf(KindInternal, "header has not been read")
	}
	n, err := r.codec.readData(r.file, p)
	if err != nil {
		return n, r.note(err)
	}
	return n, nil
}

package bootimg

import (
	"bytes"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// findBumpMagic checks for the Bump magic at the tail offset computed from
// the header sizes.
func findBumpMagic(f iofile.File, hdr *androidHeader) (uint64, error) {
	pos := tailOffset(hdr)

	if _, err := f.Seek(int64(pos), iofile.SeekSet); err != nil {
		return 0, wrapFile(err, "failed to seek to Bump magic")
	}

	buf := make([]byte, bumpMagicSize)
	n, err := f.ReadFully(buf)
	if err != nil {
		return 0, wrapFile(err, "failed to read Bump magic")
	}
	if n != bumpMagicSize || !bytes.Equal(buf, bumpMagic) {
		return 0, warnf(KindFileFormat,
			"Bump magic not found at offset %d", pos)
	}
	return pos, nil
}

// bumpReader reads Bump images. Apart from the trailer probe the layout is
// identical to the base Android format.
type bumpReader struct {
	*androidReader
	bumpOffset     uint64
	haveBumpOffset bool
}

func newBumpReader() *bumpReader {
	return &bumpReader{androidReader: newAndroidReader()}
}

func (r *bumpReader) format() Format {
	return FormatBump
}

func (r *bumpReader) bid(f iofile.File, bestBid int) (int, error) {
	if bestBid >= (bootMagicSize+bumpMagicSize)*8 {
		return 0, errCannotWin
	}

	bid := 0

	hdr, offset, err := findAndroidHeader(f, maxHeaderOffset)
	switch {
	case err == nil:
		r.hdr = hdr
		r.headerOffset = offset
		r.haveHeaderOffset = true
		bid += bootMagicSize * 8
	case IsWarn(err):
		return 0, nil
	default:
		return 0, err
	}

	bumpOffset, err := findBumpMagic(f, &r.hdr)
	switch {
	case err == nil:
		r.bumpOffset = bumpOffset
		r.haveBumpOffset = true
		bid += bumpMagicSize * 8
	case IsWarn(err):
		// No trailer; the bid stands on the boot magic alone.
	default:
		return 0, err
	}

	return bid, nil
}

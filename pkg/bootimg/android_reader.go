package bootimg

import (
	"bytes"
	"strings"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// findAndroidHeader scans the first maxOffset+androidHeaderSize bytes for
// the boot magic and decodes the header found there. The file position is
// undefined afterwards.
func findAndroidHeader(f iofile.File, maxOffset uint64) (androidHeader, uint64, error) {
	var hdr androidHeader

	if maxOffset > maxHeaderOffset {
		return hdr, 0, warnf(KindInvalidArgument,
			"max header offset %d must not exceed %d", maxOffset, maxHeaderOffset)
	}

	if _, err := f.Seek(0, iofile.SeekSet); err != nil {
		return hdr, 0, wrapFile(err, "failed to seek to beginning")
	}

	buf := make([]byte, maxOffset+androidHeaderSize)
	n, err := f.ReadFully(buf)
	if err != nil {
		return hdr, 0, wrapFile(err, "failed to read header")
	}

	idx := bytes.Index(buf[:n], []byte(bootMagic))
	if idx < 0 {
		return hdr, 0, warnf(KindFileFormat,
			"Android magic not found in first %d bytes", maxHeaderOffset)
	}
	if n-idx < androidHeaderSize {
		return hdr, 0, warnf(KindFileFormat,
			"Android header at %d extends past the scanned range", idx)
	}

	return decodeAndroidHeader(buf[idx:]), uint64(idx), nil
}

// findSamsungSEAndroidMagic checks for the SEAndroid magic at the tail
// offset computed from the header sizes.
func findSamsungSEAndroidMagic(f iofile.File, hdr *androidHeader) (uint64, error) {
	pos := tailOffset(hdr)

	if _, err := f.Seek(int64(pos), iofile.SeekSet); err != nil {
		return 0, wrapFile(err, "failed to seek to SEAndroid magic")
	}

	buf := make([]byte, samsungSEAndroidMagicSize)
	n, err := f.ReadFully(buf)
	if err != nil {
		return 0, wrapFile(err, "failed to read SEAndroid magic")
	}
	if n != samsungSEAndroidMagicSize || !bytes.Equal(buf, []byte(samsungSEAndroidMagic)) {
		return 0, warnf(KindFileFormat,
			"SEAndroid magic not found at offset %d", pos)
	}
	return pos, nil
}

// androidReader reads base Android images, including the Samsung SEAndroid
// trailer variant.
type androidReader struct {
	hdr              androidHeader
	headerOffset     uint64
	haveHeaderOffset bool
	samsungOffset    uint64
	haveSamsung      bool
	allowTruncatedDT bool
	seg              *segmentReader
}

func newAndroidReader() *androidReader {
	return &androidReader{
		// Truncated device tree images are tolerated by default.
		allowTruncatedDT: true,
		seg:              newSegmentReader(),
	}
}

func (r *androidReader) format() Format {
	return FormatAndroid
}

// bid scores the file against the Android format: the boot magic and the
// optional SEAndroid trailer each contribute their bit count.
func (r *androidReader) bid(f iofile.File, bestBid int) (int, error) {
	if bestBid >= (bootMagicSize+samsungSEAndroidMagicSize)*8 {
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
		// Header not found; this cannot be an Android boot image.
		return 0, nil
	default:
		return 0, err
	}

	samsungOffset, err := findSamsungSEAndroidMagic(f, &r.hdr)
	switch {
	case err == nil:
		r.samsungOffset = samsungOffset
		r.haveSamsung = true
		bid += samsungSEAndroidMagicSize * 8
	case IsWarn(err):
		// No trailer; the bid stands on the boot magic alone.
	default:
		return 0, err
	}

	return bid, nil
}

// setOption recognizes "strict": truthy values disable tolerance for
// truncated device tree images.
func (r *androidReader) setOption(key, value string) error {
	if key != "strict" {
		return errorf(KindUnknownOption, "unknown option %q", key)
	}
	strict := strings.EqualFold(value, "true") ||
		strings.EqualFold(value, "yes") ||
		strings.EqualFold(value, "y") ||
		value == "1"
	r.allowTruncatedDT = !strict
	return nil
}

func (r *androidReader) readHeader(f iofile.File) (*Header, error) {
	if !r.haveHeaderOffset {
		// No bid was performed; the caller forced this format.
		hdr, offset, err := findAndroidHeader(f, maxHeaderOffset)
		if err != nil {
			return nil, err
		}
		r.hdr = hdr
		r.headerOffset = offset
		r.haveHeaderOffset = true
	}

	header := NewHeader()
	header.SetSupportedFields(allFields)

	if err := header.SetBoardName(cString(r.hdr.name[:])); err != nil {
		return nil, err
	}
	if err := header.SetKernelCmdline(cString(r.hdr.cmdline[:])); err != nil {
		return nil, err
	}
	if err := header.SetPageSize(r.hdr.pageSize); err != nil {
		return nil, err
	}
	if err := header.SetKernelAddress(r.hdr.kernelAddr); err != nil {
		return nil, err
	}
	if err := header.SetRamdiskAddress(r.hdr.ramdiskAddr); err != nil {
		return nil, err
	}
	if err := header.SetSecondBootAddress(r.hdr.secondAddr); err != nil {
		return nil, err
	}
	if err := header.SetKernelTagsAddress(r.hdr.tagsAddr); err != nil {
		return nil, err
	}

	// Section offsets: the header page, then each payload aligned up.
	pos := r.headerOffset + androidHeaderSize
	pos += alignPageSize(pos, r.hdr.pageSize)

	kernelOffset := pos
	pos += uint64(r.hdr.kernelSize)
	pos += alignPageSize(pos, r.hdr.pageSize)

	ramdiskOffset := pos
	pos += uint64(r.hdr.ramdiskSize)
	pos += alignPageSize(pos, r.hdr.pageSize)

	secondOffset := pos
	pos += uint64(r.hdr.secondSize)
	pos += alignPageSize(pos, r.hdr.pageSize)

	dtOffset := pos

	r.seg.entriesClear()

	if err := r.seg.entriesAdd(EntryKernel, kernelOffset, uint64(r.hdr.kernelSize), false); err != nil {
		return nil, err
	}
	if err := r.seg.entriesAdd(EntryRamdisk, ramdiskOffset, uint64(r.hdr.ramdiskSize), false); err != nil {
		return nil, err
	}
	if r.hdr.secondSize > 0 {
		if err := r.seg.entriesAdd(EntrySecondBoot, secondOffset, uint64(r.hdr.secondSize), false); err != nil {
			return nil, err
		}
	}
	if r.hdr.dtSize > 0 {
		if err := r.seg.entriesAdd(EntryDeviceTree, dtOffset, uint64(r.hdr.dtSize), r.allowTruncatedDT); err != nil {
			return nil, err
		}
	}

	return header, nil
}

func (r *androidReader) readEntry(f iofile.File) (*Entry, error) {
	return r.seg.readEntry(f)
}

func (r *androidReader) goToEntry(f iofile.File, typ EntryType) (*Entry, error) {
	return r.seg.goToEntry(f, typ)
}

func (r *androidReader) readData(f iofile.File, p []byte) (int, error) {
	return r.seg.readData(f, p)
}

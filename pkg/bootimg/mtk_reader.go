package bootimg

import (
	"bytes"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// checkMTKMagic reports whether an MTK sub-header magic sits at offset.
func checkMTKMagic(f iofile.File, offset uint64) (bool, error) {
	if _, err := f.Seek(int64(offset), iofile.SeekSet); err != nil {
		return false, wrapFile(err, "failed to seek to MTK header")
	}
	buf := make([]byte, mtkMagicSize)
	n, err := f.ReadFully(buf)
	if err != nil {
		return false, wrapFile(err, "failed to read MTK header magic")
	}
	return n == mtkMagicSize && bytes.Equal(buf, mtkMagic), nil
}

// mtkReader reads MTK images: an Android layout whose kernel and ramdisk
// payloads each begin with a 512-byte MTK sub-header.
type mtkReader struct {
	*androidReader
}

func newMTKReader() *mtkReader {
	return &mtkReader{androidReader: newAndroidReader()}
}

func (r *mtkReader) format() Format {
	return FormatMTK
}

// sectionOffsets returns where the kernel and ramdisk sections (sub-header
// included) begin.
func (r *mtkReader) sectionOffsets() (kernel, ramdisk uint64) {
	pos := r.headerOffset + androidHeaderSize
	pos += alignPageSize(pos, r.hdr.pageSize)
	kernel = pos

	pos += uint64(r.hdr.kernelSize)
	pos += alignPageSize(pos, r.hdr.pageSize)
	ramdisk = pos
	return kernel, ramdisk
}

func (r *mtkReader) bid(f iofile.File, bestBid int) (int, error) {
	if bestBid >= (bootMagicSize+2*mtkMagicSize)*8 {
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

	kernelOffset, ramdiskOffset := r.sectionOffsets()

	ok, err := checkMTKMagic(f, kernelOffset)
	if err != nil {
		return 0, err
	}
	if ok {
		bid += mtkMagicSize * 8
	}

	ok, err = checkMTKMagic(f, ramdiskOffset)
	if err != nil {
		return 0, err
	}
	if ok {
		bid += mtkMagicSize * 8
	}

	return bid, nil
}

func (r *mtkReader) readHeader(f iofile.File) (*Header, error) {
	if !r.haveHeaderOffset {
		hdr, offset, err := findAndroidHeader(f, maxHeaderOffset)
		if err != nil {
			return nil, err
		}
		r.hdr = hdr
		r.headerOffset = offset
		r.haveHeaderOffset = true
	}

	if r.hdr.kernelSize < mtkHeaderSize {
		return nil, errorf(KindFileFormat,
			"kernel section too small to hold an MTK header")
	}
	if r.hdr.ramdiskSize < mtkHeaderSize {
		return nil, errorf(KindFileFormat,
			"ramdisk section too small to hold an MTK header")
	}

	kernelOffset, ramdiskOffset := r.sectionOffsets()

	for _, offset := range []uint64{kernelOffset, ramdiskOffset} {
		ok, err := checkMTKMagic(f, offset)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errorf(KindFileFormat,
				"MTK header magic not found at offset %d", offset)
		}
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

	pos := ramdiskOffset
	pos += uint64(r.hdr.ramdiskSize)
	pos += alignPageSize(pos, r.hdr.pageSize)
	secondOffset := pos

	pos += uint64(r.hdr.secondSize)
	pos += alignPageSize(pos, r.hdr.pageSize)
	dtOffset := pos

	r.seg.entriesClear()

	if err := r.seg.entriesAdd(EntryMTKKernelHeader, kernelOffset, mtkHeaderSize, false); err != nil {
		return nil, err
	}
	if err := r.seg.entriesAdd(EntryKernel, kernelOffset+mtkHeaderSize,
		uint64(r.hdr.kernelSize)-mtkHeaderSize, false); err != nil {
		return nil, err
	}
	if err := r.seg.entriesAdd(EntryMTKRamdiskHeader, ramdiskOffset, mtkHeaderSize, false); err != nil {
		return nil, err
	}
	if err := r.seg.entriesAdd(EntryRamdisk, ramdiskOffset+mtkHeaderSize,
		uint64(r.hdr.ramdiskSize)-mtkHeaderSize, false); err != nil {
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

package bootimg

import (
	"encoding/binary"
	"math"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// mtkWriter produces MTK images. The sub-header size fields and the
// trailer digest depend on payload sizes, so both are patched during close
// rather than streamed.
type mtkWriter struct {
	hdr          androidHeader
	seg          *segmentWriter
	fileSize     int64
	haveFileSize bool
}

func newMTKWriter() *mtkWriter {
	return &mtkWriter{seg: newSegmentWriter()}
}

func (w *mtkWriter) format() Format {
	return FormatMTK
}

func (w *mtkWriter) getHeader() *Header {
	h := NewHeader()
	h.SetSupportedFields(allFields)
	return h
}

func (w *mtkWriter) writeHeader(f iofile.File, header *Header) error {
	hdr, err := buildAndroidHeader(header)
	if err != nil {
		return err
	}
	w.hdr = hdr

	w.seg.entriesClear()

	// The sub-headers sit flush against their payload, so they carry no
	// alignment of their own.
	if err := w.seg.entriesAdd(EntryMTKKernelHeader, 0, 0); err != nil {
		return err
	}
	if err := w.seg.entriesAdd(EntryKernel, 0, w.hdr.pageSize); err != nil {
		return err
	}
	if err := w.seg.entriesAdd(EntryMTKRamdiskHeader, 0, 0); err != nil {
		return err
	}
	if err := w.seg.entriesAdd(EntryRamdisk, 0, w.hdr.pageSize); err != nil {
		return err
	}
	if err := w.seg.entriesAdd(EntrySecondBoot, 0, w.hdr.pageSize); err != nil {
		return err
	}
	if err := w.seg.entriesAdd(EntryDeviceTree, 0, w.hdr.pageSize); err != nil {
		return err
	}

	if _, err := f.Seek(int64(w.hdr.pageSize), iofile.SeekSet); err != nil {
		return wrapFile(err, "failed to seek to first page")
	}

	return nil
}

func (w *mtkWriter) getEntry(f iofile.File) (*Entry, error) {
	return w.seg.getEntry(f)
}

func (w *mtkWriter) writeEntry(entry *Entry) error {
	return w.seg.writeEntry(entry)
}

func (w *mtkWriter) writeData(f iofile.File, p []byte) (int, error) {
	return w.seg.writeData(f, p)
}

func (w *mtkWriter) finishEntry(f iofile.File) error {
	if err := w.seg.finishEntry(f); err != nil {
		return err
	}

	entry := w.seg.entry()

	if (entry.typ == EntryKernel || entry.typ == EntryRamdisk) &&
		entry.size == math.MaxUint32-mtkHeaderSize {
		return fatalf(KindFileFormat, "%s entry size too large to accommodate MTK header", entry.typ)
	}
	if (entry.typ == EntryMTKKernelHeader || entry.typ == EntryMTKRamdiskHeader) &&
		entry.size != mtkHeaderSize {
		return fatalf(KindFileFormat, "invalid size %d for %s entry", entry.size, entry.typ)
	}

	switch entry.typ {
	case EntryKernel:
		w.hdr.kernelSize = uint32(entry.size) + mtkHeaderSize
	case EntryRamdisk:
		w.hdr.ramdiskSize = uint32(entry.size) + mtkHeaderSize
	case EntrySecondBoot:
		w.hdr.secondSize = uint32(entry.size)
	case EntryDeviceTree:
		w.hdr.dtSize = uint32(entry.size)
	}

	return nil
}

// patchMTKHeaderSize overwrites the 32-bit size field of the sub-header
// block at offset with the payload size.
func patchMTKHeaderSize(f iofile.File, offset uint64, size uint32) error {
	var le32 [4]byte
	binary.LittleEndian.PutUint32(le32[:], size)

	if _, err := f.Seek(int64(offset+mtkHeaderSizeFieldOffset), iofile.SeekSet); err != nil {
		return wrapFile(err, "failed to seek to MTK size field")
	}
	if _, err := f.WriteFully(le32[:]); err != nil {
		return wrapFile(err, "failed to write MTK size field")
	}
	return nil
}

func (w *mtkWriter) close(f iofile.File) error {
	if !w.haveFileSize {
		pos, err := f.Position()
		if err != nil {
			return wrapFile(err, "failed to get file offset")
		}
		w.fileSize = pos
		w.haveFileSize = true
	}

	// Finalize only once every segment has been streamed.
	if w.seg.entry() != nil {
		return nil
	}

	if err := f.Truncate(w.fileSize); err != nil {
		return wrapFile(err, "failed to truncate file")
	}

	// The sub-header size fields hold payload sizes, which were unknown
	// while the sub-headers themselves were streamed.
	for i := 0; i < w.seg.entriesSize(); i++ {
		e := w.seg.entriesGet(i)
		switch e.typ {
		case EntryMTKKernelHeader:
			if err := patchMTKHeaderSize(f, e.offset, w.hdr.kernelSize-mtkHeaderSize); err != nil {
				return err
			}
		case EntryMTKRamdiskHeader:
			if err := patchMTKHeaderSize(f, e.offset, w.hdr.ramdiskSize-mtkHeaderSize); err != nil {
				return err
			}
		}
	}

	// The digest has to be a second sequential pass: computing it while
	// streaming would bake in sub-header size fields that were still zero.
	digest, err := computeImageDigest(f, w.seg)
	if err != nil {
		return err
	}
	copy(w.hdr.id[:], digest[:])

	if _, err := f.Seek(0, iofile.SeekSet); err != nil {
		return wrapFile(err, "failed to seek to beginning")
	}
	if _, err := f.WriteFully(encodeAndroidHeader(&w.hdr)); err != nil {
		return wrapFile(err, "failed to write header")
	}

	return nil
}

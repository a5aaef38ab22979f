package bootimg

import "github.com/eunmann/bootimg/pkg/iofile"

// androidWriter produces base Android images. With a trailer set it also
// serves the Bump variant, whose only difference is a magic appended at
// the tail offset.
type androidWriter struct {
	fm           Format
	trailer      []byte
	hdr          androidHeader
	seg          *segmentWriter
	fileSize     int64
	haveFileSize bool
}

func newAndroidWriter() *androidWriter {
	return &androidWriter{fm: FormatAndroid, seg: newSegmentWriter()}
}

func newBumpWriter() *androidWriter {
	return &androidWriter{fm: FormatBump, trailer: bumpMagic, seg: newSegmentWriter()}
}

func (w *androidWriter) format() Format {
	return w.fm
}

func (w *androidWriter) getHeader() *Header {
	h := NewHeader()
	h.SetSupportedFields(allFields)
	return h
}

// buildAndroidHeader validates the logical header and fills the on-disk
// header fields shared by the Android-family writers.
func buildAndroidHeader(header *Header) (androidHeader, error) {
	var hdr androidHeader

	if addr, ok := header.KernelAddress(); ok {
		hdr.kernelAddr = addr
	}
	if addr, ok := header.RamdiskAddress(); ok {
		hdr.ramdiskAddr = addr
	}
	if addr, ok := header.SecondBootAddress(); ok {
		hdr.secondAddr = addr
	}
	if addr, ok := header.KernelTagsAddress(); ok {
		hdr.tagsAddr = addr
	}

	pageSize, ok := header.PageSize()
	if !ok {
		return hdr, errorf(KindFileFormat, "page size field is required")
	}
	if !validPageSize(pageSize) {
		return hdr, errorf(KindFileFormat, "invalid page size: %d", pageSize)
	}
	hdr.pageSize = pageSize

	if name, ok := header.BoardName(); ok {
		if len(name) >= bootNameSize {
			return hdr, errorf(KindFileFormat, "board name too long")
		}
		copy(hdr.name[:bootNameSize-1], name)
	}
	if cmdline, ok := header.KernelCmdline(); ok {
		if len(cmdline) >= bootArgsSize {
			return hdr, errorf(KindFileFormat, "kernel cmdline too long")
		}
		copy(hdr.cmdline[:bootArgsSize-1], cmdline)
	}

	return hdr, nil
}

func (w *androidWriter) writeHeader(f iofile.File, header *Header) error {
	hdr, err := buildAndroidHeader(header)
	if err != nil {
		return err
	}
	w.hdr = hdr

	w.seg.entriesClear()

	if err := w.seg.entriesAdd(EntryKernel, 0, w.hdr.pageSize); err != nil {
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

	// The first page is reserved for the header, which is written at close
	// once the sizes and digest are known.
	if _, err := f.Seek(int64(w.hdr.pageSize), iofile.SeekSet); err != nil {
		return wrapFile(err, "failed to seek to first page")
	}

	return nil
}

func (w *androidWriter) getEntry(f iofile.File) (*Entry, error) {
	return w.seg.getEntry(f)
}

func (w *androidWriter) writeEntry(entry *Entry) error {
	return w.seg.writeEntry(entry)
}

func (w *androidWriter) writeData(f iofile.File, p []byte) (int, error) {
	return w.seg.writeData(f, p)
}

func (w *androidWriter) finishEntry(f iofile.File) error {
	if err := w.seg.finishEntry(f); err != nil {
		return err
	}

	entry := w.seg.entry()
	switch entry.typ {
	case EntryKernel:
		w.hdr.kernelSize = uint32(entry.size)
	case EntryRamdisk:
		w.hdr.ramdiskSize = uint32(entry.size)
	case EntrySecondBoot:
		w.hdr.secondSize = uint32(entry.size)
	case EntryDeviceTree:
		w.hdr.dtSize = uint32(entry.size)
	}

	return nil
}

func (w *androidWriter) close(f iofile.File) error {
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

	if w.trailer != nil {
		if _, err := f.Seek(w.fileSize, iofile.SeekSet); err != nil {
			return wrapFile(err, "failed to seek to tail")
		}
		if _, err := f.WriteFully(w.trailer); err != nil {
			return wrapFile(err, "failed to write trailer magic")
		}
	}

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

package bootimg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// writeImage streams the given sections through a Writer and returns the
// finished image bytes.
func writeImage(t *testing.T, fm Format, pageSize uint32, board, cmdline string,
	sections map[EntryType][]byte) []byte {
	t.Helper()

	f := iofile.NewMemFile(nil)
	w := NewWriter(f)
	if err := w.SetFormat(fm); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}

	header, err := w.GetHeader()
	if err != nil {
		t.Fatalf("GetHeader failed: %v", err)
	}
	if err := header.SetPageSize(pageSize); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	if err := header.SetBoardName(board); err != nil {
		t.Fatalf("SetBoardName failed: %v", err)
	}
	if err := header.SetKernelCmdline(cmdline); err != nil {
		t.Fatalf("SetKernelCmdline failed: %v", err)
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}

	for {
		entry, err := w.GetEntry()
		if errors.Is(err, ErrEndOfEntries) {
			break
		}
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if data, ok := sections[entry.Type]; ok {
			if _, err := w.WriteData(data); err != nil {
				t.Fatalf("WriteData(%s) failed: %v", entry.Type, err)
			}
		}
		if err := w.FinishEntry(); err != nil {
			t.Fatalf("FinishEntry(%s) failed: %v", entry.Type, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return f.Bytes()
}

func TestAndroidWriterLayout(t *testing.T) {
	img := writeImage(t, FormatAndroid, 2048, "test", "",
		map[EntryType][]byte{
			EntryKernel:  repeatByte(0xaa, 100),
			EntryRamdisk: repeatByte(0xbb, 50),
		})

	// Header page, kernel page, ramdisk page.
	if len(img) != 3*2048 {
		t.Fatalf("image length = %d, want %d", len(img), 3*2048)
	}

	hdr := decodeAndroidHeader(img)
	if hdr.kernelSize != 100 {
		t.Errorf("kernel_size = %d, want 100", hdr.kernelSize)
	}
	if hdr.ramdiskSize != 50 {
		t.Errorf("ramdisk_size = %d, want 50", hdr.ramdiskSize)
	}
	if hdr.secondSize != 0 || hdr.dtSize != 0 {
		t.Errorf("second/dt sizes = %d/%d, want 0/0", hdr.secondSize, hdr.dtSize)
	}
	if hdr.pageSize != 2048 {
		t.Errorf("page_size = %d, want 2048", hdr.pageSize)
	}

	if !bytes.Equal(img[2048:2148], repeatByte(0xaa, 100)) {
		t.Error("kernel payload not at first page boundary")
	}
	if !bytes.Equal(img[4096:4146], repeatByte(0xbb, 50)) {
		t.Error("ramdisk payload not at second page boundary")
	}
}

func TestAndroidWriterSegmentAlignment(t *testing.T) {
	img := writeImage(t, FormatAndroid, 4096, "", "",
		map[EntryType][]byte{
			EntryKernel:     repeatByte(0xaa, 5000),
			EntryRamdisk:    repeatByte(0xbb, 1),
			EntrySecondBoot: repeatByte(0xcc, 4097),
			EntryDeviceTree: repeatByte(0xdd, 17),
		})

	f := iofile.NewMemFile(img)
	r := newAndroidReader()
	if _, err := r.readHeader(f); err != nil {
		t.Fatalf("readHeader failed: %v", err)
	}
	for i := 0; i < r.seg.entriesSize(); i++ {
		e := r.seg.entriesGet(i)
		if e.offset%4096 != 0 {
			t.Errorf("%s offset %d is not page aligned", e.typ, e.offset)
		}
	}
}

func TestAndroidRoundTrip(t *testing.T) {
	sections := map[EntryType][]byte{
		EntryKernel:  repeatByte(0x01, 3000),
		EntryRamdisk: repeatByte(0x02, 1234),
	}
	original := writeImage(t, FormatAndroid, 2048, "herolte", "console=null", sections)

	// Read the image back.
	f := iofile.NewMemFile(original)
	r := NewReader(f)
	r.EnableAllFormats()
	header, err := r.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}

	readSections := make(map[EntryType][]byte)
	for {
		entry, err := r.ReadEntry()
		if errors.Is(err, ErrEndOfEntries) {
			break
		}
		if err != nil {
			t.Fatalf("ReadEntry failed: %v", err)
		}
		var data []byte
		buf := make([]byte, 1024)
		for {
			n, err := r.ReadData(buf)
			if err != nil {
				t.Fatalf("ReadData failed: %v", err)
			}
			if n == 0 {
				break
			}
			data = append(data, buf[:n]...)
		}
		readSections[entry.Type] = data
	}

	// Write it again from what was read.
	board, _ := header.BoardName()
	cmdline, _ := header.KernelCmdline()
	pageSize, _ := header.PageSize()
	rewritten := writeImage(t, FormatAndroid, pageSize, board, cmdline, readSections)

	if !bytes.Equal(original, rewritten) {
		t.Fatal("round-tripped image is not byte-identical")
	}
}

func TestAndroidWriterDigestDeterminism(t *testing.T) {
	sections := map[EntryType][]byte{
		EntryKernel:  repeatByte(0x01, 500),
		EntryRamdisk: repeatByte(0x02, 600),
	}
	a := writeImage(t, FormatAndroid, 2048, "", "", sections)
	b := writeImage(t, FormatAndroid, 2048, "", "", sections)

	if !bytes.Equal(a[576:596], b[576:596]) {
		t.Error("digest differs between identical writes")
	}

	sections[EntryKernel] = repeatByte(0x03, 500)
	c := writeImage(t, FormatAndroid, 2048, "", "", sections)
	if bytes.Equal(a[576:596], c[576:596]) {
		t.Error("digest unchanged after kernel payload change")
	}
}

func TestAndroidWriterRejectsBadHeader(t *testing.T) {
	f := iofile.NewMemFile(nil)

	t.Run("missing page size", func(t *testing.T) {
		w := NewWriter(f)
		if err := w.SetFormat(FormatAndroid); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}
		header, _ := w.GetHeader()
		err := w.WriteHeader(header)
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindFileFormat {
			t.Fatalf("WriteHeader = %v, want KindFileFormat", err)
		}
	})

	t.Run("invalid page size", func(t *testing.T) {
		w := NewWriter(f)
		if err := w.SetFormat(FormatAndroid); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}
		header, _ := w.GetHeader()
		if err := header.SetPageSize(1000); err != nil {
			t.Fatalf("SetPageSize failed: %v", err)
		}
		err := w.WriteHeader(header)
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindFileFormat {
			t.Fatalf("WriteHeader = %v, want KindFileFormat", err)
		}
	})

	t.Run("board name too long", func(t *testing.T) {
		w := NewWriter(f)
		if err := w.SetFormat(FormatAndroid); err != nil {
			t.Fatalf("SetFormat failed: %v", err)
		}
		header, _ := w.GetHeader()
		if err := header.SetPageSize(2048); err != nil {
			t.Fatalf("SetPageSize failed: %v", err)
		}
		if err := header.SetBoardName("sixteen-bytes-xx"); err != nil {
			t.Fatalf("SetBoardName failed: %v", err)
		}
		err := w.WriteHeader(header)
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindFileFormat {
			t.Fatalf("WriteHeader = %v, want KindFileFormat", err)
		}
	})
}

func TestWriterDeclaredSizeMismatch(t *testing.T) {
	f := iofile.NewMemFile(nil)
	w := NewWriter(f)
	if err := w.SetFormat(FormatAndroid); err != nil {
		t.Fatalf("SetFormat failed: %v", err)
	}
	header, _ := w.GetHeader()
	if err := header.SetPageSize(2048); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}

	entry, err := w.GetEntry()
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	entry.Size = 10
	if err := w.WriteEntry(entry); err != nil {
		t.Fatalf("WriteEntry failed: %v", err)
	}
	if _, err := w.WriteData(repeatByte(0x01, 5)); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	err = w.FinishEntry()
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindFileFormat {
		t.Fatalf("FinishEntry = %v, want KindFileFormat", err)
	}
}

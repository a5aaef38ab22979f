package bootimg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eunmann/bootimg/pkg/iofile"
)

func TestAndroidBidMagicOnly(t *testing.T) {
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
	}

	r := newAndroidReader()
	bid, err := r.bid(ti.file(), 0)
	if err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if want := bootMagicSize * 8; bid != want {
		t.Errorf("bid = %d, want %d", bid, want)
	}
}

func TestAndroidBidWithSEAndroidTrailer(t *testing.T) {
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
		trailer:  []byte(samsungSEAndroidMagic),
	}

	r := newAndroidReader()
	bid, err := r.bid(ti.file(), 0)
	if err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if want := (bootMagicSize + samsungSEAndroidMagicSize) * 8; bid != want {
		t.Errorf("bid = %d, want %d", bid, want)
	}
	if !r.haveSamsung {
		t.Error("samsung offset was not recorded")
	}
}

func TestAndroidBidPerturbedSizes(t *testing.T) {
	// A wrong kernel size shifts the computed tail offset, so the trailer
	// probe must miss and only the boot magic bits count.
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
		trailer:  []byte(samsungSEAndroidMagic),
	}
	img := ti.build()
	img[11] = 0x01 // kernel_size high byte; pushes the tail past EOF

	r := newAndroidReader()
	bid, err := r.bid(iofile.NewMemFile(img), 0)
	if err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if want := bootMagicSize * 8; bid != want {
		t.Errorf("bid = %d, want %d", bid, want)
	}
}

func TestAndroidBidNotThisFormat(t *testing.T) {
	f := iofile.NewMemFile(repeatByte(0x5a, 4096))
	r := newAndroidReader()
	bid, err := r.bid(f, 0)
	if err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if bid != 0 {
		t.Errorf("bid = %d, want 0", bid)
	}
}

func TestAndroidBidCannotWin(t *testing.T) {
	r := newAndroidReader()
	max := (bootMagicSize + samsungSEAndroidMagicSize) * 8
	_, err := r.bid(&explodingFile{t: t}, max)
	if !errors.Is(err, errCannotWin) {
		t.Fatalf("bid = %v, want errCannotWin", err)
	}
}

func TestAndroidReadEntries(t *testing.T) {
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
	}
	f := ti.file()

	r := newAndroidReader()
	if _, err := r.readHeader(f); err != nil {
		t.Fatalf("readHeader failed: %v", err)
	}

	entry, err := r.readEntry(f)
	if err != nil {
		t.Fatalf("readEntry failed: %v", err)
	}
	if entry.Type != EntryKernel || entry.Size != 100 {
		t.Errorf("first entry = %s/%d, want kernel/100", entry.Type, entry.Size)
	}

	data := make([]byte, 4096)
	n, err := r.readData(f, data)
	if err != nil {
		t.Fatalf("readData failed: %v", err)
	}
	if n != 100 || !bytes.Equal(data[:n], repeatByte(0x01, 100)) {
		t.Errorf("kernel data mismatch, read %d bytes", n)
	}

	entry, err = r.readEntry(f)
	if err != nil {
		t.Fatalf("readEntry failed: %v", err)
	}
	if entry.Type != EntryRamdisk || entry.Size != 50 {
		t.Errorf("second entry = %s/%d, want ramdisk/50", entry.Type, entry.Size)
	}

	if _, err := r.readEntry(f); !errors.Is(err, ErrEndOfEntries) {
		t.Fatalf("readEntry after last = %v, want ErrEndOfEntries", err)
	}
}

func TestAndroidReadHeaderFields(t *testing.T) {
	ti := &testImage{
		pageSize: 4096,
		board:    "herolte",
		cmdline:  "console=null androidboot.hardware=samsung",
		kernel:   repeatByte(0x01, 10),
		ramdisk:  repeatByte(0x02, 10),
	}
	f := ti.file()

	r := newAndroidReader()
	header, err := r.readHeader(f)
	if err != nil {
		t.Fatalf("readHeader failed: %v", err)
	}

	if name, ok := header.BoardName(); !ok || name != "herolte" {
		t.Errorf("board name = %q (%v), want herolte", name, ok)
	}
	if cmdline, ok := header.KernelCmdline(); !ok || cmdline != ti.cmdline {
		t.Errorf("cmdline = %q (%v), want %q", cmdline, ok, ti.cmdline)
	}
	if pageSize, ok := header.PageSize(); !ok || pageSize != 4096 {
		t.Errorf("page size = %d (%v), want 4096", pageSize, ok)
	}
	if header.SupportedFields() != allFields {
		t.Errorf("supported fields = %b, want %b", header.SupportedFields(), allFields)
	}
}

func TestAndroidSecondAndDTEntries(t *testing.T) {
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
		second:   repeatByte(0x03, 30),
		dt:       repeatByte(0x04, 20),
	}
	f := ti.file()

	r := newAndroidReader()
	if _, err := r.readHeader(f); err != nil {
		t.Fatalf("readHeader failed: %v", err)
	}
	if r.seg.entriesSize() != 4 {
		t.Fatalf("entries = %d, want 4", r.seg.entriesSize())
	}

	entry, err := r.goToEntry(f, EntryDeviceTree)
	if err != nil {
		t.Fatalf("goToEntry failed: %v", err)
	}
	if entry.Size != 20 {
		t.Errorf("dt size = %d, want 20", entry.Size)
	}
}

func TestStrictOptionValues(t *testing.T) {
	tests := []struct {
		value  string
		strict bool
	}{
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"Y", true},
		{"1", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		r := newAndroidReader()
		if err := r.setOption("strict", tt.value); err != nil {
			t.Fatalf("setOption(%q) failed: %v", tt.value, err)
		}
		if r.allowTruncatedDT != !tt.strict {
			t.Errorf("strict=%q: allowTruncatedDT = %v, want %v",
				tt.value, r.allowTruncatedDT, !tt.strict)
		}
	}
}

func TestUnknownOption(t *testing.T) {
	r := newAndroidReader()
	err := r.setOption("bogus", "true")
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindUnknownOption {
		t.Fatalf("setOption(bogus) = %v, want KindUnknownOption", err)
	}
}

func TestTruncatedDeviceTree(t *testing.T) {
	ti := &testImage{
		pageSize: 2048,
		kernel:   repeatByte(0x01, 100),
		ramdisk:  repeatByte(0x02, 50),
	}
	img := ti.build()
	// Claim a 100-byte device tree but only provide 40 bytes before EOF.
	le := []byte{100, 0, 0, 0}
	copy(img[40:44], le) // dt_size
	img = append(img, repeatByte(0x04, 40)...)

	t.Run("tolerant", func(t *testing.T) {
		r := newAndroidReader()
		f := iofile.NewMemFile(img)
		if _, err := r.readHeader(f); err != nil {
			t.Fatalf("readHeader failed: %v", err)
		}
		if _, err := r.goToEntry(f, EntryDeviceTree); err != nil {
			t.Fatalf("goToEntry failed: %v", err)
		}
		buf := make([]byte, 4096)
		n, err := r.readData(f, buf)
		if err != nil {
			t.Fatalf("readData failed: %v", err)
		}
		if n != 40 {
			t.Errorf("read %d bytes, want 40", n)
		}
		n, err = r.readData(f, buf)
		if err != nil || n != 0 {
			t.Errorf("second read = %d/%v, want 0/nil", n, err)
		}
	})

	t.Run("strict", func(t *testing.T) {
		r := newAndroidReader()
		if err := r.setOption("strict", "true"); err != nil {
			t.Fatalf("setOption failed: %v", err)
		}
		f := iofile.NewMemFile(img)
		if _, err := r.readHeader(f); err != nil {
			t.Fatalf("readHeader failed: %v", err)
		}
		if _, err := r.goToEntry(f, EntryDeviceTree); err != nil {
			t.Fatalf("goToEntry failed: %v", err)
		}
		buf := make([]byte, 4096)
		_, err := r.readData(f, buf)
		var e *Error
		if !errors.As(err, &e) || e.Kind != KindFileFormat {
			t.Fatalf("readData = %v, want KindFileFormat", err)
		}
	})
}

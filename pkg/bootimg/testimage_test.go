package bootimg

import (
	"testing"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// testImage describes the sections of a hand-crafted Android-family image.
type testImage struct {
	pageSize uint32
	board    string
	cmdline  string
	kernel   []byte
	ramdisk  []byte
	second   []byte
	dt       []byte
	trailer  []byte
}

// build lays the image out byte-exactly: header, then each non-empty
// section aligned up to the page size, then the optional trailer magic.
func (ti *testImage) build() []byte {
	var hdr androidHeader
	hdr.pageSize = ti.pageSize
	hdr.kernelSize = uint32(len(ti.kernel))
	hdr.ramdiskSize = uint32(len(ti.ramdisk))
	hdr.secondSize = uint32(len(ti.second))
	hdr.dtSize = uint32(len(ti.dt))
	copy(hdr.name[:], ti.board)
	copy(hdr.cmdline[:], ti.cmdline)

	img := encodeAndroidHeader(&hdr)
	pad := func() {
		img = append(img, make([]byte, alignPageSize(uint64(len(img)), ti.pageSize))...)
	}

	pad()
	img = append(img, ti.kernel...)
	pad()
	img = append(img, ti.ramdisk...)
	pad()
	img = append(img, ti.second...)
	pad()
	img = append(img, ti.dt...)
	pad()
	img = append(img, ti.trailer...)
	return img
}

func (ti *testImage) file() *iofile.MemFile {
	return iofile.NewMemFile(ti.build())
}

func repeatByte(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

// explodingFile fails the test on any access; it verifies code paths that
// must not touch the file.
type explodingFile struct {
	t *testing.T
}

func (e *explodingFile) Seek(offset int64, whence iofile.Whence) (int64, error) {
	e.t.Fatal("unexpected Seek on file")
	return 0, nil
}

func (e *explodingFile) ReadFully(p []byte) (int, error) {
	e.t.Fatal("unexpected ReadFully on file")
	return 0, nil
}

func (e *explodingFile) WriteFully(p []byte) (int, error) {
	e.t.Fatal("unexpected WriteFully on file")
	return 0, nil
}

func (e *explodingFile) Truncate(size int64) error {
	e.t.Fatal("unexpected Truncate on file")
	return nil
}

func (e *explodingFile) Position() (int64, error) {
	e.t.Fatal("unexpected Position on file")
	return 0, nil
}

package bootimg

import "encoding/binary"

// Android boot image constants.
const (
	bootMagic     = "ANDROID!"
	bootMagicSize = 8
	bootNameSize  = 16
	bootArgsSize  = 512

	// androidHeaderSize is the fixed on-disk header size: magic, ten
	// 32-bit fields, board name, cmdline, and 32 bytes of id.
	androidHeaderSize = bootMagicSize + 10*4 + bootNameSize + bootArgsSize + 32

	// maxHeaderOffset bounds the scan for the header magic; some vendor
	// tools prepend a stub before the real header.
	maxHeaderOffset = 512
)

// samsungSEAndroidMagic trails Samsung images at the tail offset.
const samsungSEAndroidMagic = "SEANDROIDENFORCE"

const samsungSEAndroidMagicSize = len(samsungSEAndroidMagic)

// androidHeader is the on-disk Android header in host byte order.
type androidHeader struct {
	kernelSize  uint32
	kernelAddr  uint32
	ramdiskSize uint32
	ramdiskAddr uint32
	secondSize  uint32
	secondAddr  uint32
	tagsAddr    uint32
	pageSize    uint32
	dtSize      uint32
	unused      uint32
	name        [bootNameSize]byte
	cmdline     [bootArgsSize]byte
	id          [32]byte
}

// decodeAndroidHeader parses a little-endian header. buf must hold at
// least androidHeaderSize bytes starting at the magic.
func decodeAndroidHeader(buf []byte) androidHeader {
	var h androidHeader
	le := binary.LittleEndian
	h.kernelSize = le.Uint32(buf[8:])
	h.kernelAddr = le.Uint32(buf[12:])
	h.ramdiskSize = le.Uint32(buf[16:])
	h.ramdiskAddr = le.Uint32(buf[20:])
	h.secondSize = le.Uint32(buf[24:])
	h.secondAddr = le.Uint32(buf[28:])
	h.tagsAddr = le.Uint32(buf[32:])
	h.pageSize = le.Uint32(buf[36:])
	h.dtSize = le.Uint32(buf[40:])
	h.unused = le.Uint32(buf[44:])
	copy(h.name[:], buf[48:48+bootNameSize])
	copy(h.cmdline[:], buf[64:64+bootArgsSize])
	copy(h.id[:], buf[576:576+32])
	return h
}

// encodeAndroidHeader serializes the header to its little-endian on-disk
// form, magic included.
func encodeAndroidHeader(h *androidHeader) []byte {
	buf := make([]byte, androidHeaderSize)
	le := binary.LittleEndian
	copy(buf[0:8], bootMagic)
	le.PutUint32(buf[8:], h.kernelSize)
	le.PutUint32(buf[12:], h.kernelAddr)
	le.PutUint32(buf[16:], h.ramdiskSize)
	le.PutUint32(buf[20:], h.ramdiskAddr)
	le.PutUint32(buf[24:], h.secondSize)
	le.PutUint32(buf[28:], h.secondAddr)
	le.PutUint32(buf[32:], h.tagsAddr)
	le.PutUint32(buf[36:], h.pageSize)
	le.PutUint32(buf[40:], h.dtSize)
	le.PutUint32(buf[44:], h.unused)
	copy(buf[48:64], h.name[:])
	copy(buf[64:576], h.cmdline[:])
	copy(buf[576:608], h.id[:])
	return buf
}

// validPageSize reports whether n is one of the flash page sizes the
// Android-family formats accept.
func validPageSize(n uint32) bool {
	switch n {
	case 2048, 4096, 8192, 16384, 32768, 65536, 131072:
		return true
	}
	return false
}

// tailOffset computes where trailing magics live: the position after the
// header page and every aligned payload. The header page is counted as a
// full page regardless of where the header was found.
func tailOffset(h *androidHeader) uint64 {
	pos := uint64(h.pageSize)

	pos += uint64(h.kernelSize)
	pos += alignPageSize(pos, h.pageSize)

	pos += uint64(h.ramdiskSize)
	pos += alignPageSize(pos, h.pageSize)

	pos += uint64(h.secondSize)
	pos += alignPageSize(pos, h.pageSize)

	pos += uint64(h.dtSize)
	pos += alignPageSize(pos, h.pageSize)

	return pos
}

// cString decodes a fixed-length null-padded byte array.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

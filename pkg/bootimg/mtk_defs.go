package bootimg

import "encoding/binary"

// MTK sub-header constants. A 512-byte block sits at the start of the
// kernel and ramdisk payloads; its size field holds the payload length
// excluding the block itself.
var mtkMagic = []byte{0x88, 0x16, 0x88, 0x58}

const (
	mtkMagicSize = 4

	// mtkHeaderSize is the full padded sub-header block.
	mtkHeaderSize = 512

	// mtkHeaderSizeFieldOffset locates the 32-bit size field inside the
	// block, immediately after the magic.
	mtkHeaderSizeFieldOffset = 4

	mtkNameSize = 32
)

// MTKHeaderSize is the on-disk size of an MTK sub-header block.
const MTKHeaderSize = mtkHeaderSize

// MTKHeaderBlock builds a 512-byte MTK sub-header block with the given
// section name and a zero size field. The size field is patched during
// writer finalization once the payload size is known.
func MTKHeaderBlock(name string) []byte {
	var h mtkHeader
	copy(h.name[:], name)
	return encodeMTKHeader(&h)
}

// mtkHeader is an MTK sub-header in host byte order.
type mtkHeader struct {
	size uint32
	name [mtkNameSize]byte
}

// decodeMTKHeader parses a little-endian sub-header. buf must hold at
// least mtkHeaderSize bytes starting at the magic.
func decodeMTKHeader(buf []byte) mtkHeader {
	var h mtkHeader
	h.size = binary.LittleEndian.Uint32(buf[mtkHeaderSizeFieldOffset:])
	copy(h.name[:], buf[8:8+mtkNameSize])
	return h
}

// encodeMTKHeader serializes the sub-header to its padded on-disk form.
func encodeMTKHeader(h *mtkHeader) []byte {
	buf := make([]byte, mtkHeaderSize)
	copy(buf, mtkMagic)
	binary.LittleEndian.PutUint32(buf[mtkHeaderSizeFieldOffset:], h.size)
	copy(buf[8:], h.name[:])
	return buf
}

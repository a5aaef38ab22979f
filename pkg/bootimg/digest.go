package bootimg

import (
	"crypto/sha1"
	"encoding/binary"

	"github.com/eunmann/bootimg/pkg/iofile"
)

// digestChunkSize bounds reads during the digest pass.
const digestChunkSize = 10240

// computeImageDigest runs the deferred content digest over the finished
// segment table: every segment's payload bytes, then its little-endian
// 32-bit size. MTK sub-header sizes are not fed directly; they are folded
// into the following kernel or ramdisk size term. A zero-size device tree
// contributes nothing.
func computeImageDigest(f iofile.File, sw *segmentWriter) ([sha1.Size]byte, error) {
	var digest [sha1.Size]byte
	h := sha1.New()
	buf := make([]byte, digestChunkSize)

	var kernelMTKHdrSize uint32
	var ramdiskMTKHdrSize uint32

	for i := 0; i < sw.entriesSize(); i++ {
		e := sw.entriesGet(i)

		if _, err := f.Seek(int64(e.offset), iofile.SeekSet); err != nil {
			return digest, wrapFile(err, "failed to seek to %s entry", e.typ)
		}

		remain := e.size
		for remain > 0 {
			toRead := remain
			if toRead > digestChunkSize {
				toRead = digestChunkSize
			}
			n, err := f.ReadFully(buf[:toRead])
			if err != nil {
				return digest, wrapFile(err, "failed to read %s entry", e.typ)
			}
			if uint64(n) != toRead {
				return digest, errorf(KindFileFormat, "unexpected EOF when reading %s entry", e.typ)
			}
			h.Write(buf[:n])
			remain -= toRead
		}

		var sizeTerm uint32
		switch e.typ {
		case EntryMTKKernelHeader:
			kernelMTKHdrSize = uint32(e.size)
			continue
		case EntryMTKRamdiskHeader:
			ramdiskMTKHdrSize = uint32(e.size)
			continue
		case EntryKernel:
			sizeTerm = uint32(e.size) + kernelMTKHdrSize
		case EntryRamdisk:
			sizeTerm = uint32(e.size) + ramdiskMTKHdrSize
		case EntrySecondBoot:
			sizeTerm = uint32(e.size)
		case EntryDeviceTree:
			if e.size == 0 {
				continue
			}
			sizeTerm = uint32(e.size)
		default:
			continue
		}

		var le32 [4]byte
		binary.LittleEndian.PutUint32(le32[:], sizeTerm)
		h.Write(le32[:])
	}

	copy(digest[:], h.Sum(nil))
	return digest, nil
}

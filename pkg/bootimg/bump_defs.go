package bootimg

// bumpMagic trails Bump images at the tail offset.
var bumpMagic = []byte{
	0x41, 0xa9, 0xe4, 0x67, 0x74, 0x4d, 0x1d, 0x1b,
	0xa4, 0x29, 0xf2, 0xec, 0xea, 0x65, 0x52, 0x79,
}

const bumpMagicSize = 16

// Package bootimg reads and writes Android-family boot images.
//
// Three on-disk formats are supported: the base Android layout, the Bump
// variant (Android plus a trailing magic), and the MTK variant (Android with
// 512-byte sub-headers embedded at the start of the kernel and ramdisk
// payloads, all covered by a SHA-1 trailer digest in the header id field).
//
// A Reader probes a file by letting each enabled format bid a confidence
// score, then streams typed entries (kernel, ramdisk, second-stage
// bootloader, device tree) through a page-aligned segment cursor. A Writer
// streams entries the same way and finalizes the image on Close, patching
// sizes and the digest into the header it reserved at offset zero.
package bootimg

// Package cli implements the command-line interface for bootimg.
package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eunmann/bootimg/internal/logctx"
	"github.com/eunmann/bootimg/pkg/bootimg"
	"github.com/eunmann/bootimg/pkg/fileutil"
	"github.com/eunmann/bootimg/pkg/humanfmt"
	"github.com/eunmann/bootimg/pkg/iofile"
	"github.com/eunmann/bootimg/pkg/logging"
)

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: bootimg <command> [options]\ncommands: probe, unpack, pack")
	}

	switch args[0] {
	case "probe":
		return runProbe(args[1:])
	case "unpack":
		return runUnpack(args[1:])
	case "pack":
		return runPack(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runProbe(args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	images := fs.Args()
	if len(images) == 0 {
		return errors.New("at least one image file is required")
	}

	logging.Init(*debug, *human)
	ctx := logctx.WithLogger(context.Background(), *logging.L())

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, path := range images {
		path := path
		g.Go(func() error {
			return probeImage(logctx.WithStr(ctx, "image", path), path)
		})
	}
	return g.Wait()
}

func probeImage(ctx context.Context, path string) error {
	log := logctx.FromContext(ctx)

	f, err := iofile.OpenMmap(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	r := bootimg.NewReader(f)
	r.SetLogger(log)
	r.EnableAllFormats()

	header, err := r.ReadHeader()
	if bootimg.IsWarn(err) {
		log.Warn().Msg("no known boot image format matched")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	format, _ := r.Format()
	event := log.Info().Str("format", format.String())
	if pageSize, ok := header.PageSize(); ok {
		event = event.Uint32("page_size", pageSize)
	}
	if name, ok := header.BoardName(); ok && name != "" {
		event = event.Str("board", name)
	}
	if cmdline, ok := header.KernelCmdline(); ok && cmdline != "" {
		event = event.Str("cmdline", cmdline)
	}
	event.Msg("format identified")

	for {
		entry, err := r.ReadEntry()
		if errors.Is(err, bootimg.ErrEndOfEntries) {
			break
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}
		log.Info().
			Str("entry", entry.Type.String()).
			Uint64("offset", entry.Offset).
			Str("size", humanfmt.BytesUint64(entry.Size)).
			Msg("entry")
	}
	return nil
}

// entryFileName maps an entry type to its output file name.
func entryFileName(t bootimg.EntryType) string {
	switch t {
	case bootimg.EntryKernel:
		return "kernel.img"
	case bootimg.EntryRamdisk:
		return "ramdisk.img"
	case bootimg.EntrySecondBoot:
		return "second.img"
	case bootimg.EntryDeviceTree:
		return "dt.img"
	case bootimg.EntryMTKKernelHeader:
		return "mtk_kernel_hdr.img"
	case bootimg.EntryMTKRamdiskHeader:
		return "mtk_ramdisk_hdr.img"
	default:
		return t.String() + ".img"
	}
}

// readEntryData drains the current entry into memory.
func readEntryData(r *bootimg.Reader, size uint64) ([]byte, error) {
	data := make([]byte, 0, size)
	buf := make([]byte, 64*1024)
	for {
		n, err := r.ReadData(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return data, nil
		}
		data = append(data, buf[:n]...)
	}
}

var gzipMagic = []byte{0x1f, 0x8b}

func runUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	outDir := fs.String("out", "", "output directory for unpacked sections")
	strict := fs.Bool("strict", false, "fail on truncated device tree sections")
	decompress := fs.Bool("decompress-ramdisk", false, "gunzip the ramdisk if it is gzip-compressed")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *outDir == "" {
		return errors.New("--out is required")
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one image file is required")
	}
	path := fs.Arg(0)

	logging.Init(*debug, *human)
	log := logging.WithImage(path)

	f, err := iofile.OpenMmap(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	r := bootimg.NewReader(f)
	r.SetLogger(log)
	r.EnableAllFormats()
	if *strict {
		if err := r.SetOption("strict", "true"); err != nil {
			return fmt.Errorf("set option: %w", err)
		}
	}

	header, err := r.ReadHeader()
	if err != nil {
		if bootimg.IsWarn(err) {
			return errors.New("no known boot image format matched")
		}
		return fmt.Errorf("read header: %w", err)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeHeaderFile(filepath.Join(*outDir, "header.txt"), header); err != nil {
		return err
	}

	for {
		entry, err := r.ReadEntry()
		if errors.Is(err, bootimg.ErrEndOfEntries) {
			break
		}
		if err != nil {
			return fmt.Errorf("read entry: %w", err)
		}

		data, err := readEntryData(r, entry.Size)
		if err != nil {
			return fmt.Errorf("read %s data: %w", entry.Type, err)
		}

		name := entryFileName(entry.Type)
		if entry.Type == bootimg.EntryRamdisk && *decompress && bytes.HasPrefix(data, gzipMagic) {
			data, err = gunzip(data)
			if err != nil {
				return fmt.Errorf("decompress ramdisk: %w", err)
			}
			name = "ramdisk.cpio"
		}

		outPath := filepath.Join(*outDir, name)
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		log.Info().
			Str("entry", entry.Type.String()).
			Str("file", outPath).
			Str("size", humanfmt.Bytes(int64(len(data)))).
			Msg("section unpacked")
	}
	return nil
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func writeHeaderFile(path string, header *bootimg.Header) error {
	var buf bytes.Buffer
	if name, ok := header.BoardName(); ok {
		fmt.Fprintf(&buf, "board_name=%s\n", name)
	}
	if cmdline, ok := header.KernelCmdline(); ok {
		fmt.Fprintf(&buf, "cmdline=%s\n", cmdline)
	}
	if pageSize, ok := header.PageSize(); ok {
		fmt.Fprintf(&buf, "page_size=%d\n", pageSize)
	}
	if addr, ok := header.KernelAddress(); ok {
		fmt.Fprintf(&buf, "kernel_addr=0x%08x\n", addr)
	}
	if addr, ok := header.RamdiskAddress(); ok {
		fmt.Fprintf(&buf, "ramdisk_addr=0x%08x\n", addr)
	}
	if addr, ok := header.SecondBootAddress(); ok {
		fmt.Fprintf(&buf, "second_addr=0x%08x\n", addr)
	}
	if addr, ok := header.KernelTagsAddress(); ok {
		fmt.Fprintf(&buf, "tags_addr=0x%08x\n", addr)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write header file: %w", err)
	}
	return nil
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	formatName := fs.String("format", "android", "output format: android, bump, or mtk")
	out := fs.String("out", "", "output image path")
	pageSize := fs.Uint("page-size", 2048, "flash page size")
	board := fs.String("board", "", "board name")
	cmdline := fs.String("cmdline", "", "kernel command line")
	kernelAddr := fs.String("kernel-addr", "0x10008000", "kernel load address")
	ramdiskAddr := fs.String("ramdisk-addr", "0x11000000", "ramdisk load address")
	secondAddr := fs.String("second-addr", "0x10f00000", "second bootloader load address")
	tagsAddr := fs.String("tags-addr", "0x10000100", "kernel tags address")
	kernelPath := fs.String("kernel", "", "kernel file")
	ramdiskPath := fs.String("ramdisk", "", "ramdisk file")
	secondPath := fs.String("second", "", "second bootloader file (optional)")
	dtPath := fs.String("dt", "", "device tree file (optional)")
	gzipRamdisk := fs.Bool("gzip-ramdisk", false, "gzip the ramdisk before packing")
	debug := fs.Bool("debug", false, "enable debug logging")
	human := fs.Bool("human", false, "human-friendly log output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		return errors.New("--out is required")
	}
	if *kernelPath == "" {
		return errors.New("--kernel is required")
	}
	if *ramdiskPath == "" {
		return errors.New("--ramdisk is required")
	}

	format, err := bootimg.ParseFormat(*formatName)
	if err != nil {
		return fmt.Errorf("--format: %w", err)
	}

	addrs := make([]uint32, 4)
	for i, s := range []string{*kernelAddr, *ramdiskAddr, *secondAddr, *tagsAddr} {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", s, err)
		}
		addrs[i] = uint32(v)
	}

	logging.Init(*debug, *human)
	log := logging.WithImage(*out)

	return fileutil.WriteTmpThenMove(filepath.Dir(*out), *out, func(tmpPath string) error {
		return packImage(log, tmpPath, format, packParams{
			pageSize:    uint32(*pageSize),
			board:       *board,
			cmdline:     *cmdline,
			addrs:       addrs,
			kernelPath:  *kernelPath,
			ramdiskPath: *ramdiskPath,
			secondPath:  *secondPath,
			dtPath:      *dtPath,
			gzipRamdisk: *gzipRamdisk,
		})
	})
}

type packParams struct {
	pageSize    uint32
	board       string
	cmdline     string
	addrs       []uint32
	kernelPath  string
	ramdiskPath string
	secondPath  string
	dtPath      string
	gzipRamdisk bool
}

// sectionData loads the payload for one entry type, or nil for sections
// that were not provided.
func (p *packParams) sectionData(t bootimg.EntryType) ([]byte, error) {
	var path string
	switch t {
	case bootimg.EntryKernel:
		path = p.kernelPath
	case bootimg.EntryRamdisk:
		path = p.ramdiskPath
	case bootimg.EntrySecondBoot:
		path = p.secondPath
	case bootimg.EntryDeviceTree:
		path = p.dtPath
	case bootimg.EntryMTKKernelHeader, bootimg.EntryMTKRamdiskHeader:
		return bootimg.MTKHeaderBlock(p.board), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if t == bootimg.EntryRamdisk && p.gzipRamdisk {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("compress ramdisk: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress ramdisk: %w", err)
		}
		data = buf.Bytes()
	}
	return data, nil
}

func packImage(log zerolog.Logger, path string, format bootimg.Format, p packParams) error {
	f, err := iofile.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer f.Close()

	w := bootimg.NewWriter(f)
	w.SetLogger(log)
	if err := w.SetFormat(format); err != nil {
		return fmt.Errorf("set format: %w", err)
	}

	header, err := w.GetHeader()
	if err != nil {
		return fmt.Errorf("get header: %w", err)
	}
	if err := header.SetPageSize(p.pageSize); err != nil {
		return fmt.Errorf("set page size: %w", err)
	}
	if p.board != "" {
		if err := header.SetBoardName(p.board); err != nil {
			return fmt.Errorf("set board name: %w", err)
		}
	}
	if err := header.SetKernelCmdline(p.cmdline); err != nil {
		return fmt.Errorf("set cmdline: %w", err)
	}
	if err := header.SetKernelAddress(p.addrs[0]); err != nil {
		return fmt.Errorf("set kernel address: %w", err)
	}
	if err := header.SetRamdiskAddress(p.addrs[1]); err != nil {
		return fmt.Errorf("set ramdisk address: %w", err)
	}
	if err := header.SetSecondBootAddress(p.addrs[2]); err != nil {
		return fmt.Errorf("set second address: %w", err)
	}
	if err := header.SetKernelTagsAddress(p.addrs[3]); err != nil {
		return fmt.Errorf("set tags address: %w", err)
	}

	if err := w.WriteHeader(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for {
		entry, err := w.GetEntry()
		if errors.Is(err, bootimg.ErrEndOfEntries) {
			break
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}

		data, err := p.sectionData(entry.Type)
		if err != nil {
			return err
		}
		if data != nil {
			if _, err := w.WriteData(data); err != nil {
				return fmt.Errorf("write %s: %w", entry.Type, err)
			}
		}
		if err := w.FinishEntry(); err != nil {
			return fmt.Errorf("finish %s: %w", entry.Type, err)
		}
		log.Info().
			Str("entry", entry.Type.String()).
			Str("size", humanfmt.Bytes(int64(len(data)))).
			Msg("section packed")
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize image: %w", err)
	}
	return nil
}

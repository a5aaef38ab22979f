package bootimg

// FieldFlags is a bitset of logical header fields a format accepts.
type FieldFlags uint32

const (
	FieldBoardName FieldFlags = 1 << iota
	FieldKernelCmdline
	FieldPageSize
	FieldKernelAddress
	FieldRamdiskAddress
	FieldSecondBootAddress
	FieldKernelTagsAddress
)

// allFields is the full field set accepted by the Android-family formats.
const allFields = FieldBoardName | FieldKernelCmdline | FieldPageSize |
	FieldKernelAddress | FieldRamdiskAddress | FieldSecondBootAddress |
	FieldKernelTagsAddress

// Header is the format-neutral view of a boot image header. Fields are
// optional; a getter's second return value reports presence. Setting a
// field outside SupportedFields fails with KindUnsupported.
type Header struct {
	supported FieldFlags
	set       FieldFlags

	boardName     string
	kernelCmdline string
	pageSize      uint32
	kernelAddr    uint32
	ramdiskAddr   uint32
	secondAddr    uint32
	tagsAddr      uint32
}

// NewHeader returns a Header accepting every field. Codecs narrow the set
// with SetSupportedFields before handing it to callers.
func NewHeader() *Header {
	return &Header{supported: allFields}
}

// SupportedFields returns the fields the active format accepts.
func (h *Header) SupportedFields() FieldFlags {
	return h.supported
}

// SetSupportedFields replaces the supported field set.
func (h *Header) SetSupportedFields(fields FieldFlags) {
	h.supported = fields
}

func (h *Header) setField(f FieldFlags, name string) error {
	if h.supported&f == 0 {
		return errorf(KindUnsupported, "%s is not supported by the active format", name)
	}
	h.set |= f
	return nil
}

// IsSet reports whether every field in fields has been set.
func (h *Header) IsSet(fields FieldFlags) bool {
	return h.set&fields == fields
}

func (h *Header) BoardName() (string, bool) {
	return h.boardName, h.set&FieldBoardName != 0
}

func (h *Header) SetBoardName(name string) error {
	if err := h.setField(FieldBoardName, "board name"); err != nil {
		return err
	}
	h.boardName = name
	return nil
}

func (h *Header) KernelCmdline() (string, bool) {
	return h.kernelCmdline, h.set&FieldKernelCmdline != 0
}

func (h *Header) SetKernelCmdline(cmdline string) error {
	if err := h.setField(FieldKernelCmdline, "kernel cmdline"); err != nil {
		return err
	}
	h.kernelCmdline = cmdline
	return nil
}

func (h *Header) PageSize() (uint32, bool) {
	return h.pageSize, h.set&FieldPageSize != 0
}

func (h *Header) SetPageSize(pageSize uint32) error {
	if err := h.setField(FieldPageSize, "page size"); err != nil {
		return err
	}
	h.pageSize = pageSize
	return nil
}

func (h *Header) KernelAddress() (uint32, bool) {
	return h.kernelAddr, h.set&FieldKernelAddress != 0
}

func (h *Header) SetKernelAddress(addr uint32) error {
	if err := h.setField(FieldKernelAddress, "kernel address"); err != nil {
		return err
	}
	h.kernelAddr = addr
	return nil
}

func (h *Header) RamdiskAddress() (uint32, bool) {
	return h.ramdiskAddr, h.set&FieldRamdiskAddress != 0
}

func (h *Header) SetRamdiskAddress(addr uint32) error {
	if err := h.setField(FieldRamdiskAddress, "ramdisk address"); err != nil {
		return err
	}
	h.ramdiskAddr = addr
	return nil
}

func (h *Header) SecondBootAddress() (uint32, bool) {
	return h.secondAddr, h.set&FieldSecondBootAddress != 0
}

func (h *Header) SetSecondBootAddress(addr uint32) error {
	if err := h.setField(FieldSecondBootAddress, "secondboot address"); err != nil {
		return err
	}
	h.secondAddr = addr
	return nil
}

func (h *Header) KernelTagsAddress() (uint32, bool) {
	return h.tagsAddr, h.set&FieldKernelTagsAddress != 0
}

func (h *Header) SetKernelTagsAddress(addr uint32) error {
	if err := h.setField(FieldKernelTagsAddress, "kernel tags address"); err != nil {
		return err
	}
	h.tagsAddr = addr
	return nil
}

package bootimg

import (
	"errors"
	"testing"
)

func TestHeaderUnsupportedField(t *testing.T) {
	h := NewHeader()
	h.SetSupportedFields(FieldPageSize)

	if err := h.SetPageSize(2048); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}

	err := h.SetBoardName("test")
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindUnsupported {
		t.Fatalf("SetBoardName = %v, want KindUnsupported", err)
	}
	if _, ok := h.BoardName(); ok {
		t.Error("board name reported set after rejected setter")
	}
}

func TestHeaderOptionalFields(t *testing.T) {
	h := NewHeader()

	if _, ok := h.PageSize(); ok {
		t.Error("page size reported set on fresh header")
	}
	if err := h.SetPageSize(4096); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	if v, ok := h.PageSize(); !ok || v != 4096 {
		t.Errorf("page size = %d (%v), want 4096", v, ok)
	}

	if err := h.SetKernelAddress(0x10008000); err != nil {
		t.Fatalf("SetKernelAddress failed: %v", err)
	}
	if v, ok := h.KernelAddress(); !ok || v != 0x10008000 {
		t.Errorf("kernel address = %#x (%v)", v, ok)
	}

	if !h.IsSet(FieldPageSize | FieldKernelAddress) {
		t.Error("IsSet does not report both fields")
	}
	if h.IsSet(FieldBoardName) {
		t.Error("IsSet reports unset field")
	}
}

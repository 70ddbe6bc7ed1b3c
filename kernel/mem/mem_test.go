package mem

import "testing"

func TestSizeToPages(t *testing.T) {
	specs := []struct {
		size     Size
		expPages uint64
	}{
		{1023 * Kb, 256},
		{1024 * Kb, 256},
		{1 * Byte, 1},
		{0, 0},
	}

	for specIndex, spec := range specs {
		if got := spec.size.Pages(); got != spec.expPages {
			t.Errorf("[spec %d] expected Pages(%d bytes) to equal %d; got %d", specIndex, spec.size, spec.expPages, got)
		}
	}
}

func TestPhysAddrAlign(t *testing.T) {
	specs := []struct {
		addr   PhysAddr
		align  uintptr
		expUp  PhysAddr
		expOff uintptr
	}{
		{0, uintptr(PageSize), 0, 0},
		{1, uintptr(PageSize), PhysAddr(PageSize), 1},
		{PhysAddr(PageSize), uintptr(PageSize), PhysAddr(PageSize), 0},
		{PhysAddr(PageSize) + 10, uintptr(PageSize), PhysAddr(2 * PageSize), 10},
	}

	for specIndex, spec := range specs {
		if got := spec.addr.AlignUp(spec.align); got != spec.expUp {
			t.Errorf("[spec %d] expected AlignUp to equal %d; got %d", specIndex, spec.expUp, got)
		}
		if got := spec.addr.Offset(); got != spec.expOff {
			t.Errorf("[spec %d] expected Offset to equal %d; got %d", specIndex, spec.expOff, got)
		}
	}
}

func TestPhysAddrAlignDown(t *testing.T) {
	addr := PhysAddr(uintptr(PageSize) + 100)
	if got := addr.AlignDown(uintptr(PageSize)); got != PhysAddr(PageSize) {
		t.Errorf("expected AlignDown to equal %d; got %d", PhysAddr(PageSize), got)
	}
}

func TestPhysAddrFrame(t *testing.T) {
	addr := PhysAddr(3 * uintptr(PageSize))
	if got := addr.Frame(); got != 3 {
		t.Errorf("expected Frame() to equal 3; got %d", got)
	}
}

func TestVirtAddrIsCanonical(t *testing.T) {
	specs := []struct {
		addr VirtAddr
		exp  bool
	}{
		{0x0, true},
		{0x00007fffffffffff, true},                // highest canonical positive
		{0xffff800000000000, true},                // lowest canonical negative (HHDM region)
		{0xffffffffffffffff, true},                // all-ones
		{0x0000800000000000, false},                // bit 47 set, bits 48-63 clear
		{0x00008000deadbeef, false},                // same, with noise in low bits
		{VirtAddr(1) << 47, false},                 // bit 47 set alone, bits 48-63 clear
	}

	for specIndex, spec := range specs {
		if got := spec.addr.IsCanonical(); got != spec.exp {
			t.Errorf("[spec %d] expected IsCanonical(0x%x) to be %t; got %t", specIndex, uint64(spec.addr), spec.exp, got)
		}
	}
}

func TestVirtAddrIndices(t *testing.T) {
	// Construct an address with a distinct index at every level plus a
	// non-zero page offset, then verify each decoded field.
	addr := VirtAddr((1 << 39) | (2 << 30) | (3 << 21) | (4 << 12) | 0x123)

	if got := addr.PML4Index(); got != 1 {
		t.Errorf("expected PML4Index 1; got %d", got)
	}
	if got := addr.PDPTIndex(); got != 2 {
		t.Errorf("expected PDPTIndex 2; got %d", got)
	}
	if got := addr.PDIndex(); got != 3 {
		t.Errorf("expected PDIndex 3; got %d", got)
	}
	if got := addr.PTIndex(); got != 4 {
		t.Errorf("expected PTIndex 4; got %d", got)
	}
	if got := addr.Offset(); got != 0x123 {
		t.Errorf("expected Offset 0x123; got 0x%x", got)
	}
}

package vmm

import (
	"testing"

	"github.com/aayushhyadav/csce-611/kernel/mem"
)

// bootstrapVMPool wires a VM pool covering [0x400000, 0x500000) on top of a
// loaded page table with the boot frame-pool geometry.
func bootstrapVMPool(t *testing.T) (*Manager, *VMPool) {
	t.Helper()

	mgr, _, processPool := bootstrapManager(t, 4*mem.Mb)

	pt, err := mgr.NewPageTable()
	if err != nil {
		t.Fatal(err)
	}
	pt.Load()

	pool, err := NewVMPool(0x400000, 0x100000, processPool, pt)
	if err != nil {
		t.Fatal(err)
	}

	return mgr, pool
}

func TestVMPoolIsLegitimate(t *testing.T) {
	mockTranslation(t)

	_, pool := bootstrapVMPool(t)

	specs := []struct {
		addr uintptr
		exp  bool
	}{
		{0x3fffff, false},
		{0x400000, true},
		{0x480000, true},
		{0x500000, true}, // upper bound is inclusive
		{0x500001, false},
	}

	for specIndex, spec := range specs {
		if got := pool.IsLegitimate(spec.addr); got != spec.exp {
			t.Errorf("[spec %d] expected IsLegitimate(%x) to return %t; got %t", specIndex, spec.addr, spec.exp, got)
		}
	}
}

func TestVMPoolAllocate(t *testing.T) {
	mockTranslation(t)

	_, pool := bootstrapVMPool(t)

	// Requests round up to page multiples and are placed back to back
	// after the bookkeeping page.
	first, err := pool.Allocate(100)
	if err != nil {
		t.Fatal(err)
	}
	if first != 0x401000 {
		t.Errorf("expected the first region after the bookkeeping page; got %x", first)
	}

	second, err := pool.Allocate(5000)
	if err != nil {
		t.Fatal(err)
	}
	if second != first+uintptr(mem.PageSize) {
		t.Errorf("expected the second region right after the first; got %x", second)
	}

	third, err := pool.Allocate(1)
	if err != nil {
		t.Fatal(err)
	}
	if third != second+2*uintptr(mem.PageSize) {
		t.Errorf("expected the 5000-byte region to occupy two pages; got %x", third)
	}
}

func TestVMPoolAllocateErrors(t *testing.T) {
	mockTranslation(t)

	_, pool := bootstrapVMPool(t)

	if _, err := pool.Allocate(0); err != ErrInvalidRegionSize {
		t.Errorf("expected ErrInvalidRegionSize for a zero-sized request; got %v", err)
	}

	// The bookkeeping page leaves 255 of the window's 256 pages available
	if _, err := pool.Allocate(0x100000); err != ErrVMPoolExhausted {
		t.Errorf("expected ErrVMPoolExhausted for a request spanning the whole window; got %v", err)
	}

	if _, err := pool.Allocate(0xff000); err != nil {
		t.Fatalf("expected the remaining window to be allocatable; got %v", err)
	}
	if _, err := pool.Allocate(1); err != ErrVMPoolExhausted {
		t.Errorf("expected ErrVMPoolExhausted once the window is full; got %v", err)
	}
}

func TestVMPoolRegionTableFull(t *testing.T) {
	mockTranslation(t)

	mgr, _, processPool := bootstrapManager(t, 4*mem.Mb)

	pt, err := mgr.NewPageTable()
	if err != nil {
		t.Fatal(err)
	}
	pt.Load()

	// A 2Mb window holds one page per descriptor slot
	pool, err := NewVMPool(0x400000, 2*mem.Mb, processPool, pt)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < maxRegionsPerPool; i++ {
		if _, err := pool.Allocate(1); err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
	}

	if _, err := pool.Allocate(1); err != ErrRegionTableFull {
		t.Errorf("expected ErrRegionTableFull; got %v", err)
	}
}

func TestVMPoolRelease(t *testing.T) {
	as := mockTranslation(t)

	mgr, pool := bootstrapVMPool(t)
	processPool := pool.FramePool()

	base, err := pool.Allocate(2 * mem.PageSize)
	if err != nil {
		t.Fatal(err)
	}

	// Touch the first page of the region; two traps back it with a frame.
	// The second page is never touched and stays unmapped.
	if err = mgr.serviceFault(0, base); err != nil {
		t.Fatal(err)
	}
	if err = mgr.serviceFault(0, base); err != nil {
		t.Fatal(err)
	}

	freeBefore := processPool.FreeFrameCount()

	if err = pool.Release(base); err != nil {
		t.Fatal(err)
	}

	if got := processPool.FreeFrameCount(); got != freeBefore+1 {
		t.Errorf("expected the touched page's frame to return to the process pool; free count %d", got)
	}

	entry := as.page(as.activeDirectory()[pdeIndexForAddress(base)].Frame())[pteIndexForAddress(base)]
	if entry.HasFlags(FlagPresent) {
		t.Error("expected the released page's present bit to be cleared")
	}

	// The released descriptor slot is reclaimed
	if err = pool.Release(base); err != ErrRegionNotFound {
		t.Errorf("expected ErrRegionNotFound for a second release; got %v", err)
	}
	if err = pool.Release(0x480000); err != ErrRegionNotFound {
		t.Errorf("expected ErrRegionNotFound for a never-allocated address; got %v", err)
	}

	// The freed window is handed out again at the same base
	again, err := pool.Allocate(mem.PageSize)
	if err != nil {
		t.Fatal(err)
	}
	if again != base {
		t.Errorf("expected the freed window to be reused; got %x", again)
	}
}

package kmain

import (
	"testing"
	"unsafe"

	"github.com/aayushhyadav/csce-611/kernel/cpu"
	"github.com/aayushhyadav/csce-611/kernel/irq"
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
	"github.com/aayushhyadav/csce-611/kernel/mem/vmm"
)

type mockPage [1024]uint32

// mockMemory backs physical frames, the recursive alias window and the pool
// bitmaps with Go-allocated buffers so the boot sequence can run in user
// mode. Alias addresses are resolved through the active directory the same
// way the MMU resolves them.
func mockMemory(t *testing.T) map[pmm.Frame]*mockPage {
	t.Helper()

	pages := make(map[pmm.Frame]*mockPage)
	page := func(frame pmm.Frame) *mockPage {
		buf, exists := pages[frame]
		if !exists {
			buf = new(mockPage)
			pages[frame] = buf
		}
		return buf
	}

	bitmaps := make(map[pmm.Frame][]byte)
	pmm.SetFrameMapper(func(frame pmm.Frame, size uintptr) []byte {
		buf, exists := bitmaps[frame]
		if !exists {
			buf = make([]byte, size)
			bitmaps[frame] = buf
		}
		return buf
	})

	vmm.SetPointerResolvers(
		func(aliasAddr uintptr) unsafe.Pointer {
			dir := page(pmm.FrameFromAddress(cpu.ActivePDT()))
			if aliasAddr == vmm.PDEAddress() {
				return unsafe.Pointer(dir)
			}
			pdeIndex := (aliasAddr - vmm.PTEAddress(0)) >> mem.PageShift
			return unsafe.Pointer(page(pmm.Frame(dir[pdeIndex] >> mem.PageShift)))
		},
		func(physAddr uintptr) unsafe.Pointer {
			return unsafe.Pointer(page(pmm.FrameFromAddress(physAddr)))
		},
	)

	t.Cleanup(func() {
		vmm.SetPointerResolvers(nil, nil)
		pmm.SetFrameMapper(nil)
		cpu.SwitchPDT(0)
		cpu.WriteCR0(0)
		cpu.WriteCR2(0)
	})

	return pages
}

func TestBootstrapMemory(t *testing.T) {
	pages := mockMemory(t)

	mgr, codePool, heapPool, err := bootstrapMemory()
	if err != nil {
		t.Fatal(err)
	}

	if !mgr.PagingEnabled() || cpu.ReadCR0()&cpu.CR0PagingEnabledBit == 0 {
		t.Fatal("expected the boot sequence to enable paging")
	}
	if cpu.ActivePDT() == 0 {
		t.Fatal("expected a page table to be loaded")
	}

	if codePool.BaseAddress() != codePoolBase || heapPool.BaseAddress() != heapPoolBase {
		t.Error("expected the code and heap pools at their configured windows")
	}

	// The 15Mb hole is walled off before any allocation is served
	processPool := heapPool.FramePool()
	if got := processPool.FreeFrameCount(); got != processPoolFrames-holeFrames {
		t.Fatalf("expected %d free process frames after walling off the hole; got %d", processPoolFrames-holeFrames, got)
	}

	// A first touch inside the heap window is serviced through the
	// registered fault vector: one trap for the table page, one for the
	// leaf.
	faultAddr := heapPoolBase + uintptr(mem.PageSize)
	cpu.WriteCR2(faultAddr)
	irq.DispatchExceptionWithCode(irq.PageFaultException, 0, &irq.Frame{}, &irq.Regs{})
	irq.DispatchExceptionWithCode(irq.PageFaultException, 0, &irq.Frame{}, &irq.Regs{})

	dir := pages[pmm.FrameFromAddress(cpu.ActivePDT())]
	pde := dir[faultAddr>>22]
	if pde&1 == 0 {
		t.Fatal("expected the faulting region's directory entry to be present")
	}
	pte := pages[pmm.Frame(pde>>mem.PageShift)][(faultAddr>>mem.PageShift)&1023]
	if pte&1 == 0 {
		t.Fatal("expected the faulting page's leaf entry to be present")
	}

	if got := processPool.FreeFrameCount(); got != processPoolFrames-holeFrames-2 {
		t.Errorf("expected the two traps to consume two process frames; got free count %d", got)
	}
}

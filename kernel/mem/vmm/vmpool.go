package vmm

import (
	"github.com/aayushhyadav/csce-611/kernel"
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
)

// maxRegionsPerPool bounds the region descriptor table of a VM pool. Two
// 32-bit words per descriptor keeps the table within the pool's single
// metadata page.
const maxRegionsPerPool = 512

var (
	// ErrInvalidRegionSize is returned by Allocate for a zero-sized
	// request.
	ErrInvalidRegionSize = &kernel.Error{Module: "vmm", Message: "allocation request size must be > 0"}

	// ErrRegionTableFull is returned by Allocate when the pool's region
	// descriptor table has no free slot.
	ErrRegionTableFull = &kernel.Error{Module: "vmm", Message: "VM pool region table is full"}

	// ErrVMPoolExhausted is returned by Allocate when the requested
	// region does not fit in the pool's remaining address space.
	ErrVMPoolExhausted = &kernel.Error{Module: "vmm", Message: "VM pool address space exhausted"}

	// ErrRegionNotFound is returned by Release when the supplied address
	// is not the base of an allocated region.
	ErrRegionNotFound = &kernel.Error{Module: "vmm", Message: "address is not the base of an allocated region"}
)

// Region describes one allocated run of virtual addresses inside a VM pool.
type Region struct {
	Base uintptr
	Size mem.Size
}

// VMPool hands out page-multiple regions from a contiguous window of
// virtual address space. The pool only tracks region bookkeeping; the
// backing frames are materialized lazily by the fault service on first
// touch and returned on Release.
type VMPool struct {
	baseAddr uintptr
	size     mem.Size

	// framePool is the physical pool that backs this window's
	// demand-paged frames.
	framePool *pmm.FramePool
	pageTable *PageTable

	regions     [maxRegionsPerPool]Region
	regionCount int

	next *VMPool
}

// NewVMPool creates a VM pool covering [baseAddr, baseAddr+size) and
// registers it with the page table's fault-validation list. The first page
// of the window is reserved for the pool's own bookkeeping and is recorded
// as an implicit region so Allocate never hands it out.
func NewVMPool(baseAddr uintptr, size mem.Size, framePool *pmm.FramePool, pt *PageTable) (*VMPool, *kernel.Error) {
	if size < mem.PageSize {
		return nil, ErrInvalidRegionSize
	}

	pool := &VMPool{
		baseAddr:  baseAddr,
		size:      size,
		framePool: framePool,
		pageTable: pt,
	}
	pool.regions[0] = Region{Base: baseAddr, Size: mem.PageSize}
	pool.regionCount = 1

	pt.mgr.RegisterPool(pool)
	return pool, nil
}

// BaseAddress returns the start of the pool's virtual address window.
func (p *VMPool) BaseAddress() uintptr {
	return p.baseAddr
}

// Size returns the extent of the pool's virtual address window.
func (p *VMPool) Size() mem.Size {
	return p.size
}

// FramePool returns the physical frame pool that backs this window.
func (p *VMPool) FramePool() *pmm.FramePool {
	return p.framePool
}

// Allocate reserves a region of at least size bytes and returns its base
// address. The size is rounded up to a page multiple and the region is
// placed immediately after the last allocated one. No frames are mapped;
// the first access to each page of the region page-faults and gets backed
// on demand.
func (p *VMPool) Allocate(size mem.Size) (uintptr, *kernel.Error) {
	if size == 0 {
		return 0, ErrInvalidRegionSize
	}

	if p.regionCount == maxRegionsPerPool {
		return 0, ErrRegionTableFull
	}

	size = (size + mem.PageSize - 1) &^ (mem.PageSize - 1)

	last := p.regions[p.regionCount-1]
	base := last.Base + uintptr(last.Size)

	// Guard against address wrap-around before the bounds check.
	if base+uintptr(size) < base {
		return 0, ErrVMPoolExhausted
	}
	if mem.Size(base-p.baseAddr)+size > p.size {
		return 0, ErrVMPoolExhausted
	}

	p.regions[p.regionCount] = Region{Base: base, Size: size}
	p.regionCount++

	return base, nil
}

// Release returns the region based at regionBase to the pool: every mapped
// page in the region is unmapped and its frame released, and the region's
// descriptor slot is reclaimed. The implicit bookkeeping region cannot be
// released.
func (p *VMPool) Release(regionBase uintptr) *kernel.Error {
	regionIndex := -1
	for i := 1; i < p.regionCount; i++ {
		if p.regions[i].Base == regionBase {
			regionIndex = i
			break
		}
	}
	if regionIndex == -1 {
		return ErrRegionNotFound
	}

	region := p.regions[regionIndex]
	for addr := region.Base; addr < region.Base+uintptr(region.Size); addr += uintptr(mem.PageSize) {
		err := p.pageTable.mgr.FreePage(addr)
		if err == ErrInvalidMapping {
			// Pages the owner never touched have no mapping to tear
			// down.
			continue
		}
		if err != nil {
			return err
		}
	}

	copy(p.regions[regionIndex:p.regionCount-1], p.regions[regionIndex+1:p.regionCount])
	p.regionCount--
	p.regions[p.regionCount] = Region{}

	return nil
}

// IsLegitimate reports whether addr may be accessed through this pool. Both
// window bounds are inclusive.
func (p *VMPool) IsLegitimate(addr uintptr) bool {
	return addr >= p.baseAddr && addr <= p.baseAddr+uintptr(p.size)
}

// Package vmm implements the two-level address translation structures and
// the demand-paging protocol built on top of them: page directories with a
// recursive self-mapping, lazy materialization of page-table pages and leaf
// frames on fault, and virtual memory pools that sub-allocate regions from a
// page table's address space.
package vmm

import (
	"github.com/aayushhyadav/csce-611/kernel"
	"github.com/aayushhyadav/csce-611/kernel/cpu"
	"github.com/aayushhyadav/csce-611/kernel/mem"
	"github.com/aayushhyadav/csce-611/kernel/mem/pmm"
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	switchPDTFn     = cpu.SwitchPDT
	activePDTFn     = cpu.ActivePDT
	flushTLBEntryFn = cpu.FlushTLBEntry
	readCR0Fn       = cpu.ReadCR0
	writeCR0Fn      = cpu.WriteCR0
	readCR2Fn       = cpu.ReadCR2
	cpuHaltFn       = cpu.Halt

	// ErrOversizedSharedWindow is returned when the identity-mapped
	// window does not fit in the single page-table page that the page
	// table constructor sets up.
	ErrOversizedSharedWindow = &kernel.Error{Module: "vmm", Message: "shared window exceeds a single page-table page"}

	// ErrInvalidMapping is returned when trying to operate on a virtual
	// address that is not mapped to a physical page.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrNoActivePageTable is returned when an operation requires a
	// loaded page table but none has been loaded yet.
	ErrNoActivePageTable = &kernel.Error{Module: "vmm", Message: "no page table has been loaded"}
)

// Manager owns the process-wide virtual memory state: the frame pool
// registry, the pools that supply metadata and demand-paged frames, the
// currently active page table and the list of registered VM pools. It is
// passed explicitly to the fault-dispatch entry point instead of living in
// ambient globals.
type Manager struct {
	registry *pmm.Registry

	// kernelPool supplies the frames that hold page directories and the
	// bootstrap page-table page; processPool supplies the demand-paged
	// page-table pages and leaf frames.
	kernelPool  *pmm.FramePool
	processPool *pmm.FramePool

	// sharedWindowSize is the size of the permanently identity-mapped
	// low region that every page table shares.
	sharedWindowSize mem.Size

	active        *PageTable
	pagingEnabled bool

	// poolListHead roots the singly-linked list of registered VM pools,
	// appended to in registration order.
	poolListHead *VMPool
	poolListTail *VMPool
}

// NewManager configures the virtual memory subsystem: reg routes frame
// releases to their owning pool, kernelPool and processPool supply metadata
// and demand-paged frames respectively and sharedWindowSize sets the extent
// of the identity-mapped low region.
func NewManager(reg *pmm.Registry, kernelPool, processPool *pmm.FramePool, sharedWindowSize mem.Size) (*Manager, *kernel.Error) {
	if sharedWindowSize > maxSharedWindowSize {
		return nil, ErrOversizedSharedWindow
	}

	return &Manager{
		registry:         reg,
		kernelPool:       kernelPool,
		processPool:      processPool,
		sharedWindowSize: sharedWindowSize,
	}, nil
}

// PageTable owns one page directory frame plus all the page-table pages
// that get lazily materialized into it by the fault handler.
type PageTable struct {
	mgr            *Manager
	directoryFrame pmm.Frame
}

// NewPageTable allocates and initializes a page directory: the shared low
// window is identity-mapped through a bootstrap page-table page, the last
// directory slot is pointed back at the directory frame itself (recursive
// mapping) and every other slot starts out absent.
//
// Both frames come from the kernel pool, which lies inside the shared
// window; they are therefore identity-mapped in every translation context
// and can be written through their physical addresses.
func (m *Manager) NewPageTable() (*PageTable, *kernel.Error) {
	directoryFrame, err := m.kernelPool.AllocFrames(1)
	if err != nil {
		return nil, err
	}

	tableFrame, err := m.kernelPool.AllocFrames(1)
	if err != nil {
		return nil, err
	}

	sharedPages := uint32(m.sharedWindowSize >> mem.PageShift)

	table := (*tablePage)(physPtrFn(tableFrame.Address()))
	for i := uint32(0); i < entriesPerTable; i++ {
		table[i] = 0
		if i < sharedPages {
			// Identity mapping: page i -> frame i
			table[i].SetFrame(pmm.Frame(i))
			table[i].SetFlags(FlagPresent | FlagRW)
			continue
		}
		table[i].SetFlags(FlagRW)
	}

	dir := (*tablePage)(physPtrFn(directoryFrame.Address()))
	dir[0] = 0
	dir[0].SetFrame(tableFrame)
	dir[0].SetFlags(FlagPresent | FlagRW)

	for i := 1; i < recursiveIndex; i++ {
		dir[i] = 0
		dir[i].SetFlags(FlagRW)
	}

	dir[recursiveIndex] = 0
	dir[recursiveIndex].SetFrame(directoryFrame)
	dir[recursiveIndex].SetFlags(FlagPresent | FlagRW)

	return &PageTable{mgr: m, directoryFrame: directoryFrame}, nil
}

// DirectoryFrame returns the physical frame that holds this page table's
// directory.
func (pt *PageTable) DirectoryFrame() pmm.Frame {
	return pt.directoryFrame
}

// Load makes this page table the active translation context by writing its
// directory's physical address into the translation root register. The
// hardware flushes the entire TLB as a side effect.
func (pt *PageTable) Load() {
	pt.mgr.active = pt
	switchPDTFn(pt.directoryFrame.Address())
}

// ActivePageTable returns the currently loaded page table, if any.
func (m *Manager) ActivePageTable() *PageTable {
	return m.active
}

// EnablePaging sets the paging-enable control bit. From this point on every
// memory access is translated; the operation is irreversible for the life
// of the kernel.
func (m *Manager) EnablePaging() {
	writeCR0Fn(readCR0Fn() | cpu.CR0PagingEnabledBit)
	m.pagingEnabled = true
}

// PagingEnabled returns true once EnablePaging has been called.
func (m *Manager) PagingEnabled() bool {
	return m.pagingEnabled
}

// RegisterPool appends pool to the list consulted by the fault handler when
// it validates faulting addresses. Pools cannot be de-registered.
func (m *Manager) RegisterPool(pool *VMPool) {
	if m.poolListHead == nil {
		m.poolListHead = pool
		m.poolListTail = pool
		return
	}

	m.poolListTail.next = pool
	m.poolListTail = pool
}

// FreePage unmaps the page that contains virtAddr: the backing frame is
// released to its owning pool, the leaf entry's present bit is cleared
// (other flags are left untouched) and the translation root is reloaded to
// force a full TLB flush.
func (m *Manager) FreePage(virtAddr uintptr) *kernel.Error {
	if m.active == nil {
		return ErrNoActivePageTable
	}

	pdeIndex := pdeIndexForAddress(virtAddr)
	pteIndex := pteIndexForAddress(virtAddr)

	var dirMiss bool
	withDirectory(func(dir *tablePage) {
		dirMiss = !dir[pdeIndex].HasFlags(FlagPresent)
	})
	if dirMiss {
		return ErrInvalidMapping
	}

	var err *kernel.Error
	withTablePage(pdeIndex, func(table *tablePage) {
		entry := &table[pteIndex]
		if !entry.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return
		}

		if err = m.registry.ReleaseFrames(entry.Frame()); err != nil {
			return
		}

		entry.ClearFlags(FlagPresent)
	})
	if err != nil {
		return err
	}

	// Reload the translation root: a full TLB invalidation is the
	// hardware side effect.
	switchPDTFn(activePDTFn())
	return nil
}

package vmm

import (
	"unsafe"

	"github.com/aayushhyadav/csce-611/kernel/mem"
)

// tablePage overlays the 1024 entries of a page directory or page table
// page.
type tablePage [entriesPerTable]pageTableEntry

// PointerResolverFn turns a virtual alias or physical address into a
// pointer the translation code can dereference.
type PointerResolverFn func(addr uintptr) unsafe.Pointer

func defaultPtrResolver(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr)
}

var (
	// ptePtrFn returns a pointer for a virtual alias address inside the
	// recursive mapping window. When compiling the kernel this function
	// is automatically inlined.
	ptePtrFn PointerResolverFn = defaultPtrResolver

	// physPtrFn returns a pointer for a physical address inside the
	// identity-mapped shared window. When compiling the kernel this
	// function is automatically inlined.
	physPtrFn PointerResolverFn = defaultPtrResolver
)

// SetPointerResolvers registers the resolvers used to access page-table
// memory through the recursive alias window (alias) and through the
// identity-mapped window (phys). On bare metal both default to the
// identity resolver; hosted environments and tests install resolvers that
// map these addresses onto simulated memory. Passing nil restores a
// default.
func SetPointerResolvers(alias, phys PointerResolverFn) {
	if alias == nil {
		alias = defaultPtrResolver
	}
	if phys == nil {
		phys = defaultPtrResolver
	}
	ptePtrFn, physPtrFn = alias, phys
}

// PDEAddress returns the virtual alias of the active page directory. The
// recursive slot makes both translation levels resolve to the directory
// frame, so the returned address is the same for every virtual address.
func PDEAddress() uintptr {
	return directoryAlias
}

// PTEAddress returns the virtual alias of the page table entry that maps
// virtAddr in the active translation context.
func PTEAddress(virtAddr uintptr) uintptr {
	return tableAliasBase +
		uintptr(pdeIndexForAddress(virtAddr))<<mem.PageShift +
		uintptr(pteIndexForAddress(virtAddr))<<mem.PointerShift
}

// withDirectory invokes fn with the active page directory, accessed through
// its recursive alias.
func withDirectory(fn func(dir *tablePage)) {
	fn((*tablePage)(ptePtrFn(directoryAlias)))
}

// withTablePage invokes fn with the page table page that backs directory
// slot pdeIndex, accessed through its recursive alias. The directory entry
// for pdeIndex must be present; the alias resolves through it.
func withTablePage(pdeIndex uint32, fn func(table *tablePage)) {
	fn((*tablePage)(ptePtrFn(tableAliasBase + uintptr(pdeIndex)<<mem.PageShift)))
}

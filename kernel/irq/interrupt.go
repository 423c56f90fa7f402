// Package irq provides the registration point between the exception
// dispatcher and the handlers that service CPU traps. The memory-management
// code only requires a handler slot for the page-fault vector (14).
package irq

import "github.com/aayushhyadav/csce-611/kernel/kfmt"

// Regs contains a snapshot of the general-purpose register values when an
// exception occurred, in the order the trap stub pushes them.
type Regs struct {
	EDI uint32
	ESI uint32
	EBP uint32
	ESP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32
}

// Print outputs a dump of the register values to the active console.
func (r *Regs) Print() {
	kfmt.Printf("EAX = %08x EBX = %08x\n", r.EAX, r.EBX)
	kfmt.Printf("ECX = %08x EDX = %08x\n", r.ECX, r.EDX)
	kfmt.Printf("ESI = %08x EDI = %08x\n", r.ESI, r.EDI)
	kfmt.Printf("EBP = %08x ESP = %08x\n", r.EBP, r.ESP)
}

// Frame describes an exception frame that is automatically pushed by the CPU
// to the stack when an exception occurs.
type Frame struct {
	EIP     uint32
	CS      uint32
	EFlags  uint32
	UserESP uint32
	SS      uint32
}

// Print outputs a dump of the exception frame to the active console.
func (f *Frame) Print() {
	kfmt.Printf("EIP = %08x CS  = %08x\n", f.EIP, f.CS)
	kfmt.Printf("ESP = %08x SS  = %08x\n", f.UserESP, f.SS)
	kfmt.Printf("EFL = %08x\n", f.EFlags)
}

package kfmt

import (
	"github.com/aayushhyadav/csce-611/kernel"
	"github.com/aayushhyadav/csce-611/kernel/cpu"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the active output sink
// and halts the CPU. Calls to Panic never return.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}

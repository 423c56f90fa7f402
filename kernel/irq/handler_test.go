package irq

import (
	"testing"

	"github.com/aayushhyadav/csce-611/kernel/cpu"
)

func TestDispatchExceptionWithCode(t *testing.T) {
	defer func() {
		handlersWithCode[PageFaultException] = nil
		cpuHaltFn = cpu.Halt
	}()

	var (
		gotCode  uint32
		gotFrame *Frame
		gotRegs  *Regs
	)

	HandleExceptionWithCode(PageFaultException, func(code uint32, frame *Frame, regs *Regs) {
		gotCode = code
		gotFrame = frame
		gotRegs = regs
	})

	frame := &Frame{EIP: 0x1000}
	regs := &Regs{EAX: 42}
	DispatchExceptionWithCode(PageFaultException, 2, frame, regs)

	if gotCode != 2 {
		t.Errorf("expected handler to receive error code 2; got %d", gotCode)
	}

	if gotFrame != frame || gotRegs != regs {
		t.Error("expected handler to receive the dispatched frame and regs")
	}
}

func TestDispatchUnhandledException(t *testing.T) {
	defer func() {
		handlers[DivideByZero] = nil
		cpuHaltFn = cpu.Halt
	}()

	var haltCalls int
	cpuHaltFn = func() { haltCalls++ }

	DispatchException(DivideByZero, &Frame{}, &Regs{})

	if haltCalls != 1 {
		t.Fatalf("expected an unhandled exception to halt the CPU; halt called %d times", haltCalls)
	}
}

package irq

import (
	"github.com/aayushhyadav/csce-611/kernel/cpu"
	"github.com/aayushhyadav/csce-611/kernel/kfmt"
)

// ExceptionNum defines an exception number that can be passed to the
// HandleException and HandleExceptionWithCode functions.
type ExceptionNum uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = ExceptionNum(0)

	// DoubleFault occurs when an exception is unhandled or when an
	// exception occurs while the CPU is trying to call an exception
	// handler.
	DoubleFault = ExceptionNum(8)

	// GPFException is raised when a general protection fault occurs.
	GPFException = ExceptionNum(13)

	// PageFaultException is raised when a page directory or page-table
	// entry is not present or when a privilege and/or RW protection
	// check fails.
	PageFaultException = ExceptionNum(14)
)

// numExceptions is the number of vectors the dispatch tables cover.
const numExceptions = 32

// ExceptionHandler is a function that handles an exception that does not
// push an error code to the stack.
type ExceptionHandler func(*Frame, *Regs)

// ExceptionHandlerWithCode is a function that handles an exception that
// pushes an error code to the stack.
type ExceptionHandlerWithCode func(uint32, *Frame, *Regs)

var (
	handlers         [numExceptions]ExceptionHandler
	handlersWithCode [numExceptions]ExceptionHandlerWithCode

	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt
)

// HandleException registers an exception handler (without an error code) for
// the given exception number.
func HandleException(exceptionNum ExceptionNum, handler ExceptionHandler) {
	handlers[exceptionNum] = handler
}

// HandleExceptionWithCode registers an exception handler (with an error
// code) for the given exception number.
func HandleExceptionWithCode(exceptionNum ExceptionNum, handler ExceptionHandlerWithCode) {
	handlersWithCode[exceptionNum] = handler
}

// DispatchException routes an exception without an error code to its
// registered handler. Exceptions with no registered handler halt the
// machine: returning from an unserviced trap would simply re-raise it.
func DispatchException(exceptionNum ExceptionNum, frame *Frame, regs *Regs) {
	if handler := handlers[exceptionNum]; handler != nil {
		handler(frame, regs)
		return
	}

	unhandledException(exceptionNum, frame, regs)
}

// DispatchExceptionWithCode routes an exception that pushes an error code to
// its registered handler.
func DispatchExceptionWithCode(exceptionNum ExceptionNum, errorCode uint32, frame *Frame, regs *Regs) {
	if handler := handlersWithCode[exceptionNum]; handler != nil {
		handler(errorCode, frame, regs)
		return
	}

	unhandledException(exceptionNum, frame, regs)
}

func unhandledException(exceptionNum ExceptionNum, frame *Frame, regs *Regs) {
	kfmt.Printf("\nunhandled exception %d\n", uint8(exceptionNum))
	regs.Print()
	frame.Print()
	cpuHaltFn()
}

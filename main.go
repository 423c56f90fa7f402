package main

import "github.com/aayushhyadav/csce-611/kernel/kmain"

// main is invoked by the bootstrap trampoline once the CPU runs in
// protected mode with a valid stack. Control never returns here.
func main() {
	kmain.Kmain()
}

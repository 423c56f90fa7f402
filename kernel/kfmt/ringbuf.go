package kfmt

import "io"

// ringBufferSize defines the size of the ring buffer that captures early
// Printf output. It must always be a power of 2.
const ringBufferSize = 2048

// ringBuffer buffers the output of Printf until a proper output sink is
// attached via SetOutputSink. When the buffer fills up, the oldest contents
// get overwritten.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write writes len(p) bytes from p to the ringBuffer.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.rIndex == rb.wIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read reads up to len(p) bytes into p. It returns the number of bytes read
// and io.EOF once the buffer contents have been drained.
func (rb *ringBuffer) Read(p []byte) (n int, err error) {
	switch {
	case rb.rIndex < rb.wIndex:
		n = rb.wIndex - rb.rIndex
		if pLen := len(p); pLen < n {
			n = pLen
		}

		copy(p, rb.buffer[rb.rIndex:rb.rIndex+n])
		rb.rIndex += n

		return n, nil
	case rb.rIndex > rb.wIndex:
		n = len(rb.buffer) - rb.rIndex
		if pLen := len(p); pLen < n {
			n = pLen
		}

		copy(p, rb.buffer[rb.rIndex:rb.rIndex+n])
		rb.rIndex += n

		if rb.rIndex == len(rb.buffer) {
			rb.rIndex = 0
		}

		return n, nil
	default: // rIndex == wIndex
		return 0, io.EOF
	}
}

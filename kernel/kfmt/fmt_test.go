package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"no verbs", nil, "no verbs"},
		{"literal %%", nil, "literal %"},
		{"%s and %s", []interface{}{"foo", []byte("bar")}, "foo and bar"},
		{"%5s|", []interface{}{"ab"}, "   ab|"},
		{"%d", []interface{}{42}, "42"},
		{"%d", []interface{}{-42}, "-42"},
		{"%d", []interface{}{uint64(123456789)}, "123456789"},
		{"%5d|", []interface{}{7}, "    7|"},
		{"%05d|", []interface{}{7}, "00007|"},
		{"%x", []interface{}{uintptr(0xfffff000)}, "fffff000"},
		{"%8x|", []interface{}{uint32(0xbeef)}, "0000beef|"},
		{"%o", []interface{}{uint8(8)}, "10"},
		{"%t and %t", []interface{}{true, false}, "true and false"},
		{"%d", nil, "(MISSING)"},
		{"%d", []interface{}{"not a number"}, "%!(WRONGTYPE)"},
		{"%q", []interface{}{"verb"}, "%!(NOVERB)"},
	}

	var buf bytes.Buffer
	for specIndex, spec := range specs {
		buf.Reset()
		Fprintf(&buf, spec.format, spec.args...)

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestEarlyPrintBufferFlush(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer.rIndex = 0
		earlyPrintBuffer.wIndex = 0
	}()

	outputSink = nil
	Printf("buffered %d bytes\n", 16)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != "buffered 16 bytes\n" {
		t.Errorf("expected early output to be flushed to the sink; got %q", got)
	}

	Printf("direct")
	if got := buf.String(); got != "buffered 16 bytes\ndirect" {
		t.Errorf("expected output to be sent directly to the sink; got %q", got)
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	var rb ringBuffer

	payload := make([]byte, ringBufferSize+16)
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	if _, err := rb.Write(payload); err != nil {
		t.Fatal(err)
	}

	// The oldest 17 bytes are overwritten; one slot is sacrificed to
	// distinguish a full buffer from an empty one.
	got := make([]byte, ringBufferSize)
	n, err := rb.Read(got)
	if err != nil {
		t.Fatal(err)
	}

	total := n
	for {
		n, err = rb.Read(got[total:])
		if n == 0 {
			break
		}
		total += n
	}

	if total != ringBufferSize-1 {
		t.Fatalf("expected to read back %d bytes; got %d", ringBufferSize-1, total)
	}

	for i := 0; i < total; i++ {
		if exp := payload[len(payload)-total+i]; got[i] != exp {
			t.Fatalf("expected byte %d to be %d; got %d", i, exp, got[i])
		}
	}
}

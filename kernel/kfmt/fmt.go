// Package kfmt provides a minimal, allocation-free Printf implementation
// that the memory-management code can use for diagnostics. Its output is
// best-effort only; no component may depend on it for correctness.
package kfmt

import "io"

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")

	trueValue  = []byte("true")
	falseValue = []byte("false")

	digits = "0123456789abcdef"

	// earlyPrintBuffer captures Printf output generated before an output
	// sink has been attached.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While
	// nil, output is redirected to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and drains any data
// accumulated in the early print buffer into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf formats its arguments to the active output sink. It supports a
// subset of the fmt.Printf verbs:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%d base 10
//	%x base 16, lower-case, left-padded with zeroes when a width is given
//	%o base 8
//	%t "true" or "false"
//
// An optional decimal width may precede the verb; a leading 0 in the width
// selects zero-padding instead of space-padding for base-10 values.
func Printf(format string, args ...interface{}) {
	if outputSink == nil {
		Fprintf(&earlyPrintBuffer, format, args...)
		return
	}

	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes its output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var argIndex int

	for i := 0; i < len(format); {
		if format[i] != '%' {
			writeByte(w, format[i])
			i++
			continue
		}

		// Parse optional zero-pad flag and width
		i++
		if i < len(format) && format[i] == '%' {
			writeByte(w, '%')
			i++
			continue
		}

		var (
			padZero bool
			width   int
		)

		if i < len(format) && format[i] == '0' {
			padZero = true
			i++
		}

		for ; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i >= len(format) {
			w.Write(errNoVerb)
			return
		}

		verb := format[i]
		i++

		if argIndex >= len(args) {
			w.Write(errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 's':
			fmtString(w, arg, width)
		case 'd':
			fmtInt(w, arg, 10, width, padZero)
		case 'x':
			// Hex output is always zero-padded to the requested width
			fmtInt(w, arg, 16, width, true)
		case 'o':
			fmtInt(w, arg, 8, width, padZero)
		case 't':
			fmtBool(w, arg)
		default:
			w.Write(errNoVerb)
		}
	}
}

func fmtBool(w io.Writer, v interface{}) {
	switch t := v.(type) {
	case bool:
		if t {
			w.Write(trueValue)
			return
		}
		w.Write(falseValue)
	default:
		w.Write(errWrongArgType)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch t := v.(type) {
	case string:
		for pad := width - len(t); pad > 0; pad-- {
			writeByte(w, ' ')
		}
		writeString(w, t)
	case []byte:
		for pad := width - len(t); pad > 0; pad-- {
			writeByte(w, ' ')
		}
		w.Write(t)
	default:
		w.Write(errWrongArgType)
	}
}

func fmtInt(w io.Writer, v interface{}, base, width int, padZero bool) {
	var (
		num uint64
		neg bool
	)

	switch t := v.(type) {
	case int:
		neg = t < 0
		if neg {
			t = -t
		}
		num = uint64(t)
	case int8:
		neg = t < 0
		if neg {
			t = -t
		}
		num = uint64(t)
	case int16:
		neg = t < 0
		if neg {
			t = -t
		}
		num = uint64(t)
	case int32:
		neg = t < 0
		if neg {
			t = -t
		}
		num = uint64(t)
	case int64:
		neg = t < 0
		if neg {
			t = -t
		}
		num = uint64(t)
	case uint:
		num = uint64(t)
	case uint8:
		num = uint64(t)
	case uint16:
		num = uint64(t)
	case uint32:
		num = uint64(t)
	case uint64:
		num = t
	case uintptr:
		num = uint64(t)
	default:
		w.Write(errWrongArgType)
		return
	}

	var buf [22]byte
	idx := len(buf)

	for {
		idx--
		buf[idx] = digits[num%uint64(base)]
		num /= uint64(base)
		if num == 0 {
			break
		}
	}

	if neg {
		idx--
		buf[idx] = '-'
	}

	padCh := byte(' ')
	if padZero {
		padCh = '0'
	}

	for pad := width - (len(buf) - idx); pad > 0; pad-- {
		writeByte(w, padCh)
	}

	w.Write(buf[idx:])
}

func writeByte(w io.Writer, b byte) {
	var buf [1]byte
	buf[0] = b
	w.Write(buf[:])
}

func writeString(w io.Writer, s string) {
	for i := 0; i < len(s); i++ {
		writeByte(w, s[i])
	}
}

// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package token

import (
	"encoding/base64"
	"io"
	"math"
	"strconv"

	"github.com/creachadair/jserial/internal/escape"
	"go4.org/mem"
)

// A Writer accumulates the JSON encoding of a sequence of tokens. Separators
// (commas and colons) are inserted automatically. Misuse of the grammar, such
// as closing an array with an object end token, panics.
type Writer struct {
	buf   []byte
	stack []byte // open containers, '{' or '['

	comma     bool // the next value or name needs a leading comma
	afterName bool // a property name was just written
}

// NewWriter constructs an empty Writer.
func NewWriter() *Writer { return new(Writer) }

// Pending reports the number of bytes written but not yet flushed.
func (w *Writer) Pending() int { return len(w.buf) }

// Bytes returns the pending output. The slice is only valid until the next
// write or flush.
func (w *Writer) Bytes() []byte { return w.buf }

// Depth reports the number of currently open objects and arrays.
func (w *Writer) Depth() int { return len(w.stack) }

// Flush writes the pending output to out and discards it.
func (w *Writer) Flush(out io.Writer) (int, error) {
	n, err := out.Write(w.buf)
	if n > 0 {
		m := copy(w.buf, w.buf[n:])
		w.buf = w.buf[:m]
	}
	return n, err
}

// Reset discards pending output and all grammar state.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.stack = w.stack[:0]
	w.comma, w.afterName = false, false
}

func (w *Writer) prefix() {
	if w.afterName {
		w.afterName = false
		return
	}
	if len(w.stack) > 0 && w.stack[len(w.stack)-1] == '{' {
		panic("token: value written in object without a property name")
	}
	if w.comma {
		w.buf = append(w.buf, ',')
	}
}

func (w *Writer) done() { w.comma = len(w.stack) > 0 }

// WriteStart writes the start of an object or array. The kind must be
// StartObject or StartArray.
func (w *Writer) WriteStart(k Kind) {
	w.prefix()
	switch k {
	case StartObject:
		w.buf = append(w.buf, '{')
		w.stack = append(w.stack, '{')
	case StartArray:
		w.buf = append(w.buf, '[')
		w.stack = append(w.stack, '[')
	default:
		panic("token: invalid start kind " + k.String())
	}
	w.comma = false
}

// WriteEnd writes the end of an object or array. The kind must be EndObject
// or EndArray and match the innermost open container.
func (w *Writer) WriteEnd(k Kind) {
	n := len(w.stack)
	if n == 0 || w.afterName {
		panic("token: unbalanced " + k.String())
	}
	switch {
	case k == EndObject && w.stack[n-1] == '{':
		w.buf = append(w.buf, '}')
	case k == EndArray && w.stack[n-1] == '[':
		w.buf = append(w.buf, ']')
	default:
		panic("token: mismatched " + k.String())
	}
	w.stack = w.stack[:n-1]
	w.done()
}

// WriteName writes an object property name, quoting and escaping it.
func (w *Writer) WriteName(name string) {
	w.beginName()
	w.buf = escape.AppendQuoted(w.buf, mem.S(name))
	w.endName()
}

// WriteEscapedName writes an object property name that is already quoted and
// escaped, as produced by escape.AppendQuoted.
func (w *Writer) WriteEscapedName(quoted []byte) {
	w.beginName()
	w.buf = append(w.buf, quoted...)
	w.endName()
}

func (w *Writer) beginName() {
	if n := len(w.stack); n == 0 || w.stack[n-1] != '{' || w.afterName {
		panic("token: property name outside object")
	}
	if w.comma {
		w.buf = append(w.buf, ',')
	}
}

func (w *Writer) endName() {
	w.buf = append(w.buf, ':')
	w.afterName = true
}

// WriteString writes a quoted string value.
func (w *Writer) WriteString(s string) {
	w.prefix()
	w.buf = escape.AppendQuoted(w.buf, mem.S(s))
	w.done()
}

// WriteBytes writes data as a base64-encoded string value.
func (w *Writer) WriteBytes(data []byte) {
	w.prefix()
	w.buf = append(w.buf, '"')
	w.buf = base64.StdEncoding.AppendEncode(w.buf, data)
	w.buf = append(w.buf, '"')
	w.done()
}

// WriteInt writes a signed integer value.
func (w *Writer) WriteInt(v int64) {
	w.prefix()
	w.buf = strconv.AppendInt(w.buf, v, 10)
	w.done()
}

// WriteUint writes an unsigned integer value.
func (w *Writer) WriteUint(v uint64) {
	w.prefix()
	w.buf = strconv.AppendUint(w.buf, v, 10)
	w.done()
}

// WriteFloat writes a floating-point value with the precision of the given
// bit size (32 or 64). The value must not be NaN or infinite.
func (w *Writer) WriteFloat(v float64, bits int) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		panic("token: unsupported float value")
	}
	w.prefix()
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	w.buf = strconv.AppendFloat(w.buf, v, format, -1, bits)
	w.done()
}

// WriteBool writes true or false.
func (w *Writer) WriteBool(v bool) {
	w.prefix()
	w.buf = strconv.AppendBool(w.buf, v)
	w.done()
}

// WriteNull writes null.
func (w *Writer) WriteNull() {
	w.prefix()
	w.buf = append(w.buf, "null"...)
	w.done()
}

// WriteRaw writes text verbatim as a single complete value. The caller is
// responsible for ensuring text is valid JSON.
func (w *Writer) WriteRaw(text []byte) {
	w.prefix()
	w.buf = append(w.buf, text...)
	w.done()
}

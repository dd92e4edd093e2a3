// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package token

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/creachadair/jserial/internal/escape"
	"go4.org/mem"
)

// expect records which part of the grammar the reader is waiting for.
type expect byte

const (
	expValue        expect = iota // any value
	expValueOrEnd                 // a value or "]", just after "["
	expNameOrEnd                  // a key or "}", just after "{"
	expName                       // a key, after "," in an object
	expCommaOrEnd                 // "," or a closing bracket, after a member
	expEndOfDocument              // nothing but whitespace
)

// A Reader reads JSON tokens from a buffer that may be extended between calls.
// It keeps enough state to resume tokenizing after more input is fed, and to
// rewind to a snapshot within a single pass over the buffer.
type Reader struct {
	buf      []byte
	pos      int   // offset of the next unread byte in buf
	base     int64 // absolute input offset of buf[0]
	final    bool  // no more input will be fed
	maxDepth int   // 0 means unlimited

	stack []byte // open containers, '{' or '['
	exp   expect

	kind       Kind
	start, end int // span of the current token in buf
	depth      int // depth of the current token
}

// NewReader constructs an empty Reader. If maxDepth > 0, input nested more
// deeply than maxDepth is reported as an error.
func NewReader(maxDepth int) *Reader { return &Reader{maxDepth: maxDepth} }

// Feed appends data to the input buffered by r.
func (r *Reader) Feed(data []byte) { r.buf = append(r.buf, data...) }

// Close marks the end of the input. After Close, a token that runs to the end
// of the buffer is complete if its grammar allows, and truncated otherwise.
func (r *Reader) Close() { r.final = true }

// IsFinal reports whether Close has been called.
func (r *Reader) IsFinal() bool { return r.final }

// Compact discards buffered input preceding the current token. Offsets
// reported by Offset are unaffected. Snapshots taken before Compact are
// invalidated.
func (r *Reader) Compact() {
	cut := r.start
	if r.kind == None {
		cut = r.pos
	}
	if cut == 0 {
		return
	}
	n := copy(r.buf, r.buf[cut:])
	r.buf = r.buf[:n]
	r.base += int64(cut)
	r.pos -= cut
	r.start -= cut
	r.end -= cut
}

// Buffered reports the number of fed bytes not yet consumed.
func (r *Reader) Buffered() int { return len(r.buf) - r.pos }

// Kind returns the kind of the current token, or None before the first token.
func (r *Reader) Kind() Kind { return r.kind }

// Depth returns the nesting depth of the current token. A start token reports
// the depth of the container it opens, and the matching end token reports
// the same depth.
func (r *Reader) Depth() int { return r.depth }

// Offset returns the absolute input offset just past the current token.
func (r *Reader) Offset() int64 { return r.base + int64(r.pos) }

// TokenOffset returns the absolute input offset of the start of the current
// token.
func (r *Reader) TokenOffset() int64 { return r.base + int64(r.start) }

// Raw returns the undecoded text of the current token. String and property
// name tokens include their quotation marks. The result is only valid until
// the next call to Feed or Compact.
func (r *Reader) Raw() []byte { return r.buf[r.start:r.end] }

// A Mark records a reader position within the current buffer.
type Mark struct {
	pos, start, end int
	kind            Kind
	depth           int
	nstack          int
	top             byte
	exp             expect
}

// Snapshot returns a mark for the current reader position.
func (r *Reader) Snapshot() Mark {
	m := Mark{
		pos: r.pos, start: r.start, end: r.end,
		kind: r.kind, depth: r.depth,
		nstack: len(r.stack), exp: r.exp,
	}
	if n := len(r.stack); n > 0 {
		m.top = r.stack[n-1]
	}
	return m
}

// Rewind restores r to the position recorded by m. The mark must have been
// taken from r since its last Compact.
func (r *Reader) Rewind(m Mark) {
	r.pos, r.start, r.end = m.pos, m.start, m.end
	r.kind, r.depth, r.exp = m.kind, m.depth, m.exp
	for len(r.stack) < m.nstack {
		r.stack = append(r.stack, 0)
	}
	r.stack = r.stack[:m.nstack]
	if m.nstack > 0 {
		r.stack[m.nstack-1] = m.top
	}
}

// Read advances r to the next token. It reports false with a nil error if the
// buffer does not hold a complete token; the position of r is then unchanged.
// Any error is of concrete type *SyntaxError.
func (r *Reader) Read() (bool, error) {
	m := r.Snapshot()
	ok, err := r.next()
	if err != nil {
		r.Rewind(m)
		return false, err
	} else if !ok {
		r.Rewind(m)
		return false, nil
	}
	return true, nil
}

// TrySkip skips the value of the current token. If the current token is a
// property name, its value is read and skipped. If the current token starts an
// object or array, TrySkip reads through the matching end token and leaves r
// positioned there. For any other token TrySkip does nothing.
//
// It reports false with a nil error if the complete value is not buffered;
// the position of r is then unchanged.
func (r *Reader) TrySkip() (bool, error) {
	m := r.Snapshot()
	if r.kind == PropertyName {
		if ok, err := r.Read(); err != nil || !ok {
			return false, err
		}
	}
	if !r.kind.IsStart() {
		return true, nil
	}
	target := r.depth
	for {
		ok, err := r.Read()
		if err != nil {
			r.Rewind(m)
			return false, err
		} else if !ok {
			r.Rewind(m)
			return false, nil
		}
		if r.kind.IsEnd() && r.depth == target {
			return true, nil
		}
	}
}

// SkipValue reads the next token and skips its complete value. It reports
// false with a nil error if the value is not completely buffered; the
// position of r is then unchanged.
func (r *Reader) SkipValue() (bool, error) {
	m := r.Snapshot()
	if ok, err := r.Read(); err != nil || !ok {
		return false, err
	}
	ok, err := r.TrySkip()
	if err != nil || !ok {
		r.Rewind(m)
	}
	return ok, err
}

// CheckTrailing reports an error if any non-whitespace input follows the
// complete top-level value.
func (r *Reader) CheckTrailing() error {
	for r.pos < len(r.buf) && isSpace(r.buf[r.pos]) {
		r.pos++
	}
	if r.exp != expEndOfDocument {
		if r.final {
			return r.failf(io.ErrUnexpectedEOF, "incomplete value")
		}
		return nil
	}
	if r.pos < len(r.buf) {
		return r.failf(nil, "unexpected %q after top-level value", r.buf[r.pos])
	}
	return nil
}

// String decodes the value of the current string or property name token.
// Bytes that are not valid UTF-8 are replaced by the Unicode replacement rune.
func (r *Reader) String() (string, error) {
	if r.kind != String && r.kind != PropertyName {
		return "", fmt.Errorf("cannot decode %v as a string", r.kind)
	}
	text := r.buf[r.start+1 : r.end-1]
	if bytes.IndexByte(text, '\\') < 0 && utf8.Valid(text) {
		return string(text), nil
	}
	dec, err := escape.Unquote(mem.B(text))
	if err != nil {
		return "", err
	}
	return string(dec), nil
}

// NameEquals reports whether the current property name or string token
// decodes to exactly s, without allocating for names without escapes.
func (r *Reader) NameEquals(s string) bool {
	if r.kind != String && r.kind != PropertyName {
		return false
	}
	text := r.buf[r.start+1 : r.end-1]
	if bytes.IndexByte(text, '\\') < 0 && utf8.Valid(text) {
		return mem.B(text).EqualString(s)
	}
	dec, err := escape.Unquote(mem.B(text))
	return err == nil && string(dec) == s
}

// Int64 decodes the current number token as a signed integer.
func (r *Reader) Int64() (int64, error) {
	if r.kind != Number {
		return 0, fmt.Errorf("cannot decode %v as an integer", r.kind)
	}
	return strconv.ParseInt(string(r.Raw()), 10, 64)
}

// Uint64 decodes the current number token as an unsigned integer.
func (r *Reader) Uint64() (uint64, error) {
	if r.kind != Number {
		return 0, fmt.Errorf("cannot decode %v as an integer", r.kind)
	}
	return strconv.ParseUint(string(r.Raw()), 10, 64)
}

// Float64 decodes the current number token as a floating-point value.
func (r *Reader) Float64() (float64, error) {
	if r.kind != Number {
		return 0, fmt.Errorf("cannot decode %v as a number", r.kind)
	}
	return strconv.ParseFloat(string(r.Raw()), 64)
}

// Bool decodes the current true or false token.
func (r *Reader) Bool() (bool, error) {
	switch r.kind {
	case True:
		return true, nil
	case False:
		return false, nil
	}
	return false, fmt.Errorf("cannot decode %v as a Boolean", r.kind)
}

// ErrTooDeep is wrapped by the syntax error reported when input is nested
// more deeply than the limit given to NewReader.
var ErrTooDeep = errors.New("nesting too deep")

// errShort is an internal signal that the buffer ended inside a token.
var errShort = errors.New("short buffer")

// next scans one token. It reports false if the buffer ends before the token
// is complete; the caller is responsible for restoring the position.
func (r *Reader) next() (bool, error) {
	if err := r.scan(); err == errShort {
		if r.final {
			return false, r.failf(io.ErrUnexpectedEOF, "unexpected end of input")
		}
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reader) scan() error {
	if err := r.skipSpace(); err != nil {
		return err
	}
	switch r.exp {
	case expEndOfDocument:
		return r.failf(nil, "unexpected %q after top-level value", r.buf[r.pos])

	case expCommaOrEnd:
		ch := r.buf[r.pos]
		if ch == ',' {
			r.pos++
			if err := r.skipSpace(); err != nil {
				return err
			}
			if r.top() == '{' {
				return r.scanName()
			}
			return r.scanValue()
		}
		return r.scanEnd(ch, "\",\" or closing bracket")

	case expNameOrEnd:
		if ch := r.buf[r.pos]; ch == '}' {
			return r.scanEnd(ch, `"}"`)
		}
		return r.scanName()

	case expName:
		return r.scanName()

	case expValueOrEnd:
		if ch := r.buf[r.pos]; ch == ']' {
			return r.scanEnd(ch, `"]"`)
		}
		return r.scanValue()

	default:
		return r.scanValue()
	}
}

func (r *Reader) skipSpace() error {
	for r.pos < len(r.buf) && isSpace(r.buf[r.pos]) {
		r.pos++
	}
	if r.pos == len(r.buf) {
		return errShort
	}
	return nil
}

func (r *Reader) top() byte {
	if n := len(r.stack); n > 0 {
		return r.stack[n-1]
	}
	return 0
}

func (r *Reader) setToken(k Kind, start, depth int) {
	r.kind, r.start, r.end, r.depth = k, start, r.pos, depth
}

// afterValue sets the expectation following a complete value.
func (r *Reader) afterValue() {
	if len(r.stack) == 0 {
		r.exp = expEndOfDocument
	} else {
		r.exp = expCommaOrEnd
	}
}

func (r *Reader) scanEnd(ch byte, want string) error {
	var open byte
	var kind Kind
	switch ch {
	case '}':
		open, kind = '{', EndObject
	case ']':
		open, kind = '[', EndArray
	default:
		return r.failf(nil, "expected %s, got %q", want, ch)
	}
	if r.top() != open {
		return r.failf(nil, "unexpected %q", ch)
	}
	start := r.pos
	r.pos++
	r.stack = r.stack[:len(r.stack)-1]
	r.setToken(kind, start, len(r.stack))
	r.afterValue()
	return nil
}

func (r *Reader) scanName() error {
	start := r.pos
	if r.buf[start] != '"' {
		return r.failf(nil, "expected string, got %q", r.buf[start])
	}
	end, err := r.scanString(start)
	if err != nil {
		return err
	}
	r.pos = end
	if err := r.skipSpace(); err != nil {
		return err
	}
	if ch := r.buf[r.pos]; ch != ':' {
		return r.failf(nil, "expected \":\", got %q", ch)
	}
	r.pos++
	r.kind, r.start, r.end, r.depth = PropertyName, start, end, len(r.stack)
	r.exp = expValue
	return nil
}

func (r *Reader) scanValue() error {
	start := r.pos
	switch ch := r.buf[start]; {
	case ch == '{' || ch == '[':
		if r.maxDepth > 0 && len(r.stack) >= r.maxDepth {
			return r.failf(ErrTooDeep, "maximum depth %d exceeded", r.maxDepth)
		}
		depth := len(r.stack)
		r.pos++
		r.stack = append(r.stack, ch)
		if ch == '{' {
			r.setToken(StartObject, start, depth)
			r.exp = expNameOrEnd
		} else {
			r.setToken(StartArray, start, depth)
			r.exp = expValueOrEnd
		}
		return nil

	case ch == '"':
		end, err := r.scanString(start)
		if err != nil {
			return err
		}
		r.pos = end
		r.setToken(String, start, len(r.stack))

	case ch == '-' || isDigit(ch):
		end, err := r.scanNumber(start)
		if err != nil {
			return err
		}
		r.pos = end
		r.setToken(Number, start, len(r.stack))

	case ch == 't':
		if err := r.scanConst(start, "true"); err != nil {
			return err
		}
		r.setToken(True, start, len(r.stack))
	case ch == 'f':
		if err := r.scanConst(start, "false"); err != nil {
			return err
		}
		r.setToken(False, start, len(r.stack))
	case ch == 'n':
		if err := r.scanConst(start, "null"); err != nil {
			return err
		}
		r.setToken(Null, start, len(r.stack))

	default:
		return r.failf(nil, "unexpected %q", ch)
	}
	r.afterValue()
	return nil
}

// scanString returns the offset just past the closing quote of the string
// whose opening quote is at buf[start].
func (r *Reader) scanString(start int) (int, error) {
	i := start + 1
	for i < len(r.buf) {
		switch ch := r.buf[i]; {
		case ch == '"':
			return i + 1, nil
		case ch == '\\':
			if i+1 >= len(r.buf) {
				return 0, errShort
			}
			switch r.buf[i+1] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				i += 2
			case 'u':
				if i+6 > len(r.buf) {
					for _, c := range r.buf[i+2:] {
						if !isHexDigit(c) {
							return 0, r.failAtf(i, nil, "invalid Unicode escape")
						}
					}
					return 0, errShort
				}
				for _, c := range r.buf[i+2 : i+6] {
					if !isHexDigit(c) {
						return 0, r.failAtf(i, nil, "invalid Unicode escape")
					}
				}
				i += 6
			default:
				return 0, r.failAtf(i, nil, "invalid %q after escape", r.buf[i+1])
			}
		case ch < ' ':
			return 0, r.failAtf(i, nil, "unescaped control %q", ch)
		default:
			i++
		}
	}
	return 0, errShort
}

// scanNumber returns the offset just past the number starting at buf[start].
func (r *Reader) scanNumber(start int) (int, error) {
	i := start
	if r.buf[i] == '-' {
		i++
	}
	digits := func() int {
		n := 0
		for i < len(r.buf) && isDigit(r.buf[i]) {
			i++
			n++
		}
		return n
	}
	// A number ending at the end of a non-final buffer may continue.
	atEnd := func() bool { return i == len(r.buf) && !r.final }

	intStart := i
	nd := digits()
	if atEnd() {
		return 0, errShort
	} else if nd == 0 {
		return 0, r.failAtf(i, nil, "want digit")
	} else if nd > 1 && r.buf[intStart] == '0' {
		return 0, r.failAtf(intStart, nil, "extra leading zeroes")
	}
	if i < len(r.buf) && r.buf[i] == '.' {
		i++
		nd := digits()
		if atEnd() {
			return 0, errShort
		} else if nd == 0 {
			return 0, r.failAtf(i, nil, "no digits after decimal point")
		}
	}
	if i < len(r.buf) && (r.buf[i] == 'e' || r.buf[i] == 'E') {
		i++
		if atEnd() {
			return 0, errShort
		}
		if i < len(r.buf) && (r.buf[i] == '+' || r.buf[i] == '-') {
			i++
		}
		nd := digits()
		if atEnd() {
			return 0, errShort
		} else if nd == 0 {
			return 0, r.failAtf(i, nil, "missing exponent digits")
		}
	}
	return i, nil
}

func (r *Reader) scanConst(start int, want string) error {
	have := r.buf[start:]
	if len(have) < len(want) {
		if mem.HasPrefix(mem.S(want), mem.B(have)) {
			return errShort
		}
	} else if mem.B(have[:len(want)]).EqualString(want) {
		r.pos = start + len(want)
		return nil
	}
	return r.failf(nil, "unknown constant starting with %q", have[0])
}

// SyntaxError is the concrete type of errors reported by the Reader.
type SyntaxError struct {
	Offset  int64 // absolute input offset of the error
	Message string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", s.Offset, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

func (r *Reader) failf(err error, msg string, args ...any) error {
	return r.failAtf(r.pos, err, msg, args...)
}

func (r *Reader) failAtf(pos int, err error, msg string, args ...any) error {
	return &SyntaxError{Offset: r.base + int64(pos), Message: fmt.Sprintf(msg, args...), err: err}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\r' || ch == '\n' || ch == '\t'
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

// RawValue returns the complete text of the value whose first token is
// current, reading through the matching end token if the value is an object
// or array. It reports false with a nil error if the value is not completely
// buffered. The returned slice is a copy.
func (r *Reader) RawValue() ([]byte, bool, error) {
	start := r.start
	ok, err := r.TrySkip()
	if err != nil || !ok {
		return nil, ok, err
	}
	return bytes.Clone(r.buf[start:r.end]), true, nil
}

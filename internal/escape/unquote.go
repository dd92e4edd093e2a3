// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

// Package escape handles quoting and unquoting of JSON strings.
package escape

import (
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"
)

// Unquote decodes a byte slice containing the JSON encoding of a string. The
// input must have the enclosing double quotation marks already removed.
//
// Escape sequences are replaced with their unescaped equivalents, and a pair
// of \u escapes encoding a UTF-16 surrogate pair is combined into one rune.
// Invalid escapes, unpaired surrogates, and bytes that are not valid UTF-8
// are replaced by the Unicode replacement rune. Unquote reports an error for
// an incomplete escape sequence.
func Unquote(src mem.RO) ([]byte, error) {
	dec := make([]byte, 0, src.Len())
	for src.Len() != 0 {
		i := mem.IndexByte(src, '\\')
		if i < 0 {
			return appendValid(dec, src), nil
		}
		dec = appendValid(dec, src.SliceTo(i))

		src = src.SliceFrom(i + 1)
		if src.Len() == 0 {
			return nil, errors.New("incomplete escape sequence")
		}
		r, n := mem.DecodeRune(src)
		if n == 0 {
			n++
		}
		src = src.SliceFrom(n)

		switch r {
		case '"', '\\', '/':
			dec = append(dec, byte(r))
		case 'b':
			dec = append(dec, '\b')
		case 'f':
			dec = append(dec, '\f')
		case 'n':
			dec = append(dec, '\n')
		case 'r':
			dec = append(dec, '\r')
		case 't':
			dec = append(dec, '\t')
		case 'u':
			u, n, err := decodeEscapedRune(src)
			if err != nil {
				return nil, err
			}
			dec = utf8.AppendRune(dec, u)
			src = src.SliceFrom(n)
		default:
			dec = utf8.AppendRune(dec, utf8.RuneError)
		}
	}
	return dec, nil
}

// decodeEscapedRune decodes the hex digits of a \u escape at the start of
// src, and reports the rune and the number of bytes consumed. A high
// surrogate immediately followed by an escaped low surrogate consumes both.
func decodeEscapedRune(src mem.RO) (rune, int, error) {
	if src.Len() < 4 {
		return 0, 0, errors.New("incomplete Unicode escape")
	}
	v, err := parseHex(src.SliceTo(4))
	if err != nil {
		return utf8.RuneError, 4, nil
	}
	r := rune(v)
	if !utf16.IsSurrogate(r) {
		return r, 4, nil
	}
	if src.Len() >= 10 && src.At(4) == '\\' && src.At(5) == 'u' {
		lo, err := parseHex(src.SliceFrom(6).SliceTo(4))
		if err == nil {
			if p := utf16.DecodeRune(r, rune(lo)); p != utf8.RuneError {
				return p, 10, nil
			}
		}
	}
	return utf8.RuneError, 4, nil
}

// appendValid appends src to dst, replacing each byte of src that is not part
// of a valid UTF-8 encoding with the Unicode replacement rune.
func appendValid(dst []byte, src mem.RO) []byte {
	for src.Len() != 0 {
		if b := src.At(0); b < utf8.RuneSelf {
			dst = append(dst, b)
			src = src.SliceFrom(1)
			continue
		}
		r, n := mem.DecodeRune(src)
		if r == utf8.RuneError && n <= 1 {
			dst = utf8.AppendRune(dst, utf8.RuneError)
			n = 1
		} else {
			dst = mem.Append(dst, src.SliceTo(n))
		}
		src = src.SliceFrom(n)
	}
	return dst
}

func parseHex(data mem.RO) (int64, error) {
	var v int64
	for i := 0; i < data.Len(); i++ {
		b := data.At(i)
		v <<= 4
		switch {
		case '0' <= b && b <= '9':
			v += int64(b - '0')
		case 'a' <= b && b <= 'f':
			v += int64(b - 'a' + 10)
		case 'A' <= b && b <= 'F':
			v += int64(b - 'A' + 10)
		default:
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
	}
	return v, nil
}

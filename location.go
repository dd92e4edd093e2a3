// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"bytes"
	"fmt"
)

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// Locate returns the line and column of the given byte offset in input. An
// offset past the end of input is clamped to the end. Use it to report the
// Offset of an *Error in terms of the input text.
func Locate(input []byte, offset int64) LineCol {
	if offset < 0 {
		offset = 0
	} else if offset > int64(len(input)) {
		offset = int64(len(input))
	}
	head := input[:offset]
	line := bytes.Count(head, []byte("\n")) + 1
	col := len(head) - (bytes.LastIndexByte(head, '\n') + 1)
	return LineCol{Line: line, Column: col}
}

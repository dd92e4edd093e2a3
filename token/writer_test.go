// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package token_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/creachadair/jserial/token"
	"github.com/creachadair/mds/mtest"
)

func TestWriter(t *testing.T) {
	w := token.NewWriter()
	w.WriteStart(token.StartObject)
	w.WriteName("name")
	w.WriteString("a \"quoted\"\n value")
	w.WriteName("list")
	w.WriteStart(token.StartArray)
	w.WriteInt(-5)
	w.WriteUint(18446744073709551615)
	w.WriteFloat(0.5, 64)
	w.WriteFloat(1e-7, 64)
	w.WriteFloat(1e21, 64)
	w.WriteFloat(1.1, 32)
	w.WriteBool(true)
	w.WriteNull()
	w.WriteStart(token.StartObject)
	w.WriteEnd(token.EndObject)
	w.WriteStart(token.StartArray)
	w.WriteEnd(token.EndArray)
	w.WriteEnd(token.EndArray)
	w.WriteEscapedName([]byte(`"raw"`))
	w.WriteRaw([]byte(`{"x":1}`))
	w.WriteName("data")
	w.WriteBytes([]byte("hello"))
	if got := w.Depth(); got != 1 {
		t.Errorf("Depth: got %d, want 1", got)
	}
	w.WriteEnd(token.EndObject)

	const want = `{"name":"a \"quoted\"\n value","list":[-5,18446744073709551615,0.5,1e-07,1e+21,1.1,true,null,{},[]],` +
		`"raw":{"x":1},"data":"aGVsbG8="}`
	if got := string(w.Bytes()); got != want {
		t.Errorf("Output:\n got %#q\nwant %#q", got, want)
	}
	if w.Depth() != 0 {
		t.Errorf("Depth: got %d, want 0", w.Depth())
	}
}

func TestWriterFlush(t *testing.T) {
	w := token.NewWriter()
	var buf bytes.Buffer

	w.WriteStart(token.StartArray)
	w.WriteInt(1)
	if n, err := w.Flush(&buf); err != nil || n != 2 {
		t.Fatalf("Flush: got (%d, %v), want (2, nil)", n, err)
	}
	if w.Pending() != 0 {
		t.Errorf("Pending after flush: got %d, want 0", w.Pending())
	}

	// Separators are still inserted correctly after a flush.
	w.WriteInt(2)
	w.WriteEnd(token.EndArray)
	if _, err := w.Flush(&buf); err != nil {
		t.Fatalf("Flush: unexpected error: %v", err)
	}
	if got, want := buf.String(), "[1,2]"; got != want {
		t.Errorf("Output: got %q, want %q", got, want)
	}
}

func TestWriterMisuse(t *testing.T) {
	mtest.MustPanic(t, func() {
		w := token.NewWriter()
		w.WriteStart(token.StartArray)
		w.WriteEnd(token.EndObject)
	})
	mtest.MustPanic(t, func() {
		w := token.NewWriter()
		w.WriteStart(token.StartObject)
		w.WriteInt(1) // value without a name
	})
	mtest.MustPanic(t, func() {
		w := token.NewWriter()
		w.WriteName("x") // name outside object
	})
	mtest.MustPanic(t, func() {
		token.NewWriter().WriteEnd(token.EndArray)
	})
	mtest.MustPanic(t, func() {
		token.NewWriter().WriteFloat(math.NaN(), 64)
	})
	mtest.MustPanic(t, func() {
		token.NewWriter().WriteStart(token.Null)
	})
}

func TestWriterReset(t *testing.T) {
	w := token.NewWriter()
	w.WriteStart(token.StartObject)
	w.WriteName("a")
	w.Reset()
	w.WriteBool(false)
	if got := string(w.Bytes()); got != "false" {
		t.Errorf("After Reset: got %q, want %q", got, "false")
	}
}

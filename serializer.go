// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/creachadair/jserial/token"
	"github.com/tailscale/hujson"
)

// A Serializer converts between Go values and JSON text. It owns a cache of
// type metadata, which is built on first use of each type and shared by all
// conversions. A Serializer is safe for concurrent use by multiple
// goroutines; the Decoder and Encoder values it creates are not.
type Serializer struct {
	opts Options
	log  *slog.Logger

	types  sync.Map // reflect.Type → *TypeMetadata
	custom sync.Map // reflect.Type → ScalarConverter or *Builder
}

// New constructs a Serializer with the given options. A nil *Options
// provides default settings.
func New(opts *Options) *Serializer {
	s := &Serializer{log: opts.logger()}
	if opts != nil {
		s.opts = *opts
	}
	return s
}

// Options returns a copy of the options for s.
func (s *Serializer) Options() Options { return s.opts }

// Metadata returns the metadata for values of type t.
func (s *Serializer) Metadata(t reflect.Type) (*TypeMetadata, error) { return s.metadata(t) }

// Marshal returns the JSON encoding of v.
func (s *Serializer) Marshal(v any) ([]byte, error) {
	enc, err := s.NewEncoder(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := enc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes the complete JSON value in data into v, which must be a
// non-nil pointer.
func (s *Serializer) Unmarshal(data []byte, v any) error {
	dec, err := s.NewDecoder(v)
	if err != nil {
		return err
	}
	if s.opts.AllowJWCC {
		data, err = standardize(data)
		if err != nil {
			return err
		}
	}
	if _, err := dec.Feed(data); err != nil {
		return err
	}
	return dec.Close()
}

var std = New(nil)

// Marshal returns the JSON encoding of v using default options.
func Marshal(v any) ([]byte, error) { return std.Marshal(v) }

// Unmarshal decodes data into v using default options.
func Unmarshal(data []byte, v any) error { return std.Unmarshal(data, v) }

// standardize converts JWCC input to standard JSON.
func standardize(data []byte) ([]byte, error) {
	out, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, &Error{Kind: KindSyntax, Path: "$", Offset: -1, Message: "invalid JWCC input", err: err}
	}
	return out, nil
}

// A Decoder reads one JSON value into a Go value from input supplied in
// chunks of any size. When the buffered input ends in the middle of a value,
// the Decoder suspends, and resumes where it stopped when more input is fed.
type Decoder struct {
	s      *Serializer
	r      *token.Reader
	st     readStack
	md     *TypeMetadata
	target reflect.Value

	begun bool // the first token of the value has been read
	done  bool
	err   error
}

// NewDecoder constructs a Decoder that stores its result in v, which must be
// a non-nil pointer.
func (s *Serializer) NewDecoder(v any) (*Decoder, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("jserial: decode target must be a non-nil pointer, not %T", v)
	}
	md, err := s.metadata(rv.Type().Elem())
	if err != nil {
		return nil, annotate(err, nil, -1)
	}
	return &Decoder{
		s:      s,
		r:      token.NewReader(s.opts.maxDepth()),
		st:     readStack{s: s, verify: s.opts.VerifyConverters},
		md:     md,
		target: rv.Elem(),
	}, nil
}

// Feed appends data to the input and converts as much of the value as
// possible. It reports true when the value is complete and has been stored.
// Input after a complete value must be whitespace. Once Feed or Close has
// reported an error, the Decoder reports the same error on every call.
func (d *Decoder) Feed(data []byte) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	d.r.Feed(data)
	if d.done {
		if err := d.r.CheckTrailing(); err != nil {
			return true, d.fail(err)
		}
		return true, nil
	}
	return d.step()
}

// Close marks the end of the input and completes the value. It reports an
// error if the input ended before the value was complete.
func (d *Decoder) Close() error {
	if d.err != nil {
		return d.err
	}
	d.r.Close()
	if !d.done {
		ok, err := d.step()
		if err != nil {
			return err
		} else if !ok {
			return d.fail(wrapError(KindSyntax, d.md.Type, io.ErrUnexpectedEOF, "incomplete value"))
		}
	}
	if err := d.r.CheckTrailing(); err != nil {
		return d.fail(err)
	}
	return nil
}

// ReadFrom feeds the contents of r to d until EOF, then closes d. If the
// serializer allows JWCC, the input is read completely and standardized
// before it is decoded.
func (d *Decoder) ReadFrom(r io.Reader) (int64, error) {
	if d.s.opts.AllowJWCC {
		data, err := io.ReadAll(r)
		nr := int64(len(data))
		if err != nil {
			return nr, err
		}
		if data, err = standardize(data); err != nil {
			return nr, err
		}
		if _, err := d.Feed(data); err != nil {
			return nr, err
		}
		return nr, d.Close()
	}

	buf := make([]byte, d.s.opts.bufferSize())
	var nr int64
	for {
		n, err := r.Read(buf)
		nr += int64(n)
		if n > 0 {
			if _, ferr := d.Feed(buf[:n]); ferr != nil {
				return nr, ferr
			}
		}
		if err == io.EOF {
			return nr, d.Close()
		} else if err != nil {
			return nr, err
		}
	}
}

func (d *Decoder) step() (bool, error) {
	resuming := d.st.replay
	ok, err := d.resume()
	if err != nil {
		return false, d.fail(err)
	} else if !ok {
		d.s.log.Debug("decode suspended", "offset", d.r.Offset(), "frames", d.st.replay, "resumed", resuming)
		d.r.Compact()
		return false, nil
	}
	d.done = true
	if err := d.r.CheckTrailing(); err != nil {
		return true, d.fail(err)
	}
	return true, nil
}

func (d *Decoder) resume() (bool, error) {
	if !d.begun {
		if ok, err := readAhead(d.r, d.md); err != nil || !ok {
			return false, err
		}
		d.begun = true
	}
	v, ok, err := d.st.readValue(d.r, d.md)
	if err != nil || !ok {
		return false, err
	}
	d.target.Set(v)
	return true, nil
}

func (d *Decoder) fail(err error) error {
	d.err = annotate(err, d.st.path(), d.r.TokenOffset())
	return d.err
}

// An Encoder writes the JSON encoding of one Go value in steps. If the
// serializer has a flush threshold, each step stops when more than that much
// output is pending, so the caller can flush it before continuing.
type Encoder struct {
	s     *Serializer
	w     *token.Writer
	st    writeStack
	md    *TypeMetadata
	value reflect.Value

	done bool
	err  error
}

// NewEncoder constructs an Encoder for v.
func (s *Serializer) NewEncoder(v any) (*Encoder, error) {
	rv := reflect.ValueOf(v)
	var md *TypeMetadata
	if rv.IsValid() {
		var err error
		md, err = s.metadata(rv.Type())
		if err != nil {
			return nil, annotate(err, nil, -1)
		}
	}
	return &Encoder{
		s: s,
		w: token.NewWriter(),
		st: writeStack{
			s:         s,
			verify:    s.opts.VerifyConverters,
			threshold: s.opts.flushThreshold(),
			maxDepth:  s.opts.maxDepth(),
		},
		md:    md,
		value: rv,
	}, nil
}

// Step writes as much of the value as the flush threshold permits. It reports
// true when the value is completely written. The output of each step is
// pending until Flush is called; calling Step again without flushing makes
// no progress while the threshold is exceeded.
func (e *Encoder) Step() (bool, error) {
	if e.err != nil {
		return false, e.err
	} else if e.done {
		return true, nil
	}
	resuming := e.st.replay
	ok, err := e.st.writeValue(e.w, e.md, e.value)
	if err != nil {
		e.err = annotate(err, e.st.path(), -1)
		return false, e.err
	} else if !ok {
		e.s.log.Debug("encode suspended", "pending", e.w.Pending(), "frames", e.st.replay, "resumed", resuming)
		return false, nil
	}
	e.done = true
	return true, nil
}

// Pending reports the number of bytes written but not yet flushed.
func (e *Encoder) Pending() int { return e.w.Pending() }

// Bytes returns the pending output, without flushing it.
func (e *Encoder) Bytes() []byte { return e.w.Bytes() }

// Flush writes the pending output to w and discards it.
func (e *Encoder) Flush(w io.Writer) (int, error) { return e.w.Flush(w) }

// WriteTo writes the complete encoding of the value to w, flushing after
// each step.
func (e *Encoder) WriteTo(w io.Writer) (int64, error) {
	var nw int64
	for {
		done, err := e.Step()
		if err != nil {
			return nw, err
		}
		n, err := e.w.Flush(w)
		nw += int64(n)
		if err != nil {
			return nw, err
		} else if done {
			return nw, nil
		}
	}
}

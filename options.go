// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/creachadair/jserial/naming"
	"gopkg.in/yaml.v3"
)

// Default option values.
const (
	DefaultMaxDepth   = 64
	DefaultBufferSize = 4096
)

// Options are settings for a Serializer. A nil *Options is ready for use and
// provides default settings.
type Options struct {
	// If positive, an Encoder pauses whenever more than this many bytes of
	// output are pending, so the caller can flush them.
	FlushThreshold int `yaml:"flush_threshold"`

	// The maximum nesting depth of objects and arrays, for reading and
	// writing. If zero, DefaultMaxDepth is used; if negative, depth is not
	// limited.
	MaxDepth int `yaml:"max_depth"`

	// The chunk size used by Decoder.ReadFrom. If zero, DefaultBufferSize is
	// used.
	BufferSize int `yaml:"buffer_size"`

	// If true, null values are omitted when writing and ignored when reading
	// all object properties. Individual fields may request this with the
	// "omitnull" tag option.
	IgnoreNullValues bool `yaml:"ignore_null_values"`

	// If true, properties that can be read but not set are not written.
	IgnoreReadOnly bool `yaml:"ignore_read_only"`

	// If true, property names match regardless of letter case when reading.
	CaseInsensitive bool `yaml:"case_insensitive"`

	// If true, built-in converters are checked for token-consumption errors.
	// Custom scalar converters are always checked.
	VerifyConverters bool `yaml:"verify_converters"`

	// If true, whole-document inputs may use JSON With Commas and Comments.
	AllowJWCC bool `yaml:"allow_jwcc"`

	// If set, transforms Go field names into property names. A name given
	// by a struct tag is used verbatim.
	PropertyNaming naming.Policy `yaml:"-"`

	// If set, transforms map keys when reading and writing.
	KeyNaming naming.Policy `yaml:"-"`

	// If set, receives debug logs of suspension and resumption. If nil,
	// logs are discarded.
	Logger *slog.Logger `yaml:"-"`
}

func (o *Options) maxDepth() int {
	if o == nil || o.MaxDepth == 0 {
		return DefaultMaxDepth
	} else if o.MaxDepth < 0 {
		return 0
	}
	return o.MaxDepth
}

func (o *Options) bufferSize() int {
	if o == nil || o.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return o.BufferSize
}

func (o *Options) flushThreshold() int {
	if o == nil {
		return 0
	}
	return o.FlushThreshold
}

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// optionsFile is the YAML representation of Options.
type optionsFile struct {
	Options        `yaml:",inline"`
	PropertyNaming string `yaml:"property_naming"`
	KeyNaming      string `yaml:"key_naming"`
}

// LoadOptions reads Options from a YAML document. Naming policies are given
// by name (see naming.Lookup). An empty document yields default options.
//
// Example:
//
//	flush_threshold: 16384
//	max_depth: 32
//	property_naming: snake
//	ignore_null_values: true
func LoadOptions(r io.Reader) (*Options, error) {
	var cfg optionsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	opts := cfg.Options
	var err error
	if opts.PropertyNaming, err = naming.Lookup(cfg.PropertyNaming); err != nil {
		return nil, fmt.Errorf("property_naming: %w", err)
	}
	if opts.KeyNaming, err = naming.Lookup(cfg.KeyNaming); err != nil {
		return nil, fmt.Errorf("key_naming: %w", err)
	}
	return &opts, nil
}

// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package jserial_test

import (
	"bytes"
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/creachadair/jserial"
	"github.com/creachadair/jserial/token"
	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Account has unexported state, and is converted through a registered
// definition rather than its struct fields.
type Account struct {
	id      string
	balance int
	Zip     *string
	Rest    map[string]any
}

var accountType = reflect.TypeFor[Account]()

func registerAccount(s *jserial.Serializer, withFactory bool) error {
	return s.Register(accountType, func(b *jserial.Builder) {
		if withFactory {
			b.Factory(func() reflect.Value {
				v := reflect.New(accountType).Elem()
				v.FieldByName("Zip").Set(reflect.ValueOf(strPtr("00000")))
				return v
			})
		}
		b.Property("id", reflect.TypeFor[string]()).
			Get(func(obj reflect.Value) reflect.Value { return reflect.ValueOf(obj.Interface().(Account).id) }).
			Set(func(obj, v reflect.Value) { obj.Addr().Interface().(*Account).id = v.String() })
		b.Property("balance", reflect.TypeFor[int]()).
			Get(func(obj reflect.Value) reflect.Value { return reflect.ValueOf(obj.Interface().(Account).balance) })
		b.Field("zip", "Zip").IgnoreNull(true, true)
		b.Field("rest", "Rest").Extension()
	})
}

func TestRegister(t *testing.T) {
	s := jserial.New(nil)
	if err := registerAccount(s, true); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}

	const input = `{"id": "a1", "balance": 99, "zip": null, "other": [true]}`
	for i := 0; i <= len(input); i++ {
		got, err := decodeSplit[Account](t, s, input, i)
		if err != nil {
			t.Fatalf("Split %d: unexpected error: %v", i, err)
		}
		want := Account{id: "a1", Zip: strPtr("00000"), Rest: map[string]any{"other": []any{true}}}
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(Account{})); diff != "" {
			t.Errorf("Split %d (-want, +got):\n%s", i, diff)
		}
	}

	got, err := s.Marshal(Account{id: "b", balance: 5, Rest: map[string]any{"x": 1}})
	if err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	if want := `{"id":"b","balance":5,"x":1}`; string(got) != want {
		t.Errorf("Marshal: got %#q, want %#q", got, want)
	}

	md, err := s.Metadata(accountType)
	if err != nil {
		t.Fatalf("Metadata: unexpected error: %v", err)
	}
	if md.Shape != jserial.Object || !md.HasFactory() {
		t.Errorf("Metadata: shape %v, factory %v; want object with factory", md.Shape, md.HasFactory())
	}
	if p := md.Property("balance"); p == nil || !p.ShouldSerialize() || p.ShouldDeserialize() {
		t.Errorf("Property balance: got %+v, want read-only", p)
	}
	if md.Extension == nil || md.Extension.Name != "rest" {
		t.Errorf("Extension: got %+v, want rest", md.Extension)
	}
}

func TestRegisterErrors(t *testing.T) {
	s := jserial.New(nil)
	if err := registerAccount(s, true); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	if err := registerAccount(s, true); err == nil {
		t.Error("Register twice: got nil, want error")
	}

	type used struct{ A int }
	if _, err := s.Marshal(used{}); err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	if err := s.Register(reflect.TypeFor[used](), func(*jserial.Builder) {}); err == nil {
		t.Error("Register after use: got nil, want error")
	}
}

func TestNoFactory(t *testing.T) {
	s := jserial.New(nil)
	if err := registerAccount(s, false); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	var a Account
	if err := s.Unmarshal([]byte(`{"id": "x"}`), &a); !errors.Is(err, jserial.ErrNoFactory) {
		t.Errorf("Unmarshal: got %v, want %v", err, jserial.ErrNoFactory)
	}
	if err := s.Unmarshal([]byte(`null`), &a); err != nil {
		t.Errorf("Unmarshal null: unexpected error: %v", err)
	}
	if _, err := s.Marshal(Account{id: "x"}); err != nil {
		t.Errorf("Marshal: unexpected error: %v", err)
	}
}

func TestIgnoreReadOnly(t *testing.T) {
	s := jserial.New(&jserial.Options{IgnoreReadOnly: true})
	if err := registerAccount(s, true); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	got, err := s.Marshal(Account{id: "b", balance: 5, Zip: strPtr("z")})
	if err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	if want := `{"id":"b","zip":"z"}`; string(got) != want {
		t.Errorf("Marshal: got %#q, want %#q", got, want)
	}
}

func TestBuilderMisuse(t *testing.T) {
	s := jserial.New(nil)
	intType := reflect.TypeFor[int]()
	mtest.MustPanic(t, func() {
		s.Register(accountType, func(b *jserial.Builder) {
			b.Property("a", intType)
			b.Property("a", intType)
		})
	})
	mtest.MustPanic(t, func() {
		s.Register(accountType, func(b *jserial.Builder) { b.Property("", intType) })
	})
	mtest.MustPanic(t, func() {
		s.Register(accountType, func(b *jserial.Builder) { b.Field("id", "id") })
	})
	mtest.MustPanic(t, func() {
		s.Register(accountType, func(b *jserial.Builder) { b.Field("x", "NoSuchField") })
	})
	mtest.MustPanic(t, func() {
		s.Register(intType, func(b *jserial.Builder) { b.Field("x", "X") })
	})

	// A panicking definition does not register the type.
	if err := registerAccount(s, true); err != nil {
		t.Errorf("Register: unexpected error: %v", err)
	}

	err := s.Register(reflect.TypeFor[struct{ A, B map[string]int }](), func(b *jserial.Builder) {
		b.Field("a", "A").Extension()
		b.Field("b", "B").Extension()
	})
	if err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	if _, err := s.Marshal(struct{ A, B map[string]int }{}); !errors.Is(err, jserial.ErrExtensionTargetInvalid) {
		t.Errorf("Marshal: got %v, want %v", err, jserial.ErrExtensionTargetInvalid)
	}

	// An extension property must have both accessors.
	type loose struct {
		N string
		M map[string]any
	}
	looseType := reflect.TypeFor[loose]()
	err = s.Register(looseType, func(b *jserial.Builder) {
		b.Factory(func() reflect.Value { return reflect.New(looseType).Elem() })
		b.Field("n", "N")
		b.Property("rest", reflect.TypeFor[map[string]any]()).Extension()
	})
	if err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	var l loose
	if err := s.Unmarshal([]byte(`{"n": "x", "zz": 1}`), &l); !errors.Is(err, jserial.ErrExtensionTargetInvalid) {
		t.Errorf("Unmarshal: got %v, want %v", err, jserial.ErrExtensionTargetInvalid)
	}
	if _, err := s.Marshal(loose{N: "x"}); !errors.Is(err, jserial.ErrExtensionTargetInvalid) {
		t.Errorf("Marshal: got %v, want %v", err, jserial.ErrExtensionTargetInvalid)
	}
}

type Celsius float64

func TestRegisterScalar(t *testing.T) {
	s := jserial.New(nil)
	err := jserial.RegisterScalar(s, func(r *token.Reader) (Celsius, error) {
		text, err := r.String()
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSuffix(text, "C"), 64)
		return Celsius(f), err
	}, func(w *token.Writer, c Celsius) error {
		w.WriteString(strconv.FormatFloat(float64(c), 'f', -1, 64) + "C")
		return nil
	})
	if err != nil {
		t.Fatalf("RegisterScalar: unexpected error: %v", err)
	}

	type reading struct {
		Temp  Celsius   `json:"temp"`
		Trend []Celsius `json:"trend"`
	}
	in := reading{Temp: 21.5, Trend: []Celsius{-3, 0.25}}
	data, err := s.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	if want := `{"temp":"21.5C","trend":["-3C","0.25C"]}`; string(data) != want {
		t.Errorf("Marshal: got %#q, want %#q", data, want)
	}
	var out reading
	if err := s.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: unexpected error: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("Round trip (-want, +got):\n%s", diff)
	}

	var e *jserial.Error
	if err := s.Unmarshal([]byte(`{"temp": 5}`), &out); !errors.As(err, &e) || e.Path != "$.temp" {
		t.Errorf("Unmarshal number: got %v, want error at $.temp", err)
	}
}

type (
	overRead  int
	underRead int
	badWrite  int
	wrongType int
)

func TestConverterContract(t *testing.T) {
	s := jserial.New(nil)
	mustRegister := func(v any, c jserial.ScalarConverter) {
		t.Helper()
		if err := s.RegisterConverter(reflect.TypeOf(v), c); err != nil {
			t.Fatalf("RegisterConverter %T: unexpected error: %v", v, err)
		}
	}
	mustRegister(overRead(0), jserial.ScalarFuncs{
		Read: func(r *token.Reader, t reflect.Type) (reflect.Value, error) {
			r.Read() // consumes the next value too
			return reflect.New(t).Elem(), nil
		},
	})
	mustRegister(underRead(0), jserial.ScalarFuncs{
		Read: func(r *token.Reader, t reflect.Type) (reflect.Value, error) {
			return reflect.New(t).Elem(), nil
		},
	})
	mustRegister(badWrite(0), jserial.ScalarFuncs{
		Write: func(w *token.Writer, v reflect.Value) error {
			w.WriteStart(token.StartArray)
			return nil
		},
	})
	mustRegister(wrongType(0), jserial.ScalarFuncs{
		Read: func(r *token.Reader, t reflect.Type) (reflect.Value, error) {
			return reflect.ValueOf("wrong"), nil
		},
	})

	tests := []struct {
		name  string
		input string
		into  any
	}{
		{"OverRead", `[1, 2]`, new([]overRead)},
		{"UnderRead", `[{"a": 1}]`, new([]underRead)},
		{"WrongType", `1`, new(wrongType)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := s.Unmarshal([]byte(test.input), test.into)
			if !errors.Is(err, jserial.ErrConverterContract) {
				t.Errorf("Unmarshal: got %v, want %v", err, jserial.ErrConverterContract)
			}
		})
	}
	if _, err := s.Marshal([]badWrite{1}); !errors.Is(err, jserial.ErrConverterContract) {
		t.Errorf("Marshal: got %v, want %v", err, jserial.ErrConverterContract)
	}

	// A scalar converter may read a whole object, if it stops at its end.
	mustRegister(map[string]bool(nil), jserial.ScalarFuncs{
		Read: func(r *token.Reader, t reflect.Type) (reflect.Value, error) {
			if ok, err := r.TrySkip(); err != nil {
				return reflect.Value{}, err
			} else if !ok {
				return reflect.Value{}, errors.New("value is not buffered")
			}
			return reflect.ValueOf(map[string]bool{"skipped": true}), nil
		},
	})
	const input = `[{"a": [1, {"b": 2}]}, {}]`
	for i := 0; i <= len(input); i++ {
		got, err := decodeSplit[[]map[string]bool](t, s, input, i)
		if err != nil {
			t.Fatalf("Split %d: unexpected error: %v", i, err)
		}
		want := []map[string]bool{{"skipped": true}, {"skipped": true}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Split %d (-want, +got):\n%s", i, diff)
		}
	}
}

func TestVerifyConverters(t *testing.T) {
	s := jserial.New(&jserial.Options{VerifyConverters: true})
	for _, i := range []int{0, 13, 77, len(personInput)} {
		got, err := decodeSplit[Person](t, s, personInput, i)
		if err != nil {
			t.Fatalf("Split %d: unexpected error: %v", i, err)
		}
		if diff := cmp.Diff(personWant, got); diff != "" {
			t.Errorf("Split %d (-want, +got):\n%s", i, diff)
		}
	}
	if _, err := s.Marshal(personWant); err != nil {
		t.Errorf("Marshal: unexpected error: %v", err)
	}
}

func TestLoadOptions(t *testing.T) {
	opts, err := jserial.LoadOptions(strings.NewReader(`
flush_threshold: 128
max_depth: 10
ignore_null_values: true
case_insensitive: true
allow_jwcc: true
property_naming: snake
key_naming: lower
`))
	if err != nil {
		t.Fatalf("LoadOptions: unexpected error: %v", err)
	}
	want := jserial.Options{
		FlushThreshold:   128,
		MaxDepth:         10,
		IgnoreNullValues: true,
		CaseInsensitive:  true,
		AllowJWCC:        true,
	}
	ignoreNaming := cmpopts.IgnoreFields(jserial.Options{}, "PropertyNaming", "KeyNaming")
	if diff := cmp.Diff(want, *opts, ignoreNaming); diff != "" {
		t.Errorf("Options (-want, +got):\n%s", diff)
	}
	if got := opts.PropertyNaming.Apply("UserName"); got != "user_name" {
		t.Errorf("PropertyNaming: got %q, want user_name", got)
	}
	if got := opts.KeyNaming.Apply("MixedCase"); got != "mixedcase" {
		t.Errorf("KeyNaming: got %q, want mixedcase", got)
	}

	empty, err := jserial.LoadOptions(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadOptions empty: unexpected error: %v", err)
	}
	if diff := cmp.Diff(jserial.Options{}, *empty, ignoreNaming); diff != "" || empty.PropertyNaming != nil {
		t.Errorf("Empty options (-want, +got):\n%s", diff)
	}

	for _, bad := range []string{"bogus_field: 1\n", "property_naming: shouty\n", "max_depth: deep\n"} {
		if _, err := jserial.LoadOptions(strings.NewReader(bad)); err == nil {
			t.Errorf("LoadOptions(%q): got nil, want error", bad)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	s := jserial.New(&jserial.Options{
		FlushThreshold: 8,
		Logger:         slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	if _, err := decodeSplit[Person](t, s, personInput, 40); err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if _, err := s.Marshal(personWant); err != nil {
		t.Fatalf("Marshal: unexpected error: %v", err)
	}
	for _, want := range []string{"built type metadata", "decode suspended", "encode suspended"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Log does not contain %q:\n%s", want, buf.String())
		}
	}
}

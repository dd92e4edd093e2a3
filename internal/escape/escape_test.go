// Copyright (C) 2023 Michael J. Fromberger. All Rights Reserved.

package escape_test

import (
	"testing"

	"github.com/creachadair/jserial/internal/escape"
	"go4.org/mem"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ``},
		{"plain", `plain`},
		{"a\t\nb", `a\t\nb`},
		{"\x00\x01\x02", `\u0000\u0001\u0002`},
		{`a "b c\" d"`, `a \"b c\\\" d\"`},
		{"\u2028 \u2029 \ufffd", `\u2028 \u2029 \ufffd`},
		{"caf\u00e9", "caf\u00e9"},
		{"<\x1e>", `<\u001e>`},
	}
	for _, test := range tests {
		if got := string(escape.Quote(mem.S(test.input))); got != test.want {
			t.Errorf("Quote(%#q): got %#q, want %#q", test.input, got, test.want)
		}
		if got, want := string(escape.AppendQuoted([]byte("x"), mem.S(test.input))), `x"`+test.want+`"`; got != want {
			t.Errorf("AppendQuoted(%#q): got %#q, want %#q", test.input, got, want)
		}
	}
}

func TestNeedsEscape(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"simple name", false},
		{"quote\"", true},
		{`back\slash`, true},
		{"tab\t", true},
		{"caf\u00e9", true},
	}
	for _, test := range tests {
		if got := escape.NeedsEscape(mem.S(test.input)); got != test.want {
			t.Errorf("NeedsEscape(%#q): got %v, want %v", test.input, got, test.want)
		}
	}
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		input string
		want  string
		fail  bool
	}{
		{``, ``, false},
		{`ok go`, "ok go", false},
		{`abc\ndef`, "abc\ndef", false},
		{`\b\f\n\r\t`, "\b\f\n\r\t", false},
		{`a & b`, "a & b", false},
		{`\u00e9t\u00e9`, "\u00e9t\u00e9", false},
		{`\u`, ``, true},
		{`\u00`, ``, true},
		{`\u00x9`, "\ufffd", false},
		{`a\"b`, `a"b`, false},
		{`a\\b\\cd`, `a\b\cd`, false},
		{`\ud83d\ude00`, "\U0001F600", false},
		{`x\uD834\uDD1Ey`, "x\U0001D11Ey", false},
		{`\ud83d`, "\ufffd", false},
		{`\ude00\ud83d`, "\ufffd\ufffd", false},
		{`\ud83d\u0041`, "\ufffdA", false},
		{`\ud83d\n`, "\ufffd\n", false},
		{`\ud83d\ude`, ``, true},
		{"bad\xffbyte\\n", "bad\ufffdbyte\n", false},
		{"caf\xc3", "caf\ufffd", false},
		{"\u00e9 ok \xe2\x82", "\u00e9 ok \ufffd\ufffd", false},
	}
	for _, test := range tests {
		got, err := escape.Unquote(mem.S(test.input))
		if err != nil {
			if !test.fail {
				t.Errorf("Unquote(%#q): got %v, want no error", test.input, err)
			}
			continue
		} else if test.fail {
			t.Errorf("Unquote(%#q): got %#q, want error", test.input, got)
			continue
		}
		if string(got) != test.want {
			t.Errorf("Unquote(%#q): got %#q, want %#q", test.input, got, test.want)
		}
	}
}

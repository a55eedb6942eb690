package utf7

import (
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain ascii", "INBOX", "INBOX"},
		{"ascii with slash", "Mail/Sent", "Mail/Sent"},
		{"ampersand escapes", "Tom & Jerry", "Tom &- Jerry"},
		{"only ampersand", "&", "&-"},
		{"german umlaut", "Entwürfe", "Entw&APw-rfe"},
		{"cjk run", "日本語", "&ZeVnLIqe-"},
		{"emoji surrogate pair", "😀", "&2D3eAA-"},
		{"mixed shift sequences", "a&bü", "a&-b&APw-"},
		{"control character shifts", "a\tb", "a&AAk-b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.input); got != tt.want {
				t.Errorf("Encode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain ascii", "INBOX", "INBOX"},
		{"escaped ampersand", "Tom &- Jerry", "Tom & Jerry"},
		{"german umlaut", "Entw&APw-rfe", "Entwürfe"},
		{"cjk run", "&ZeVnLIqe-", "日本語"},
		{"emoji surrogate pair", "&2D3eAA-", "😀"},
		{"adjacent sequences", "a&-b&APw-", "a&bü"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Decode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantOffset int
	}{
		{"truncated at end", "abc&", 3},
		{"unterminated sequence", "&ZeVnLIqe", 0},
		{"bad base64", "&*x-", 0},
		{"odd utf16 length", "&AA-", 0},
		{"lone surrogate", "&2D0-", 0},
		{"offset after text", "mail&", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			var ierr *InvalidError
			if !errors.As(err, &ierr) {
				t.Fatalf("Decode(%q) error = %v, want *InvalidError", tt.input, err)
			}
			if ierr.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", ierr.Offset, tt.wantOffset)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"INBOX",
		"Sent Items",
		"Entwürfe",
		"日本語/メール",
		"R&D",
		"α & β",
		"😀😃",
		"",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			encoded := Encode(in)
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(Encode(%q)) error: %v", in, err)
			}
			if decoded != in {
				t.Errorf("round trip %q -> %q -> %q", in, encoded, decoded)
			}
		})
	}
}

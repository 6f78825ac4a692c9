package util

import (
	"strings"
	"testing"
)

func TestHashUserKey(t *testing.T) {
	id := "a@b.c"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestRandomIDUnique(t *testing.T) {
	a, b := RandomID(), RandomID()
	if a == b || len(a) != 32 {
		t.Fatalf("unexpected ids %q %q", a, b)
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "invoice.pdf", want: "invoice.pdf"},
		{in: " dir/sub\\scan.png ", want: "dir_sub_scan.png"},
		{in: "bad\x00name.jpg", want: "badname.jpg"},
		{in: "invoice..v2.pdf", want: "invoice_v2.pdf"},
		{in: "../secret", want: "__secret"},
		{in: "..", want: "_"},
		{in: ".", want: "upload"},
		{in: "   ", want: "upload"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	got := SanitizeFileName(strings.Repeat("a", 300) + ".pdf")
	if len([]rune(got)) != maxFileNameRunes || !strings.HasSuffix(got, ".pdf") {
		t.Fatalf("unexpected name %q (%d runes)", got, len([]rune(got)))
	}
}

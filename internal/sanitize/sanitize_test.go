package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Budi Santoso", "Budi Santoso"},
		{"script stripped", `<script>alert(1)</script>Budi`, "Budi"},
		{"tags stripped", `<b>B 1234</b> <i>XYZ</i>`, "B 1234 XYZ"},
		{"whitespace collapsed", "  Oil \n change\t", "Oil change"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextOr(t *testing.T) {
	if got := TextOr("<br/>", "-"); got != "-" {
		t.Errorf("TextOr = %q, want fallback", got)
	}
	if got := TextOr("Andi", "-"); got != "Andi" {
		t.Errorf("TextOr = %q, want Andi", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Avanza", 10); got != "Avanza" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("Innova Reborn", 5); got != "Inno…" {
		t.Errorf("Truncate = %q, want Inno…", got)
	}
	if got := Truncate("Innova", 1); got != "…" {
		t.Errorf("Truncate = %q, want …", got)
	}
}

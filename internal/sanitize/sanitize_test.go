package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain", "Beach Party", "Beach Party"},
		{"ampersand kept", "Rock & Roll", "Rock & Roll"},
		{"script removed", `Hi<script>alert(1)</script>`, "Hi"},
		{"tags stripped", `<b>bold</b> move`, "bold move"},
		{"trimmed", "  spaced  ", "spaced"},
		{"typed entities kept", "&lt;b&gt; tag", "&lt;b&gt; tag"},
		{"named entity kept", "caf&eacute;", "caf&eacute;"},
		{"quotes kept", `"Quiz" night's`, `"Quiz" night's`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	for _, in := range []string{"&lt;b&gt;", "Rock & Roll", "<i>x</i> &amp; y", "a < b"} {
		once := Text(in)
		if twice := Text(once); twice != once {
			t.Errorf("Text(%q) = %q, Text again = %q", in, once, twice)
		}
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"https://example.com/a.png", "https://example.com/a.png"},
		{"/static/images/no-image.png", "/static/images/no-image.png"},
		{"javascript:alert(1)", ""},
		{"data:image/png;base64,AAAA", ""},
		{"//evil.example/x.png", ""},
		{"http://", ""},
	}
	for _, tt := range tests {
		if got := URL(tt.in); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

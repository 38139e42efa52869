package mediatools

import "testing"

func TestFirstLine(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"single line no newline", []byte("ffmpeg version 6.0"), "ffmpeg version 6.0"},
		{"multi line", []byte("ffmpeg version 6.0\nbuilt with gcc\n"), "ffmpeg version 6.0"},
		{"leading/trailing space", []byte("  ffmpeg version 6.0  \nrest"), "ffmpeg version 6.0"},
		{"empty", []byte(""), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := firstLine(tc.in); got != tc.want {
				t.Fatalf("firstLine(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestDiscoverMissingBinary(t *testing.T) {
	if _, err := Discover("this-binary-definitely-does-not-exist-anywhere"); err == nil {
		t.Fatal("expected an error for a binary not on PATH")
	}
}

func TestCheckConcatSupportMissingBinary(t *testing.T) {
	if err := CheckConcatSupport("this-binary-definitely-does-not-exist-anywhere"); err == nil {
		t.Fatal("expected an error for a binary not on PATH")
	}
}

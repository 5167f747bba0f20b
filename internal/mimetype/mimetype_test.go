package mimetype

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"TEXT/PLAIN; charset=utf-8", "text/plain"},
		{"", Default},
		{"  ", Default},
		{"image/PNG", "image/png"},
	}
	for _, test := range tests {
		if got := Normalize(test.in); got != test.want {
			t.Errorf("Normalize(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestSniff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		wantMime string
		wantOK   bool
	}{
		{
			name:     "png",
			data:     []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0},
			wantMime: "image/png",
			wantOK:   true,
		},
		{
			name:     "jpeg",
			data:     []byte{0xFF, 0xD8, 0xFF, 0xE0},
			wantMime: "image/jpeg",
			wantOK:   true,
		},
		{
			name:     "gltf json",
			data:     []byte(`{"asset":{"version":"2.0"},"buffers":[]}`),
			wantMime: "model/gltf+json",
			wantOK:   true,
		},
		{
			name:   "random hex-looking json without asset",
			data:   []byte(`{"deadbeefcafe": "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"}`),
			wantOK: false,
		},
		{
			name:   "unrecognized",
			data:   []byte("just some text"),
			wantOK: false,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Sniff(test.data)
			if ok != test.wantOK {
				t.Fatalf("ok = %v, want %v", ok, test.wantOK)
			}
			if ok && got.MimeType != test.wantMime {
				t.Errorf("mime = %q, want %q", got.MimeType, test.wantMime)
			}
		})
	}
}

func TestIsWeak(t *testing.T) {
	t.Parallel()

	if !IsWeak(Default, "") {
		t.Error("expected default octet-stream with no ext to be weak")
	}
	if !IsWeak("image/png", "bin") {
		t.Error("expected bin extension to be weak regardless of mime")
	}
	if IsWeak("image/png", "png") {
		t.Error("expected declared png to be strong")
	}
}

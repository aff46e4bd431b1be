package imgutil

import (
	"bytes"
	"testing"
)

func TestDetectHeader(t *testing.T) {
	pad := func(b []byte) []byte {
		out := make([]byte, HeaderSize)
		copy(out, b)
		return out
	}

	cases := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"jpeg", pad([]byte{0xff, 0xd8, 0xff, 0xe0}), KindJPEG},
		{"png", pad(pngSig), KindPNG},
		{"webp", []byte("RIFF\x10\x00\x00\x00WEBP"), KindWEBP},
		{"riff not webp", []byte("RIFF\x10\x00\x00\x00WAVE"), KindUnknown},
		{"tiff le", pad(tiffSigLE), KindTIFF},
		{"tiff be", pad(tiffSigBE), KindTIFF},
		{"bmp", pad([]byte("BM")), KindBMP},
		{"text", []byte("hello world!"), KindUnknown},
	}

	for _, tc := range cases {
		got, err := DetectHeader(tc.header)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectHeaderTooShort(t *testing.T) {
	if _, err := DetectHeader([]byte{0xff, 0xd8}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestSniffReaderShortInput(t *testing.T) {
	kind, err := SniffReader(bytes.NewReader([]byte("BM")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != KindUnknown {
		t.Fatalf("got %s, want unknown", kind)
	}
}

func TestKindFromPath(t *testing.T) {
	cases := map[string]Kind{
		"a/b/photo.JPG":  KindJPEG,
		"photo.jpeg":     KindJPEG,
		"icon.Png":       KindPNG,
		"x.webp":         KindWEBP,
		"scan.tiff":      KindTIFF,
		"scan.TIF":       KindTIFF,
		"old.bmp":        KindBMP,
		"anim.gif":       KindUnknown,
		"README":         KindUnknown,
		"archive.tar.gz": KindUnknown,
	}
	for path, want := range cases {
		if got := KindFromPath(path); got != want {
			t.Fatalf("%s: got %s, want %s", path, got, want)
		}
		if IsSupported(path) != (want != KindUnknown) {
			t.Fatalf("%s: IsSupported mismatch", path)
		}
	}

	if KindFromExt("webp") != KindWEBP {
		t.Fatal("expected bare extension to resolve")
	}
}

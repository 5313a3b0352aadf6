package imaging

import (
	"bytes"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeTestJPEG(t *testing.T) string {
	t.Helper()
	base := pngBytes(t, 16, 16, color.RGBA{R: 120, G: 80, B: 40, A: 255})
	comp, err := NewCompositor("")
	if err != nil {
		t.Fatalf("NewCompositor: %v", err)
	}
	data, err := comp.Composite(base, nil, 16, 16)
	if err != nil {
		t.Fatalf("Composite: %v", err)
	}
	path := filepath.Join(t.TempDir(), "pin.jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
	return path
}

func TestEmbedInsertsExifSegment(t *testing.T) {
	t.Parallel()
	nop := zerolog.Nop()
	emb := NewEmbedder(&nop)
	path := writeTestJPEG(t)
	before, _ := os.ReadFile(path)

	emb.Embed(path, "Cozy Fall Porch", "Warm autumn porch styling ideas", []string{"fall", "porch"})

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if after[0] != 0xFF || after[1] != 0xD8 {
		t.Fatal("output no longer starts with SOI")
	}
	if !bytes.Contains(after, []byte("Exif\x00\x00")) {
		t.Fatal("no EXIF APP1 segment present")
	}
	if !bytes.Contains(after, []byte("Warm autumn porch styling ideas")) {
		t.Fatal("description not embedded")
	}
	if !bytes.Contains(after, before[2:]) {
		t.Fatal("original image payload must be preserved verbatim")
	}

	// The segment marker follows SOI directly.
	if after[2] != 0xFF || after[3] != 0xE1 {
		t.Fatalf("bytes after SOI = %02x%02x, want APP1 marker", after[2], after[3])
	}

	// Still a decodable JPEG.
	if _, err := jpeg.Decode(bytes.NewReader(after)); err != nil {
		t.Fatalf("output not decodable: %v", err)
	}
}

func TestEmbedSkipsNonJPEG(t *testing.T) {
	t.Parallel()
	nop := zerolog.Nop()
	emb := NewEmbedder(&nop)
	path := filepath.Join(t.TempDir(), "pin.png")
	if err := os.WriteFile(path, []byte("\x89PNG not a jpeg"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	before, _ := os.ReadFile(path)

	emb.Embed(path, "t", "d", nil)

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatal("non-JPEG input must be left untouched")
	}
}

func TestDegMinSec(t *testing.T) {
	t.Parallel()
	got := degMinSec(40.7128)
	if got[0] != [2]uint32{40, 1} {
		t.Fatalf("degrees = %v, want 40/1", got[0])
	}
	if got[1] != [2]uint32{42, 1} {
		t.Fatalf("minutes = %v, want 42/1", got[1])
	}
	// 40.7128 = 40deg 42min 46.08sec
	if got[2][1] != 100 || got[2][0] < 4600 || got[2][0] > 4616 {
		t.Fatalf("seconds = %v, want ~4608/100", got[2])
	}

	neg := degMinSec(-74.0060)
	if neg[0] != [2]uint32{74, 1} {
		t.Fatalf("negative coordinate degrees = %v, want 74/1", neg[0])
	}
}

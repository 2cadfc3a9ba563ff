package pdf2img

import (
	"path/filepath"
	"testing"
)

func TestChooseFormatPrecedence(t *testing.T) {
	cases := []struct {
		opt  Options
		want string
	}{
		{Options{}, "webp"},
		{Options{SavePNG: true}, "png"},
		{Options{SaveTIFF: true}, "tiff"},
		{Options{SavePNG: true, SaveTIFF: true}, "tiff"},
		{Options{SaveJXL: true, SaveTIFF: true, SavePNG: true}, "jxl"},
	}
	for _, c := range cases {
		if got := chooseFormat(c.opt); got != c.want {
			t.Errorf("chooseFormat(%+v) = %q, want %q", c.opt, got, c.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	got := outputPath("/out", 7, "png")
	want := filepath.Join("/out", "007.png")
	if got != want {
		t.Errorf("outputPath = %q, want %q", got, want)
	}
}

func TestExtractedExt(t *testing.T) {
	if got := extractedExt(&ExtractedImage{Kind: KindJpeg}); got != "jpg" {
		t.Errorf("extractedExt(jpeg) = %q, want jpg", got)
	}
	if got := extractedExt(&ExtractedImage{Kind: KindPixels}); got != "png" {
		t.Errorf("extractedExt(pixels) = %q, want png", got)
	}
	if got := extractedExt(&ExtractedImage{Kind: KindMask}); got != "png" {
		t.Errorf("extractedExt(mask) = %q, want png", got)
	}
}

func TestCancelFlag(t *testing.T) {
	var c CancelFlag
	if c.IsSet() {
		t.Fatalf("new CancelFlag should not be set")
	}
	c.Set()
	if !c.IsSet() {
		t.Fatalf("expected CancelFlag to be set after Set()")
	}
}

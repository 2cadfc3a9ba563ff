package pdf2img

import (
	"errors"
	"testing"
)

func TestAdvertiseColorSpace(t *testing.T) {
	cases := []struct {
		dict string
		want string
	}{
		{"<< /ImageMask true /Width 10 /Height 10 >>", "1"},
		{"<< /BitsPerComponent 1 /Width 10 >>", "1"},
		{"<< /ColorSpace /DeviceGray /BitsPerComponent 8 >>", "L"},
		{"<< /ColorSpace /DeviceRGB /BitsPerComponent 8 >>", "RGB"},
		{"<< /ColorSpace /DeviceCMYK /BitsPerComponent 8 >>", "RGB"},
		{"<< /ColorSpace 7 0 R /BitsPerComponent 8 >>", "RGB"},
	}
	for _, c := range cases {
		if got := advertiseColorSpace(c.dict); got != c.want {
			t.Errorf("advertiseColorSpace(%q) = %q, want %q", c.dict, got, c.want)
		}
	}
}

func TestDictIntAndBool(t *testing.T) {
	dict := "<< /Width 640 /Height 480 /ImageMask true >>"
	if w, ok := dictInt(dict, "/Width"); !ok || w != 640 {
		t.Errorf("dictInt Width = %v, %v", w, ok)
	}
	if h, ok := dictInt(dict, "/Height"); !ok || h != 480 {
		t.Errorf("dictInt Height = %v, %v", h, ok)
	}
	if !dictBool(dict, "/ImageMask") {
		t.Errorf("expected ImageMask true")
	}
}

func TestDictRawValueArray(t *testing.T) {
	dict := "<< /Filter [/ASCII85Decode /DCTDecode] /Width 10 >>"
	got := dictRawValue(dict, "/Filter")
	if got != "[/ASCII85Decode /DCTDecode]" {
		t.Errorf("dictRawValue Filter = %q", got)
	}
}

func TestIsIndirect(t *testing.T) {
	if !isIndirect("12 0 R") {
		t.Errorf("expected 12 0 R to be indirect")
	}
	if isIndirect("/DeviceRGB") {
		t.Errorf("did not expect /DeviceRGB to be indirect")
	}
}

func TestCMYKToRGBPureBlack(t *testing.T) {
	r, g, b := cmykToRGB(0, 0, 0, 255)
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("k=255 should be pure black, got (%d,%d,%d)", r, g, b)
	}
}

func TestCMYKToRGBWhite(t *testing.T) {
	r, g, b := cmykToRGB(0, 0, 0, 0)
	if r != 255 || g != 255 || b != 255 {
		t.Errorf("all-zero CMYK should be white, got (%d,%d,%d)", r, g, b)
	}
}

func TestUnpack1bpp(t *testing.T) {
	// One row, 8 pixels, MSB first: 10110010 -> white,black,white,white,black,black,white,black
	data := []byte{0b10110010}
	got := unpack1bpp(data, 8)
	want := []byte{255, 0, 255, 255, 0, 0, 255, 0}
	if len(got) != len(want) {
		t.Fatalf("got %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestClassifyAndExtractUnrecognizedColorSpaceWarns(t *testing.T) {
	d := &document{objects: map[int]*object{
		9: {num: 9, dict: "<< /Type /XObject /Subtype /Image /Width 4 /Height 4 /ColorSpace /DeviceN >>", stream: make([]byte, 16)},
	}}
	rpt := NewReport()
	extracted, err := d.classifyAndExtract(9, rpt, 0)
	if err != nil {
		t.Fatalf("classifyAndExtract: %v", err)
	}
	if extracted.Mode != ModeRGB {
		t.Fatalf("expected fallback to assume RGB, got %v", extracted.Mode)
	}
	warnings := rpt.warnings
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(warnings))
	}
	if !errors.Is(warnings[0].Err, ErrUnsupportedColorSpace) {
		t.Fatalf("expected warning to carry ErrUnsupportedColorSpace, got %v", warnings[0].Err)
	}
}

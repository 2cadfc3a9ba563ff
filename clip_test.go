package pdf2img

import "testing"

// TestRasterizeClipMaskRectSquare exercises the named clip-rasteriser
// property directly: a `[0 0 100 100 re W n]` clip on a canvas whose height
// equals the rect's own height leaves the y-flip a no-op set-wise, so the
// square painted at pixel (0,0)-(100,100) is exactly the left half of a
// 200x100 canvas — top-left 1, the rest 0.
func TestRasterizeClipMaskRectSquare(t *testing.T) {
	clip := []PathCmd{{Op: OpRect, Args: []float64{0, 0, 100, 100}}}
	packed := rasterizeClipMask(200, 100, clip, 1, 0, 0)
	mask := packedMaskToImage(packed, 200, 100)

	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			got := mask.AlphaAt(x, y).A
			inSquare := x < 100
			if inSquare && got == 0 {
				t.Fatalf("pixel (%d,%d) inside the clipped square should be visible, got alpha 0", x, y)
			}
			if !inSquare && got != 0 {
				t.Fatalf("pixel (%d,%d) outside the clipped square should be hidden, got alpha %d", x, y, got)
			}
		}
	}
}

func TestRasterizeClipMaskNoClipIsFullyVisible(t *testing.T) {
	packed := rasterizeClipMask(4, 4, nil, 1, 0, 0)
	mask := packedMaskToImage(packed, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if mask.AlphaAt(x, y).A == 0 {
				t.Fatalf("pixel (%d,%d) should be visible with no clip path", x, y)
			}
		}
	}
}

func TestCropMaskExtractsSubRegion(t *testing.T) {
	// 8x2 source mask: row0 = 0b11110000, row1 = 0b00001111
	src := []byte{0b11110000, 0b00001111}
	// Crop the right half (x0=4, w=4) of both rows.
	out := cropMask(src, 8, 4, 0, 4, 2)
	wantRowBytes := 1
	if len(out) != wantRowBytes*2 {
		t.Fatalf("got %d bytes, want %d", len(out), wantRowBytes*2)
	}
	// Row0 bits 4..7 were 0000 -> cropped row should be all zero (MSB-aligned).
	if out[0] != 0 {
		t.Errorf("row0 = %08b, want 00000000", out[0])
	}
	// Row1 bits 4..7 were 1111 -> cropped row should have the top 4 bits set.
	if out[1] != 0b11110000 {
		t.Errorf("row1 = %08b, want 11110000", out[1])
	}
}

func TestCropMaskOutOfBoundsIsSafe(t *testing.T) {
	src := []byte{0b11111111}
	out := cropMask(src, 8, 4, 5, 4, 3)
	if len(out) != 3 {
		t.Fatalf("got %d bytes, want 3", len(out))
	}
	for i, b := range out {
		if b != 0 {
			t.Errorf("row %d = %08b, want 00000000 for an out-of-bounds source row", i, b)
		}
	}
}

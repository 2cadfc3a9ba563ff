package pdf2img

import (
	"github.com/gogpu/gg"
)

// rasterizeClipMask replays a recovered clip path through an affine 2-D
// graphics context, clips to it, and fills white — producing a mask the
// size of the merged canvas where 1 (visible) is inside the clip path and 0
// is outside. A nil clip means "no clip": the whole area is visible.
//
// width/height are the canvas's pixel dimensions. zoom is pixels per page
// unit; originX/originY is the canvas's page-unit origin, subtracted before
// scaling. PDF's y-up convention is flipped to screen coordinates per path
// point: y_px = height - (y-originY)*zoom.
func rasterizeClipMask(width, height int, clip []PathCmd, zoom, originX, originY float64) []byte {
	ctx := gg.NewContext(width, height)
	if len(clip) == 0 {
		ctx.SetRGB(1, 1, 1)
		ctx.Clear()
		return packMask(ctx, width, height)
	}

	toPx := func(x, y float64) (float64, float64) {
		return (x - originX) * zoom, float64(height) - (y-originY)*zoom
	}

	var curX, curY float64
	for _, cmd := range clip {
		switch cmd.Op {
		case OpMove:
			x, y := toPx(cmd.Args[0], cmd.Args[1])
			ctx.MoveTo(x, y)
			curX, curY = x, y
		case OpLine:
			x, y := toPx(cmd.Args[0], cmd.Args[1])
			ctx.LineTo(x, y)
			curX, curY = x, y
		case OpCurve:
			x1, y1 := toPx(cmd.Args[0], cmd.Args[1])
			x2, y2 := toPx(cmd.Args[2], cmd.Args[3])
			x3, y3 := toPx(cmd.Args[4], cmd.Args[5])
			ctx.CubicTo(x1, y1, x2, y2, x3, y3)
			curX, curY = x3, y3
		case OpVCurve:
			x2, y2 := toPx(cmd.Args[0], cmd.Args[1])
			x3, y3 := toPx(cmd.Args[2], cmd.Args[3])
			ctx.CubicTo(curX, curY, x2, y2, x3, y3)
			curX, curY = x3, y3
		case OpYCurve:
			x1, y1 := toPx(cmd.Args[0], cmd.Args[1])
			x3, y3 := toPx(cmd.Args[2], cmd.Args[3])
			ctx.CubicTo(x1, y1, x3, y3, x3, y3)
			curX, curY = x3, y3
		case OpRect:
			x, y := toPx(cmd.Args[0], cmd.Args[1])
			x2, y2 := toPx(cmd.Args[0]+cmd.Args[2], cmd.Args[1]+cmd.Args[3])
			ctx.MoveTo(x, y)
			ctx.LineTo(x2, y)
			ctx.LineTo(x2, y2)
			ctx.LineTo(x, y2)
			ctx.ClosePath()
			curX, curY = x, y
		case OpClose:
			ctx.ClosePath()
		}
	}
	ctx.Clip()
	ctx.SetRGB(1, 1, 1)
	ctx.Clear()
	return packMask(ctx, width, height)
}

// packMask reads the context's rendered alpha channel and packs it to
// 1-bit-per-pixel, MSB-first, one bit per pixel, row length (width+7)/8.
func packMask(ctx *gg.Context, width, height int) []byte {
	img := ctx.Image()
	rowBytes := (width + 7) / 8
	out := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a>>8 > 127 {
				out[y*rowBytes+x/8] |= 1 << uint(7-x%8)
			}
		}
	}
	return out
}

// cropMask extracts a sub-rectangle of a packed 1-bpp mask, returning a new
// packed buffer sized (w x h) starting at (x0,y0) in the source mask.
func cropMask(src []byte, srcW, x0, y0, w, h int) []byte {
	srcRowBytes := (srcW + 7) / 8
	dstRowBytes := (w + 7) / 8
	out := make([]byte, dstRowBytes*h)
	for y := 0; y < h; y++ {
		sy := y0 + y
		for x := 0; x < w; x++ {
			sx := x0 + x
			srcByteIdx := sy*srcRowBytes + sx/8
			if srcByteIdx < 0 || srcByteIdx >= len(src) {
				continue
			}
			bit := src[srcByteIdx] & (1 << uint(7-sx%8))
			if bit != 0 {
				out[y*dstRowBytes+x/8] |= 1 << uint(7-x%8)
			}
		}
	}
	return out
}

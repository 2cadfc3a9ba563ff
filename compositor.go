package pdf2img

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Options controls the compositor and encoder, loaded from the config file
// and CLI flags.
type Options struct {
	Processes    int
	OnlyExtract  bool
	RenderImage  bool
	NoCrop       bool
	OriginalOnly bool
	ExtractJPEG  bool
	PreferMono   bool
	SaveJXL      bool
	SavePNG      bool
	SaveTIFF     bool
	TIFFCompression string
}

func (o Options) defaults() Options {
	if o.Processes <= 0 {
		o.Processes = 2
	}
	return o
}

// placementGeometry is the per-image bookkeeping the compositor needs
// before it can choose a zoom/canvas.
type placementGeometry struct {
	img     ImageXObject
	place   Placement
	zoomX   float64
	zoomY   float64
	rectPU  Rect // bounding rect in page units
	advert  string
}

// CompositePage runs the full per-page algorithm. eng is the original
// document; overlay is the stripped overlay document opened from the same
// worker (both are opened once per worker, not per page).
func CompositePage(eng, overlay *Engine, pageIdx int, opt Options, rpt *Report) (image.Image, error) {
	opt = opt.defaults()
	pageRect, err := eng.PageRect(pageIdx)
	if err != nil {
		return nil, err
	}

	if opt.OnlyExtract {
		return nil, nil // caller dispatches extraction separately, see scheduler.go
	}

	images, err := eng.Images(pageIdx)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return rasterizeFullPage(eng, pageIdx, pageRect, 600.0/72.0, ModeL)
	}

	geoms := make([]placementGeometry, 0, len(images))
	for _, im := range images {
		place, err := eng.ImageBBox(pageIdx, im.Name)
		if err != nil {
			continue
		}
		zx, zy := derivedZoom(place.Matrix, im.Width, im.Height)
		if place.Matrix.IsSkewed() {
			rpt.Warn(pageIdx, im.XRef, KindGeometryWarning, "image placement is rotated or skewed")
		}
		if NonUniform(zx, zy, zx) {
			rpt.Warn(pageIdx, im.XRef, KindGeometryWarning, "non-uniform scale between width and height")
		}
		rect := placementRect(place.Matrix)
		dict := ""
		if obj, ok := eng.doc.objects[im.XRef]; ok {
			dict = obj.dict
		}
		geoms = append(geoms, placementGeometry{
			img: im, place: place, zoomX: zx, zoomY: zy, rectPU: rect,
			advert: advertiseColorSpace(dict),
		})
	}
	if len(geoms) == 0 {
		return rasterizeFullPage(eng, pageIdx, pageRect, 600.0/72.0, ModeL)
	}

	zoom := chooseZoom(geoms)
	checkMixedZoom(geoms, zoom, pageRect, rpt, pageIdx)

	mode := chooseCanvasMode(geoms)
	rectMerge := chooseCanvasRect(pageRect, geoms, opt.NoCrop, rpt, pageIdx, len(geoms))

	if opt.RenderImage && rpt.HasGeometryWarning(pageIdx) {
		return rasterizeFullPage(eng, pageIdx, rectMerge, zoom, mode)
	}

	canvasW := int(math.Ceil(rectMerge.W * zoom))
	canvasH := int(math.Ceil(rectMerge.H * zoom))
	canvas := newCanvas(canvasW, canvasH, mode)

	for _, g := range geoms {
		if err := pasteImage(eng, canvas, g, rectMerge, zoom, opt, rpt, pageIdx); err != nil {
			rpt.Warn(pageIdx, g.img.XRef, KindGeometryWarning, "paste failed: "+err.Error())
		}
	}

	if !opt.OriginalOnly && overlay != nil {
		if err := pasteOverlay(overlay, canvas, pageIdx, rectMerge, zoom); err != nil {
			rpt.Warn(pageIdx, 0, KindGeometryWarning, "overlay paste failed: "+err.Error())
		}
	}

	if opt.PreferMono && allMono(geoms) {
		return thresholdMono(canvas), nil
	}
	return canvas, nil
}

func derivedZoom(m Matrix, width, height int) (float64, float64) {
	var zx, zy float64
	if m.A != 0 {
		zx = float64(width) / math.Abs(m.A)
	}
	if m.D != 0 {
		zy = float64(height) / math.Abs(m.D)
	}
	return zx, zy
}

func placementRect(m Matrix) Rect {
	x0, y0 := m.E, m.F
	w, h := math.Abs(m.A), math.Abs(m.D)
	return Rect{X: x0, Y: y0, W: w, H: h}
}

func chooseZoom(geoms []placementGeometry) float64 {
	best := 0
	bestArea := -1.0
	for i, g := range geoms {
		a := g.rectPU.Area()
		if a > bestArea {
			bestArea = a
			best = i
		}
	}
	return geoms[best].zoomX
}

func checkMixedZoom(geoms []placementGeometry, zoom float64, pageRect Rect, rpt *Report, page int) {
	want := math.Ceil(pageRect.H * zoom)
	for _, g := range geoms {
		if g.zoomX == 0 {
			continue
		}
		got := math.Ceil(pageRect.H * g.zoomX)
		if got != want {
			rpt.Warn(page, g.img.XRef, KindGeometryWarning, "image zoom differs from the page's chosen zoom")
		}
	}
}

func chooseCanvasMode(geoms []placementGeometry) PixelMode {
	for _, g := range geoms {
		if g.advert != "1" && g.advert != "L" {
			return ModeRGB
		}
	}
	return ModeL
}

func chooseCanvasRect(pageRect Rect, geoms []placementGeometry, noCrop bool, rpt *Report, page int, n int) Rect {
	if !noCrop {
		return pageRect
	}
	if n > 1 {
		rpt.Warn(page, 0, KindGeometryWarning, "no-crop with multiple images may overlap canvas extension")
	}
	rect := pageRect
	for _, g := range geoms {
		rect = rect.Union(g.rectPU)
	}
	return rect
}

func newCanvas(w, h int, mode PixelMode) draw.Image {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	if mode == ModeL {
		img := image.NewGray(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
		return img
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func pasteImage(eng *Engine, canvas draw.Image, g placementGeometry, rectMerge Rect, zoom float64, opt Options, rpt *Report, page int) error {
	extracted, err := eng.ExtractImage(g.img.XRef, rpt, page)
	if err != nil {
		return err
	}
	if opt.ExtractJPEG && extracted.Kind == KindJpeg {
		// The .jpg passthrough is written by convertOnePage in scheduler.go;
		// compositing still needs pixels, so fall through to decode below.
	}
	img, err := extracted.ToImage()
	if err != nil {
		return err
	}

	canvasH := canvas.Bounds().Dy()
	pasteX := int(math.Round((g.place.Matrix.E - rectMerge.X) * zoom))
	pasteYFromBottom := int(math.Round((g.place.Matrix.F - rectMerge.Y) * zoom))
	pasteY := canvasH - pasteYFromBottom - g.img.Height

	maskW, maskH := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	fullMask := rasterizeClipMask(maskW, maskH, g.place.Clip, zoom, rectMerge.X, rectMerge.Y)
	clipped := cropMask(fullMask, maskW, pasteX, pasteY, g.img.Width, g.img.Height)
	maskImg := packedMaskToImage(clipped, g.img.Width, g.img.Height)

	destRect := image.Rect(pasteX, pasteY, pasteX+g.img.Width, pasteY+g.img.Height)
	if extracted.Kind == KindMask {
		stencil, ok := img.(*image.Gray)
		if !ok {
			return errorf("pdf2img: mask extract did not decode to grayscale")
		}
		// Paint black only where the stencil marks an inked sample (Y == 0)
		// and the clip path leaves it visible; either side alone is not
		// enough, so the two masks are ANDed before the draw.
		inkMask := combineStencilWithClip(stencil, maskImg)
		draw.DrawMask(canvas, destRect, image.NewUniform(color.Black), image.Point{}, inkMask, image.Point{}, draw.Over)
		return nil
	}
	draw.DrawMask(canvas, destRect, img, image.Point{}, maskImg, image.Point{}, draw.Over)
	return nil
}

// combineStencilWithClip ANDs a decoded ImageMask stencil (Y == 0 marks an
// inked sample, Y == 255 marks a transparent one) with the clip-path alpha
// mask covering the same region, producing the paste mask pasteImage uses
// to paint black through both at once.
func combineStencilWithClip(stencil *image.Gray, clip *image.Alpha) *image.Alpha {
	b := stencil.Bounds()
	out := image.NewAlpha(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			inked := stencil.GrayAt(x, y).Y == 0
			visible := clip.AlphaAt(x, y).A != 0
			if inked && visible {
				out.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return out
}

func pasteOverlay(overlay *Engine, canvas draw.Image, pageIdx int, rectMerge Rect, zoom float64) error {
	// Always rasterized RGBA regardless of the canvas's chosen colour mode:
	// snapAlpha needs the real alpha channel, and draw.Draw below converts
	// colour through the canvas's own Set method when it is a Gray canvas.
	ov, err := overlay.RasterizePage(pageIdx, zoom, ModeRGB)
	if err != nil {
		return err
	}
	ov = snapAlpha(ov)
	pasteX := int(math.Round(-rectMerge.X * zoom))
	pasteY := int(math.Round(-rectMerge.Y * zoom))
	b := ov.Bounds()
	destRect := image.Rect(pasteX, pasteY, pasteX+b.Dx(), pasteY+b.Dy())
	draw.Draw(canvas, destRect, ov, b.Min, draw.Over)
	return nil
}

// snapAlpha thresholds a rendered overlay's alpha channel to fully opaque or
// fully transparent, avoiding grey anti-aliasing halos around text when
// pasted onto the extracted image.
func snapAlpha(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			alpha := uint8(255)
			if a>>8 <= 254 {
				alpha = 0
			}
			out.SetNRGBA(x, y, color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: alpha})
		}
	}
	return out
}

func packedMaskToImage(packed []byte, w, h int) *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, w, h))
	rowBytes := (w + 7) / 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*rowBytes + x/8
			if idx >= len(packed) {
				continue
			}
			if packed[idx]&(1<<uint(7-x%8)) != 0 {
				img.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return img
}

func rasterizeFullPage(eng *Engine, pageIdx int, rect Rect, zoom float64, mode PixelMode) (image.Image, error) {
	return eng.RasterizePage(pageIdx, zoom, mode)
}

func allMono(geoms []placementGeometry) bool {
	for _, g := range geoms {
		if g.advert != "1" {
			return false
		}
	}
	return true
}

func thresholdMono(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y > 127 {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

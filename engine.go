package pdf2img

import (
	"image"
	"image/draw"

	fitz "github.com/gen2brain/go-fitz"
)

// Engine is the thin façade over the underlying PDF access layer. It pairs
// two collaborators: this package's own raw object/xref reader
// (rawpdf.go), used for every xref-level operation the compositor needs
// (enumerate/delete image XObjects, read/replace streams, read dictionary
// keys), and github.com/gen2brain/go-fitz — a real, cgo-free binding to
// MuPDF — used for the one operation a regexp-based reader cannot do
// credibly: turning a page's vector/text content into pixels. See
// DESIGN.md for why the split falls exactly there.
type Engine struct {
	doc  *document
	fitz *fitz.Document
}

// Open parses raw PDF bytes into an Engine. The same bytes back both
// collaborators; they are never meant to drift out of sync within one
// Engine's lifetime (an Engine is read-only except through Bytes/UpdateStream,
// which act purely on the rawpdf side and require re-opening to observe).
func Open(data []byte) (*Engine, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	fd, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, errorf("%w: %v", ErrOpenFailed, err)
	}
	return &Engine{doc: doc, fitz: fd}, nil
}

// Close releases the underlying MuPDF document.
func (e *Engine) Close() error {
	if e.fitz != nil {
		return e.fitz.Close()
	}
	return nil
}

// PageCount returns the number of pages.
func (e *Engine) PageCount() int { return e.doc.PageCount() }

// PageRect returns a page's MediaBox in page units (1/72 inch, y-up).
func (e *Engine) PageRect(pageIdx int) (Rect, error) {
	if pageIdx < 0 || pageIdx >= e.doc.PageCount() {
		return Rect{}, ErrPageOutOfRange
	}
	return e.doc.pages[pageIdx].mediaBox, nil
}

// ImageXObject describes one image (or form) XObject referenced by a page,
// mirroring the PDF engine contract's get_images(full=true) tuple.
type ImageXObject struct {
	Name   string
	XRef   int
	Width  int
	Height int
}

// Images enumerates the image XObjects in a page's own resource dictionary.
// The order of the returned list is not defined: it follows Go map
// iteration, not resource or content-stream order. Form XObjects are not
// included, and images nested inside a form are not enumerated.
func (e *Engine) Images(pageIdx int) ([]ImageXObject, error) {
	if pageIdx < 0 || pageIdx >= e.doc.PageCount() {
		return nil, ErrPageOutOfRange
	}
	page := e.doc.pages[pageIdx]
	var out []ImageXObject
	for name, xref := range page.xobjects {
		obj, ok := e.doc.objects[xref]
		if !ok || obj.deleted {
			continue
		}
		if !isImageXObject(obj.dict) {
			continue
		}
		w, _ := dictInt(obj.dict, "/Width")
		h, _ := dictInt(obj.dict, "/Height")
		out = append(out, ImageXObject{Name: name, XRef: xref, Width: w, Height: h})
	}
	return out, nil
}

func isImageXObject(dict string) bool {
	return dictRawValue(dict, "/Subtype") == "/Image"
}

// ImageBBox recovers the placement matrix (and, incidentally, the clip
// path) for a named image on a page by running the content-stream
// mini-parser (C4) over the page's content stream.
func (e *Engine) ImageBBox(pageIdx int, name string) (Placement, error) {
	if pageIdx < 0 || pageIdx >= e.doc.PageCount() {
		return Placement{}, ErrPageOutOfRange
	}
	stream := e.doc.pageContentStream(pageIdx)
	placements := parsePlacements(stream)
	if p, ok := placements[name]; ok {
		return p, nil
	}
	return Placement{Name: name, Matrix: IdentityMatrix()}, nil
}

// DeleteImage removes an image XObject's resource entry from a page,
// leaving the "Do" that referenced it as a dangling no-op.
func (e *Engine) DeleteImage(pageIdx int, name string) {
	e.doc.deleteImage(pageIdx, name)
}

// XrefGetKey reads a dictionary key's raw value from an object.
func (e *Engine) XrefGetKey(xref int, key string) string {
	return e.doc.xrefGetKey(xref, key)
}

// XrefStream returns an object's decoded stream bytes.
func (e *Engine) XrefStream(xref int) []byte { return e.doc.xrefStream(xref) }

// XrefStreamRaw returns an object's stream bytes exactly as stored.
func (e *Engine) XrefStreamRaw(xref int) []byte { return e.doc.xrefStreamRaw(xref) }

// UpdateStream replaces an object's stream content.
func (e *Engine) UpdateStream(xref int, data []byte) error {
	return e.doc.updateStream(xref, data)
}

// ExtractImage classifies and extracts one image XObject (C3).
func (e *Engine) ExtractImage(xref int, rpt *Report, page int) (*ExtractedImage, error) {
	return e.doc.classifyAndExtract(xref, rpt, page)
}

// Bytes serializes the current (possibly stripped) document, with a
// garbage-collection pass dropping any objects deleted via DeleteImage.
func (e *Engine) Bytes(garbage int) ([]byte, error) {
	if garbage > 0 {
		e.doc.garbageCollect()
	}
	return e.doc.serialize()
}

// RasterizePage renders a page's full vector/text content to a pixel buffer
// at the given zoom (pixels per page unit; 1.0 == 72 DPI), in the requested
// colour mode. This is the one operation delegated entirely to the real
// MuPDF engine rather than hand-rolled, since producing font/path-accurate
// output is exactly what a regexp-based content-stream interpreter cannot do
// (see DESIGN.md). go-fitz always renders RGBA; mode==ModeL converts down
// to grayscale after the fact since the binding exposes no colorspace knob
// of its own.
func (e *Engine) RasterizePage(pageIdx int, zoom float64, mode PixelMode) (image.Image, error) {
	if pageIdx < 0 || pageIdx >= e.doc.PageCount() {
		return nil, ErrPageOutOfRange
	}
	dpi := 72.0 * zoom
	img, err := e.fitz.ImageDPI(pageIdx, dpi)
	if err != nil {
		return nil, errorf("pdf2img: rasterize page %d: %w", pageIdx, err)
	}
	if mode == ModeL {
		return toGray(img), nil
	}
	return img, nil
}

// toGray converts an arbitrary image to 8-bit grayscale via the standard
// draw.Draw colour-model conversion path.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

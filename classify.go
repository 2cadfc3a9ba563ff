package pdf2img

import (
	"bytes"
	"image"
	"image/jpeg"
	"regexp"
	"strconv"
	"strings"
)

// ImageKind discriminates the tagged ExtractedImage variant.
type ImageKind int

const (
	KindJpeg ImageKind = iota
	KindMask
	KindPixels
)

// PixelMode is the colour mode of a Pixels-variant ExtractedImage. CMYK is
// never a value here: every CMYK source is converted to RGB at extraction
// time (see classifyAndExtract steps 1, 2, and 7), matching the L ≼ RGB
// lattice the compositor's canvas works in.
type PixelMode string

const (
	ModeL   PixelMode = "L"
	ModeRGB PixelMode = "RGB"
)

// ExtractedImage is a tagged union: exactly one of its three shapes is
// populated, selected by Kind. Keeping it as one struct with a discriminant
// (rather than three structs behind an interface) keeps the classifier's
// decision table below a single flat switch.
type ExtractedImage struct {
	Kind ImageKind

	// KindJpeg
	JPEGBytes []byte

	// KindMask: 1 = transparent, 0 = inked. Packed MSB-first, one bit/pixel,
	// row length = (Width+7)/8 bytes.
	MaskBits          []byte
	Width, Height     int

	// KindPixels
	Mode   PixelMode
	Pixels []byte // row-major, 1/3/4 bytes per pixel depending on Mode
}

// advertiseColorSpace returns the colour-space letter code used for
// canvas-mode selection without doing the (possibly expensive) pixel decode.
func advertiseColorSpace(dict string) string {
	if dictBool(dict, "/ImageMask") {
		return "1"
	}
	if bpc, ok := dictInt(dict, "/BitsPerComponent"); ok && bpc == 1 {
		return "1"
	}
	cs := dictRawValue(dict, "/ColorSpace")
	if isIndirect(cs) {
		return "RGB"
	}
	switch {
	case strings.Contains(cs, "/DeviceCMYK"):
		return "RGB" // always pre-converted
	case strings.Contains(cs, "/DeviceGray"):
		return "L"
	case strings.Contains(cs, "/DeviceRGB"):
		return "RGB"
	default:
		return "RGB"
	}
}

// classifyAndExtract walks the image XObject's dictionary through a fixed
// nine-step decision order (DCT+indirect colour space, DCT+CMYK, plain DCT,
// stencil mask, 1bpp, indirect colour space, CMYK, gray, unknown) and
// returns the extracted pixels in whichever shape that step produces.
func (d *document) classifyAndExtract(objNum int, rpt *Report, page int) (*ExtractedImage, error) {
	obj, ok := d.objects[objNum]
	if !ok {
		return nil, errorf("pdf2img: no such image object %d", objNum)
	}
	dict := obj.dict
	filter := dictRawValue(dict, "/Filter")
	cs := dictRawValue(dict, "/ColorSpace")
	isDCT := strings.Contains(filter, "/DCTDecode")

	w, _ := dictInt(dict, "/Width")
	h, _ := dictInt(dict, "/Height")

	// Step 1: DCT + indirect colour space -> decode via pixmap, force RGB.
	if isDCT && isIndirect(cs) {
		return d.decodeJPEGAsRGB(obj.rawStream, w, h)
	}
	// Step 2: DCT + DeviceCMYK -> decode via pixmap, force RGB.
	if isDCT && strings.Contains(cs, "/DeviceCMYK") {
		return d.decodeJPEGAsRGB(obj.rawStream, w, h)
	}
	// Step 3: DCT otherwise -> pass through raw bytes untouched.
	if isDCT {
		return &ExtractedImage{Kind: KindJpeg, JPEGBytes: obj.rawStream}, nil
	}
	// Step 4: explicit stencil mask.
	if dictBool(dict, "/ImageMask") {
		return &ExtractedImage{Kind: KindMask, MaskBits: obj.stream, Width: w, Height: h}, nil
	}
	// Step 5: 1 bit per component -> treat as L, unpacked here to one byte
	// per pixel (0 or 255).
	if bpc, ok := dictInt(dict, "/BitsPerComponent"); ok && bpc == 1 {
		return &ExtractedImage{Kind: KindPixels, Mode: ModeL, Pixels: unpack1bpp(obj.stream, w), Width: w, Height: h}, nil
	}
	// Step 6: indirect colour space with no other special case -> the
	// decoded stream is taken as RGB samples and a colour-space warning is
	// recorded. The referenced colour space (Indexed, ICCBased, ...) is not
	// resolved or applied.
	if isIndirect(cs) {
		if rpt != nil {
			rpt.Warn(page, objNum, KindUnknownColorSpace, "indirect colour space without DCT, treating stream as RGB")
		}
		return &ExtractedImage{Kind: KindPixels, Mode: ModeRGB, Pixels: obj.stream, Width: w, Height: h}, nil
	}
	// Step 7: DeviceCMYK.
	if strings.Contains(cs, "/DeviceCMYK") {
		rgb := cmykBytesToRGB(obj.stream)
		return &ExtractedImage{Kind: KindPixels, Mode: ModeRGB, Pixels: rgb, Width: w, Height: h}, nil
	}
	// Step 8: DeviceGray.
	if strings.Contains(cs, "/DeviceGray") {
		return &ExtractedImage{Kind: KindPixels, Mode: ModeL, Pixels: obj.stream, Width: w, Height: h}, nil
	}
	// Step 9: everything else, warn and assume RGB.
	if rpt != nil {
		rpt.WarnErr(page, objNum, KindUnknownColorSpace, ErrUnsupportedColorSpace, "unrecognized colour space "+cs+", assuming RGB")
	}
	return &ExtractedImage{Kind: KindPixels, Mode: ModeRGB, Pixels: obj.stream, Width: w, Height: h}, nil
}

func (d *document) decodeJPEGAsRGB(raw []byte, w, h int) (*ExtractedImage, error) {
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errorf("pdf2img: jpeg decode: %w", err)
	}
	b := img.Bounds()
	if w == 0 {
		w = b.Dx()
	}
	if h == 0 {
		h = b.Dy()
	}
	rgb := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return &ExtractedImage{Kind: KindPixels, Mode: ModeRGB, Pixels: rgb, Width: w, Height: h}, nil
}

// cmykToRGB converts one CMYK sample (0-255 each) to RGB using the naive
// subtractive formula (r = 255 - min(c+k, 255), etc.), not true CMYK ICC
// conversion.
func cmykToRGB(c, m, y, k byte) (byte, byte, byte) {
	r := 255 - min255(int(c)+int(k), 255)
	g := 255 - min255(int(m)+int(k), 255)
	b := 255 - min255(int(y)+int(k), 255)
	return byte(r), byte(g), byte(b)
}

func min255(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func cmykBytesToRGB(data []byte) []byte {
	out := make([]byte, 0, (len(data)/4)*3)
	for i := 0; i+3 < len(data); i += 4 {
		r, g, b := cmykToRGB(data[i], data[i+1], data[i+2], data[i+3])
		out = append(out, r, g, b)
	}
	return out
}

// unpack1bpp expands a packed 1-bit-per-pixel row-major stream to one byte
// per pixel (0 or 255), matching the L colour mode used for masks and
// BitsPerComponent==1 images.
func unpack1bpp(data []byte, width int) []byte {
	if width <= 0 {
		return nil
	}
	rowBytes := (width + 7) / 8
	rows := len(data) / rowBytes
	out := make([]byte, 0, rows*width)
	for r := 0; r < rows; r++ {
		row := data[r*rowBytes : (r+1)*rowBytes]
		for x := 0; x < width; x++ {
			byteIdx := x / 8
			bit := 7 - uint(x%8)
			if byteIdx >= len(row) {
				out = append(out, 0)
				continue
			}
			if row[byteIdx]&(1<<bit) != 0 {
				out = append(out, 255)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

// ToImage converts an ExtractedImage to a standard image.Image for
// compositing, decoding JPEG bytes on demand.
func (e *ExtractedImage) ToImage() (image.Image, error) {
	switch e.Kind {
	case KindJpeg:
		return jpeg.Decode(bytes.NewReader(e.JPEGBytes))
	case KindMask:
		img := image.NewGray(image.Rect(0, 0, e.Width, e.Height))
		px := unpack1bpp(e.MaskBits, e.Width)
		copy(img.Pix, px)
		return img, nil
	case KindPixels:
		switch e.Mode {
		case ModeL:
			img := image.NewGray(image.Rect(0, 0, e.Width, e.Height))
			copy(img.Pix, e.Pixels)
			return img, nil
		default: // RGB (CMYK is always pre-converted before this point)
			img := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
			n := e.Width * e.Height
			for i := 0; i < n && i*3+2 < len(e.Pixels); i++ {
				img.Pix[i*4] = e.Pixels[i*3]
				img.Pix[i*4+1] = e.Pixels[i*3+1]
				img.Pix[i*4+2] = e.Pixels[i*3+2]
				img.Pix[i*4+3] = 255
			}
			return img, nil
		}
	}
	return nil, errorf("pdf2img: unknown extracted image kind")
}

// ---- dictionary attribute helpers, grounded on image_extract.go's
// extractIntValue/extractName/extractFilterValue ----

var cachedIntRe = map[string]*regexp.Regexp{}

func dictInt(dict, key string) (int, bool) {
	re, ok := cachedIntRe[key]
	if !ok {
		re = regexp.MustCompile(regexp.QuoteMeta(key) + `\s+(-?\d+)`)
		cachedIntRe[key] = re
	}
	m := re.FindStringSubmatch(dict)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	return n, err == nil
}

func dictBool(dict, key string) bool {
	re := regexp.MustCompile(regexp.QuoteMeta(key) + `\s+true`)
	return re.MatchString(dict)
}

// dictRawValue returns the raw text following key up to the next key or
// closing delimiter: a name ("/DCTDecode"), an indirect ref ("12 0 R"), or
// an array ("[/ASCII85Decode /DCTDecode]").
func dictRawValue(dict, key string) string {
	idx := strings.Index(dict, key)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimLeft(dict[idx+len(key):], " \t\r\n")
	if len(rest) == 0 {
		return ""
	}
	if rest[0] == '[' {
		end := strings.Index(rest, "]")
		if end < 0 {
			return rest
		}
		return rest[:end+1]
	}
	if rest[0] == '/' {
		end := strings.IndexAny(rest[1:], " \t\r\n/>")
		if end < 0 {
			return rest
		}
		return rest[:end+1]
	}
	end := strings.IndexAny(rest, "/\n>")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end])
}

func isIndirect(value string) bool {
	m := regexp.MustCompile(`^\d+\s+\d+\s+R$`)
	return m.MatchString(strings.TrimSpace(value))
}

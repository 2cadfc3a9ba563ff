package pdf2img

import (
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/tiff"
)

// WebPEncoder and JXLEncoder are named-interface boundaries: no usable
// pure-Go encoder for either format was available, so the dispatch/coercion
// logic below is fully implemented against these interfaces while the
// actual bitstream writer remains pluggable. The zero-value encoders always
// report ErrEncoderUnavailable.
type WebPEncoder interface {
	Encode(w io.Writer, img image.Image) error
}

type JXLEncoder interface {
	Encode(w io.Writer, img image.Image) error
}

type unavailableEncoder struct{}

func (unavailableEncoder) Encode(io.Writer, image.Image) error { return ErrEncoderUnavailable }

// DefaultWebPEncoder and DefaultJXLEncoder are swappable so a real encoder
// can be wired in later without touching the dispatch logic.
var (
	DefaultWebPEncoder WebPEncoder = unavailableEncoder{}
	DefaultJXLEncoder  JXLEncoder  = unavailableEncoder{}
)

const webpMaxDimension = 16383

// EncodeTo writes img to path in the requested format, applying the
// per-format mode coercions below.
func EncodeTo(img image.Image, format string, path string, opt Options, rpt *Report, page int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case "png":
		return png.Encode(f, coerceCMYKFree(img))
	case "tiff":
		return tiff.Encode(f, coerceCMYKFree(img), &tiff.Options{Compression: tiffCompression(opt.TIFFCompression)})
	case "webp":
		b := img.Bounds()
		if b.Dx() > webpMaxDimension || b.Dy() > webpMaxDimension {
			rpt.Warn(page, 0, KindOversizeForWebP, "dimensions exceed WebP's 16383px limit, writing PNG instead")
			f.Close()
			os.Remove(path)
			pngFile, err := os.Create(strings.TrimSuffix(path, ".webp") + ".png")
			if err != nil {
				return err
			}
			defer pngFile.Close()
			return png.Encode(pngFile, coerceCMYKFree(img))
		}
		if err := DefaultWebPEncoder.Encode(f, coerceCMYKFree(img)); err != nil {
			rpt.Warn(page, 0, KindGeometryWarning, "webp encoder unavailable, writing PNG instead")
			f.Close()
			f, err = os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return png.Encode(f, coerceCMYKFree(img))
		}
		return nil
	case "jxl":
		coerced := coerce1bppToL(coerceCMYKFree(img))
		if err := DefaultJXLEncoder.Encode(f, coerced); err != nil {
			rpt.Warn(page, 0, KindGeometryWarning, "jpeg-xl encoder unavailable, writing PNG instead")
			f.Close()
			f, err = os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return png.Encode(f, coerced)
		}
		return nil
	default:
		return errorf("pdf2img: unknown output format %q", format)
	}
}

func tiffCompression(scheme string) tiff.CompressionType {
	switch scheme {
	case "deflate", "zip":
		return tiff.Deflate
	case "packbits":
		return tiff.PackBits
	case "ccitt":
		return tiff.CCITTGroup4
	default:
		return tiff.Uncompressed
	}
}

// coerceCMYKFree converts a CMYK image to RGB. Neither the compositor's
// canvas nor ExtractedImage.ToImage ever produces CMYK; the coercion is
// applied defensively at the encoder boundary for any *image.CMYK passed in.
func coerceCMYKFree(img image.Image) image.Image {
	if _, ok := img.(*image.CMYK); !ok {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// coerce1bppToL expands a 1-bpp (Gray with only 0/255 values originating
// from the mono-threshold path) image for encoders that cannot accept it,
// by simply passing through: image.Gray is already an 8-bit-per-pixel
// representation here, so the "coercion" is a no-op unless a true packed
// 1-bpp image type is introduced later.
func coerce1bppToL(img image.Image) image.Image { return img }

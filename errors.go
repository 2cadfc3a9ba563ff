package pdf2img

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors for the taxonomy this package reports. Callers should use
// errors.Is against these, since every layer wraps them with fmt.Errorf's
// %w rather than replacing them.
var (
	// ErrOpenFailed means the PDF bytes could not be parsed at all.
	ErrOpenFailed = errors.New("pdf2img: PDF could not be opened")

	// ErrEncryptedPDF means the document's trailer carries an /Encrypt
	// entry; decryption is not supported.
	ErrEncryptedPDF = errors.New("pdf2img: PDF is encrypted")

	// ErrPageOutOfRange means a page index was outside [0, PageCount).
	ErrPageOutOfRange = errors.New("pdf2img: page index out of range")

	// ErrWorkerCrashed means a scheduler worker's initializer failed after
	// the pool had already committed pages to it; the whole file is aborted
	// rather than limping forward with a degraded worker.
	ErrWorkerCrashed = errors.New("pdf2img: worker crashed, aborting file")

	// ErrEncoderUnavailable is returned by encoders for formats this
	// repository exposes only as a named interface boundary (WebP, JPEG XL)
	// because no usable Go library implements them; see DESIGN.md.
	ErrEncoderUnavailable = errors.New("pdf2img: encoder not available for this format")

	// ErrUnsupportedColorSpace is attached to a Warning rather than
	// returned, since an unrecognized color space degrades to an RGB guess
	// instead of aborting the page; callers can still match it via
	// errors.Is against Warning.Err.
	ErrUnsupportedColorSpace = errors.New("pdf2img: unrecognized image color space")
)

// PageError wraps a single page's conversion failure with enough context to
// report per-page failures without aborting the batch.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

func wrapPage(page int, err error) error {
	if err == nil {
		return nil
	}
	return &PageError{Page: page, Err: err}
}

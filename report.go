package pdf2img

import (
	"fmt"
	"os"
	"sync"
)

// WarningKind classifies a non-fatal diagnostic recorded during conversion.
// Warnings never abort a page; only GeometryWarning, consulted by the
// compositor's render-image fallback, changes behavior.
type WarningKind int

const (
	KindGeometryWarning WarningKind = iota
	KindUnknownColorSpace
	KindOversizeForWebP
	KindConfigParse
)

func (k WarningKind) String() string {
	switch k {
	case KindGeometryWarning:
		return "geometry"
	case KindUnknownColorSpace:
		return "colorspace"
	case KindOversizeForWebP:
		return "oversize"
	case KindConfigParse:
		return "config"
	default:
		return "warning"
	}
}

// Warning is one recorded diagnostic. Err is set for warnings raised against
// one of the package's sentinel errors, so callers can match it with
// errors.Is instead of parsing Message.
type Warning struct {
	Kind    WarningKind
	Page    int
	XRef    int
	Message string
	Err     error
}

// Report accumulates warnings and page failures for one conversion run. It
// is safe for concurrent use by the page scheduler's workers.
type Report struct {
	mu       sync.Mutex
	warnings []Warning
	failed   []*PageError
}

// NewReport returns an empty Report.
func NewReport() *Report { return &Report{} }

// Warn records a warning. Safe to call from any worker goroutine.
func (r *Report) Warn(page, xref int, kind WarningKind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Warning{Kind: kind, Page: page, XRef: xref, Message: message})
}

// WarnErr records a warning carrying a sentinel error callers can later
// match with errors.Is against Warning.Err.
func (r *Report) WarnErr(page, xref int, kind WarningKind, err error, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Warning{Kind: kind, Page: page, XRef: xref, Message: message, Err: err})
}

// FailPage records that a page could not be converted, wrapping err with
// its page index; this never aborts the batch.
func (r *Report) FailPage(page int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, wrapPage(page, err).(*PageError))
}

// HasGeometryWarning reports whether any geometry warning was recorded for
// the given page, which is what the compositor's render-image fallback
// consults.
func (r *Report) HasGeometryWarning(page int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.warnings {
		if w.Page == page && w.Kind == KindGeometryWarning {
			return true
		}
	}
	return false
}

// FailedPages returns the page failures recorded so far, each wrapping the
// page index with the error that caused it.
func (r *Report) FailedPages() []*PageError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*PageError(nil), r.failed...)
}

// WriteSummary prints warnings and failed pages to w (typically os.Stderr).
// No structured logging library is introduced here; see DESIGN.md.
func (r *Report) WriteSummary(w *os.File) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, warn := range r.warnings {
		fmt.Fprintf(w, "warning: page %d xref %d: [%s] %s\n", warn.Page, warn.XRef, warn.Kind, warn.Message)
	}
	for _, f := range r.failed {
		fmt.Fprintf(w, "%v\n", f)
	}
}

package pdf2img

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Scheduler is the page-level parallel worker pool. Each worker opens its
// own pair of Document handles (original + overlay) once and reuses them
// across every page index it is handed.
type Scheduler struct {
	Processes int
}

// CancelFlag is the shared cancellation signal polled at each worker's loop
// entry. Workers already mid-page run to completion.
type CancelFlag struct{ v atomic.Bool }

func (c *CancelFlag) Set()        { c.v.Store(true) }
func (c *CancelFlag) IsSet() bool { return c.v.Load() }

// Run converts every page of data, writing one output file per page into
// outDir, and returns a Report of warnings and failed pages. A non-nil
// error means the whole file was aborted (ErrOpenFailed, ErrEncryptedPDF or
// ErrWorkerCrashed, possibly wrapped); individual page failures are
// recorded in the Report instead.
func (s *Scheduler) Run(data []byte, outDir string, opt Options, cancel *CancelFlag) (*Report, error) {
	opt = opt.defaults()
	rpt := NewReport()

	probe, err := Open(data)
	if err != nil {
		return rpt, err
	}
	pageCount := probe.PageCount()
	probe.Close()

	jobs := make(chan int, pageCount)
	for i := 0; i < pageCount; i++ {
		jobs <- i
	}
	close(jobs)

	workerCount := s.Processes
	if opt.Processes > 0 {
		workerCount = opt.Processes
	}
	if workerCount > pageCount {
		workerCount = pageCount
	}
	if workerCount < 1 {
		workerCount = 1
	}

	crashed := make(chan error, workerCount)
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(data, jobs, outDir, opt, rpt, cancel, crashed)
		}()
	}
	wg.Wait()

	select {
	case err := <-crashed:
		return rpt, err
	default:
		return rpt, nil
	}
}

// worker is the per-goroutine initializer + page loop. The original and
// overlay documents are opened exactly once here and never touched by any
// other goroutine.
func (s *Scheduler) worker(data []byte, jobs <-chan int, outDir string, opt Options, rpt *Report, cancel *CancelFlag, crashed chan<- error) {
	eng, err := Open(data)
	if err != nil {
		crashed <- fmt.Errorf("%w: %v", ErrWorkerCrashed, err)
		return
	}
	defer eng.Close()

	var overlay *Engine
	if !opt.OriginalOnly {
		overlay, err = BuildOverlay(data)
		if err != nil {
			crashed <- fmt.Errorf("%w: %v", ErrWorkerCrashed, err)
			return
		}
		defer overlay.Close()
	}

	for pageIdx := range jobs {
		if cancel != nil && cancel.IsSet() {
			return
		}
		if len(crashed) > 0 {
			return // another worker crashed: the file is aborted
		}
		if err := convertOnePage(eng, overlay, pageIdx, outDir, opt, rpt); err != nil {
			rpt.FailPage(pageIdx, err)
		}
	}
}

func convertOnePage(eng, overlay *Engine, pageIdx int, outDir string, opt Options, rpt *Report) error {
	if opt.OnlyExtract {
		return extractPageImagesOnly(eng, pageIdx, outDir, rpt)
	}
	img, err := CompositePage(eng, overlay, pageIdx, opt, rpt)
	if err != nil {
		return err
	}
	if opt.ExtractJPEG {
		images, _ := eng.Images(pageIdx)
		for _, im := range images {
			extracted, err := eng.ExtractImage(im.XRef, nil, pageIdx)
			if err != nil || extracted.Kind != KindJpeg {
				continue
			}
			path := filepath.Join(outDir, fmt.Sprintf("%03d-%d.jpg", pageIdx, im.XRef))
			if err := writeRawFile(path, extracted.JPEGBytes); err != nil {
				rpt.Warn(pageIdx, im.XRef, KindUnknownColorSpace, "write failed: "+err.Error())
			}
		}
	}
	if img == nil {
		return nil
	}
	format := chooseFormat(opt)
	path := outputPath(outDir, pageIdx, format)
	return EncodeTo(img, format, path, opt, rpt, pageIdx)
}

// extractPageImagesOnly implements the "only-extract" mode: bypass the
// compositor entirely and write each raw extract individually, named
// "NNN-<xref>.<ext>".
func extractPageImagesOnly(eng *Engine, pageIdx int, outDir string, rpt *Report) error {
	images, err := eng.Images(pageIdx)
	if err != nil {
		return err
	}
	for _, im := range images {
		extracted, err := eng.ExtractImage(im.XRef, rpt, pageIdx)
		if err != nil {
			rpt.Warn(pageIdx, im.XRef, KindUnknownColorSpace, "extract failed: "+err.Error())
			continue
		}
		ext := extractedExt(extracted)
		path := filepath.Join(outDir, fmt.Sprintf("%03d-%d.%s", pageIdx, im.XRef, ext))
		if extracted.Kind == KindJpeg {
			if err := writeRawFile(path, extracted.JPEGBytes); err != nil {
				rpt.Warn(pageIdx, im.XRef, KindUnknownColorSpace, "write failed: "+err.Error())
			}
			continue
		}
		img, err := extracted.ToImage()
		if err != nil {
			rpt.Warn(pageIdx, im.XRef, KindUnknownColorSpace, "decode failed: "+err.Error())
			continue
		}
		if err := EncodeTo(img, "png", path, Options{}, rpt, pageIdx); err != nil {
			rpt.Warn(pageIdx, im.XRef, KindUnknownColorSpace, "encode failed: "+err.Error())
		}
	}
	return nil
}

func extractedExt(e *ExtractedImage) string {
	if e.Kind == KindJpeg {
		return "jpg"
	}
	return "png"
}

func chooseFormat(opt Options) string {
	switch {
	case opt.SaveJXL:
		return "jxl"
	case opt.SaveTIFF:
		return "tiff"
	case opt.SavePNG:
		return "png"
	default:
		return "webp"
	}
}

func outputPath(outDir string, pageIdx int, format string) string {
	return filepath.Join(outDir, fmt.Sprintf("%03d.%s", pageIdx, format))
}

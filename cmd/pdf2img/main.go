// Command pdf2img converts every page of one or more PDF files into a
// single raster image per page, preferring to reuse each page's embedded
// image at native resolution instead of re-sampling it.
//
// With no images on a page it falls back to rasterising the whole page at
// 600 DPI. A graphical file-picker front-end is out of scope here (see
// SPEC_FULL.md); running with no arguments simply prints usage.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mamome2021/pdf2img"
)

func main() {
	processes := flag.Int("processes", 0, "worker count (0 = use config file or default)")
	onlyExtract := flag.Bool("only-extract", false, "write raw extracted images instead of composited pages")
	renderImage := flag.Bool("render-image", false, "fall back to full-page rasterisation whenever a geometry warning is recorded")
	noCrop := flag.Bool("no-crop", false, "extend the canvas to include every image instead of cropping to the page")
	originalOnly := flag.Bool("original-only", false, "skip pasting the vector/text overlay")
	extractJPEG := flag.Bool("extract-jpeg", false, "also write a .jpg passthrough of any DCT-encoded image")
	preferMono := flag.Bool("prefer-mono", false, "threshold the final image to 1-bpp when every source image was already monochrome")
	saveJXL := flag.Bool("save-jxl", false, "encode pages as JPEG XL")
	savePNG := flag.Bool("save-png", false, "encode pages as PNG")
	saveTIFF := flag.Bool("save-tiff", false, "encode pages as TIFF")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pdf2img <file>...")
		return
	}

	rpt := pdf2img.NewReport()
	opt := pdf2img.LoadConfigFile(pdf2img.ConfigPath(), rpt)
	if *processes > 0 {
		opt.Processes = *processes
	}
	opt.OnlyExtract = opt.OnlyExtract || *onlyExtract
	opt.RenderImage = opt.RenderImage || *renderImage
	opt.NoCrop = opt.NoCrop || *noCrop
	opt.OriginalOnly = opt.OriginalOnly || *originalOnly
	opt.ExtractJPEG = opt.ExtractJPEG || *extractJPEG
	opt.PreferMono = opt.PreferMono || *preferMono
	opt.SaveJXL = opt.SaveJXL || *saveJXL
	opt.SavePNG = opt.SavePNG || *savePNG
	opt.SaveTIFF = opt.SaveTIFF || *saveTIFF

	cancel := &pdf2img.CancelFlag{}
	installSignalHandler(cancel)

	sched := &pdf2img.Scheduler{Processes: opt.Processes}
	for _, arg := range flag.Args() {
		if err := processArg(sched, arg, opt, cancel); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
		}
	}
}

func processArg(sched *pdf2img.Scheduler, arg string, opt pdf2img.Options, cancel *pdf2img.CancelFlag) error {
	info, err := os.Stat(arg)
	if err != nil {
		return err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(arg)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				continue
			}
			if err := convertFile(sched, filepath.Join(arg, e.Name()), opt, cancel); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", e.Name(), err)
			}
		}
		return nil
	}
	return convertFile(sched, arg, opt, cancel)
}

func convertFile(sched *pdf2img.Scheduler, path string, opt pdf2img.Options, cancel *pdf2img.CancelFlag) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", pdf2img.ErrOpenFailed, err)
	}
	outDir := pdf2img.OutputDirFor(path)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	rpt, err := sched.Run(data, outDir, opt, cancel)
	rpt.WriteSummary(os.Stderr)
	return err
}

package pdf2img

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath and EnvOutputDir are the environment variables the CLI
// driver consults.
const (
	EnvConfigPath = "PDF2IMG_CONFIG"
	EnvOutputDir  = "PDF2IMG_OUTPUT"
)

// DefaultOptions returns the compositor/encoder defaults before any config
// file or CLI flag is applied.
func DefaultOptions() Options {
	return Options{Processes: 2}
}

// LoadConfigFile parses the whitespace-delimited option file at path,
// starting from DefaultOptions. A missing file is not an error: it is
// reported as a warning and defaults are kept.
func LoadConfigFile(path string, rpt *Report) Options {
	opt := DefaultOptions()
	f, err := os.Open(path)
	if err != nil {
		if rpt != nil {
			rpt.Warn(-1, 0, KindConfigParse, "config file "+path+" not found, using defaults")
		}
		return opt
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		applyConfigLine(&opt, fields, rpt)
	}
	return opt
}

func applyConfigLine(opt *Options, fields []string, rpt *Report) {
	switch fields[0] {
	case "processes":
		if len(fields) < 2 {
			return
		}
		if n := atoiSafe(fields[1]); n > 0 {
			opt.Processes = n
		}
	case "only-extract":
		opt.OnlyExtract = true
	case "render-image":
		opt.RenderImage = true
	case "no-crop":
		opt.NoCrop = true
	case "original-only":
		opt.OriginalOnly = true
	case "extract-jpeg":
		opt.ExtractJPEG = true
	case "prefer-mono":
		opt.PreferMono = true
	case "save-jxl":
		opt.SaveJXL = true
	case "save-png":
		opt.SavePNG = true
	case "save-tiff":
		opt.SaveTIFF = true
		if len(fields) >= 2 {
			opt.TIFFCompression = fields[1]
		}
	default:
		// Unknown lines are ignored.
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ConfigPath resolves the config file location: the PDF2IMG_CONFIG
// environment variable if set, else "pdf2img.conf" next to the running
// executable. If the executable's own path cannot be resolved, it falls
// back to the current working directory.
func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return "pdf2img.conf"
	}
	return filepath.Join(filepath.Dir(exe), "pdf2img.conf")
}

// OutputDirFor computes a PDF file's output directory: "<file>-img" (the
// full file name, extension included, e.g. "doc.pdf-img") next to the input
// file, or under the PDF2IMG_OUTPUT parent directory when that environment
// variable is set.
func OutputDirFor(pdfPath string) string {
	name := filepath.Base(pdfPath) + "-img"
	if parent := os.Getenv(EnvOutputDir); parent != "" {
		return filepath.Join(parent, name)
	}
	return filepath.Join(filepath.Dir(pdfPath), name)
}

package pdf2img

import "os"

// writeRawFile writes bytes to path, used for the JPEG-passthrough half of
// extract-only mode where no re-encoding is wanted.
func writeRawFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

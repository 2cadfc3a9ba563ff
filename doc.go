// Package pdf2img converts PDF pages to raster images while preserving the
// resolution of embedded photographs and scans: instead of resampling a
// page wholesale, it extracts each embedded image at native resolution and
// composites the page's vector/text overlay on top at a matching scale,
// falling back to full-page rasterisation at 600 DPI when a page has no
// embedded image.
//
package pdf2img

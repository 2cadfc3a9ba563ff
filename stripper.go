package pdf2img

import "bytes"

// BuildOverlay constructs the overlay document: a copy of the original PDF
// with every image XObject reference deleted from every page, and the
// path-fill operators preceding each page's first image's "Do" replaced
// with a no-op, so that rasterising it yields the page's vector/text
// content with nothing painted where images used to be.
//
// When a page's first image is referenced from a Form XObject rather than
// the page's own content stream, only the page's own stream is rewritten;
// fills inside the form itself are left alone.
func BuildOverlay(data []byte) (*Engine, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}

	for pageIdx, page := range doc.pages {
		images := make(map[string]int)
		for name, xref := range page.xobjects {
			if obj, ok := doc.objects[xref]; ok && isImageXObject(obj.dict) {
				images[name] = xref
			}
		}
		if len(images) == 0 {
			continue
		}
		if len(page.contents) > 0 {
			contentXref := page.contents[0]
			stream := doc.objectStream(contentXref)
			if first := firstImageDoName(stream, images); first != "" {
				doc.updateStream(contentXref, suppressFillsBeforeDo(stream, first))
			}
		}
		for name, xref := range images {
			doc.deleteImage(pageIdx, name)
			doc.markDeleted(xref)
		}
	}

	doc.garbageCollect()
	data2, err := doc.serialize()
	if err != nil {
		return nil, err
	}
	return Open(data2)
}

// firstImageDoName returns the name of the first image XObject invoked via
// "Do" in stream order, or "" if none of the candidate names appear.
func firstImageDoName(stream []byte, candidates map[string]int) string {
	toks := tokenizeContentStream(stream)
	for i, tok := range toks {
		if tok != "Do" || i == 0 {
			continue
		}
		name := toks[i-1]
		if _, ok := candidates[name]; ok {
			return name
		}
	}
	return ""
}

// suppressFillsBeforeDo replaces "f"/"f*" operator lines with "n" in the
// portion of stream preceding "\n<name> Do\n": only the prefix before the
// first image's own Do is touched, and only whole fill-operator lines are
// rewritten.
func suppressFillsBeforeDo(stream []byte, name string) []byte {
	marker := []byte("\n" + name + " Do\n")
	idx := bytes.Index(stream, marker)
	if idx < 0 {
		return stream
	}
	prefix := stream[:idx+1]
	suffix := stream[idx+1:]
	prefix = bytes.ReplaceAll(prefix, []byte("\nf\n"), []byte("\nn\n"))
	prefix = bytes.ReplaceAll(prefix, []byte("\nf*\n"), []byte("\nn\n"))
	out := make([]byte, 0, len(prefix)+len(suffix))
	out = append(out, prefix...)
	out = append(out, suffix...)
	return out
}

package pdf2img

import (
	"errors"
	"strings"
	"testing"
)

const samplePDF = `%PDF-1.4
1 0 obj
<< /Type /Catalog /Pages 2 0 R >>
endobj
2 0 obj
<< /Type /Pages /Kids [3 0 R] /Count 1 >>
endobj
3 0 obj
<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /XObject << /Im0 5 0 R >> >> >>
endobj
4 0 obj
<< /Length 20 >>
stream
q 1 0 0 1 0 0 cm Q
endstream
endobj
5 0 obj
<< /Type /XObject /Subtype /Image /Width 10 /Height 10 /Filter /DCTDecode /Length 3 >>
stream
abc
endstream
endobj
trailer
<< /Root 1 0 R >>
`

func TestParseDocumentFindsPageTree(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	if doc.PageCount() != 1 {
		t.Fatalf("PageCount = %d, want 1", doc.PageCount())
	}
	page := doc.pages[0]
	if page.mediaBox != (Rect{X: 0, Y: 0, W: 612, H: 792}) {
		t.Errorf("unexpected MediaBox: %+v", page.mediaBox)
	}
	if page.xobjects["/Im0"] != 5 {
		t.Errorf("expected /Im0 to resolve to object 5, got %+v", page.xobjects)
	}
}

func TestParseDocumentRejectsEmptyInput(t *testing.T) {
	if _, err := parseDocument([]byte("%PDF-1.4\n")); err == nil {
		t.Fatalf("expected an error for a PDF with no objects")
	}
}

func TestParseDocumentRejectsEncrypted(t *testing.T) {
	encrypted := strings.Replace(samplePDF, "<< /Root 1 0 R >>", "<< /Root 1 0 R /Encrypt 6 0 R >>", 1)
	_, err := parseDocument([]byte(encrypted))
	if !errors.Is(err, ErrEncryptedPDF) {
		t.Fatalf("expected ErrEncryptedPDF, got %v", err)
	}
}

func TestIsEncryptedNoTrailer(t *testing.T) {
	if isEncrypted([]byte("no trailer here")) {
		t.Fatal("expected false when there is no trailer dictionary at all")
	}
}

func TestPageContentStream(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	stream := doc.pageContentStream(0)
	if !strings.Contains(string(stream), "cm") {
		t.Errorf("expected content stream to contain the cm operator, got %q", stream)
	}
}

func TestXrefGetKey(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	if got := doc.xrefGetKey(5, "/Filter"); got != "/DCTDecode" {
		t.Errorf("xrefGetKey(/Filter) = %q, want /DCTDecode", got)
	}
	if got := doc.xrefGetKey(5, "/Width"); got != "10" {
		t.Errorf("xrefGetKey(/Width) = %q, want 10", got)
	}
}

func TestUpdateStreamFixesLength(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	newContent := []byte("0 0 0 RG")
	if err := doc.updateStream(4, newContent); err != nil {
		t.Fatalf("updateStream: %v", err)
	}
	if string(doc.objects[4].rawStream) != string(newContent) {
		t.Errorf("rawStream not updated: %q", doc.objects[4].rawStream)
	}
	if got := doc.xrefGetKey(4, "/Length"); got != "8" {
		t.Errorf("expected /Length to be fixed up to 8, got %q", got)
	}
}

func TestDeleteImageAndGarbageCollect(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	doc.deleteImage(0, "/Im0")
	if _, ok := doc.pages[0].xobjects["/Im0"]; ok {
		t.Fatalf("expected /Im0 to be removed from the page's resource map")
	}
	doc.markDeleted(5)
	doc.garbageCollect()
	if _, ok := doc.objects[5]; ok {
		t.Errorf("expected object 5 to be dropped after garbageCollect")
	}
	for _, n := range doc.order {
		if n == 5 {
			t.Errorf("expected object 5 to be removed from d.order")
		}
	}
}

func TestDictSpanHandlesNestedDict(t *testing.T) {
	got := dictSpan([]byte("<< /A 1 /Nested << /B 2 >> /C 3 >> trailing"))
	want := "<< /A 1 /Nested << /B 2 >> /C 3 >>"
	if got != want {
		t.Errorf("dictSpan = %q, want %q", got, want)
	}
}

func TestRefListAfterParsesKidsArray(t *testing.T) {
	got := refListAfter("<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] >>", "/Kids")
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("refListAfter = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("refListAfter[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWalkPageTreeVisitsInDocumentOrder(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	pages := doc.walkPageTree(2)
	if len(pages) != 1 || pages[0].objNum != 3 {
		t.Fatalf("walkPageTree(2) = %+v, want a single page node for object 3", pages)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	doc, err := parseDocument([]byte(samplePDF))
	if err != nil {
		t.Fatalf("parseDocument: %v", err)
	}
	out, err := doc.serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	reparsed, err := parseDocument(out)
	if err != nil {
		t.Fatalf("parseDocument(serialized): %v", err)
	}
	if reparsed.PageCount() != 1 {
		t.Errorf("reparsed PageCount = %d, want 1", reparsed.PageCount())
	}
	if reparsed.xrefGetKey(5, "/Filter") != "/DCTDecode" {
		t.Errorf("reparsed object lost its /Filter key")
	}
}

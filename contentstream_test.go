package pdf2img

import "testing"

func TestParsePlacementsSimple(t *testing.T) {
	stream := []byte("q\n200 0 0 300 10 20 cm\n/Im0 Do\nQ\n")
	placements := parsePlacements(stream)
	p, ok := placements["/Im0"]
	if !ok {
		t.Fatalf("expected a placement for /Im0")
	}
	want := Matrix{A: 200, D: 300, E: 10, F: 20}
	if p.Matrix != want {
		t.Errorf("got matrix %+v, want %+v", p.Matrix, want)
	}
	if p.Clip != nil {
		t.Errorf("expected no clip, got %v", p.Clip)
	}
}

func TestParsePlacementsWithClip(t *testing.T) {
	stream := []byte("q\n0 0 100 100 re\nW n\n50 0 0 50 0 0 cm\n/Im1 Do\nQ\n")
	placements := parsePlacements(stream)
	p, ok := placements["/Im1"]
	if !ok {
		t.Fatalf("expected a placement for /Im1")
	}
	if len(p.Clip) != 1 || p.Clip[0].Op != OpRect {
		t.Fatalf("expected a single rect clip command, got %+v", p.Clip)
	}
	if p.Matrix.A != 50 || p.Matrix.D != 50 {
		t.Errorf("unexpected matrix %+v", p.Matrix)
	}
}

func TestParsePlacementsNoMatrixDefaultsIdentity(t *testing.T) {
	stream := []byte("q\n/Im2 Do\nQ\n")
	p := parsePlacements(stream)["/Im2"]
	if !p.Matrix.IsIdentity() {
		t.Errorf("expected identity matrix fallback, got %+v", p.Matrix)
	}
}

func TestParsePlacementsResetsAcrossQBlocks(t *testing.T) {
	stream := []byte("q\n0 0 50 50 re\nW n\n10 0 0 10 0 0 cm\n/ImA Do\nQ\n" +
		"q\n20 0 0 20 5 5 cm\n/ImB Do\nQ\n")
	placements := parsePlacements(stream)
	if placements["/ImB"].Clip != nil {
		t.Errorf("clip from the first q block leaked into the second: %+v", placements["/ImB"].Clip)
	}
	if placements["/ImA"].Matrix.A != 10 {
		t.Errorf("unexpected matrix for /ImA: %+v", placements["/ImA"].Matrix)
	}
}

func TestTokenizeContentStreamSkipsComments(t *testing.T) {
	toks := tokenizeContentStream([]byte("1 0 0 1 0 0 cm % a comment\n/Im0 Do"))
	want := []string{"1", "0", "0", "1", "0", "0", "cm", "/Im0", "Do"}
	if len(toks) != len(want) {
		t.Fatalf("got %v tokens, want %v: %v", len(toks), len(want), toks)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, toks[i], want[i])
		}
	}
}

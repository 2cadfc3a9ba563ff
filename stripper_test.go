package pdf2img

import "testing"

func TestFirstImageDoName(t *testing.T) {
	stream := []byte("q\n1 0 0 1 0 0 cm\n/Im1 Do\nQ\nq\n1 0 0 1 0 0 cm\n/Im2 Do\nQ\n")
	candidates := map[string]int{"/Im1": 5, "/Im2": 7}
	if got := firstImageDoName(stream, candidates); got != "/Im1" {
		t.Errorf("firstImageDoName = %q, want /Im1", got)
	}
}

func TestFirstImageDoNameNoMatch(t *testing.T) {
	stream := []byte("q\n1 0 0 1 0 0 cm\n/Other Do\nQ\n")
	candidates := map[string]int{"/Im1": 5}
	if got := firstImageDoName(stream, candidates); got != "" {
		t.Errorf("firstImageDoName = %q, want empty", got)
	}
}

func TestSuppressFillsBeforeDo(t *testing.T) {
	stream := []byte("0 0 0 rg\n0 0 100 100 re\nf\n/Im1 Do\n0 0 0 rg\n0 0 50 50 re\nf\n")
	out := suppressFillsBeforeDo(stream, "/Im1")
	got := string(out)
	want := "0 0 0 rg\n0 0 100 100 re\nn\n/Im1 Do\n0 0 0 rg\n0 0 50 50 re\nf\n"
	if got != want {
		t.Errorf("suppressFillsBeforeDo:\n got  %q\n want %q", got, want)
	}
}

func TestSuppressFillsBeforeDoNoMarker(t *testing.T) {
	stream := []byte("0 0 0 rg\nf\n")
	out := suppressFillsBeforeDo(stream, "/Im1")
	if string(out) != string(stream) {
		t.Errorf("expected stream unchanged when the marker is absent")
	}
}

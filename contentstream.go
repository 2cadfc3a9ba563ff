package pdf2img

import "strconv"

// PathOp identifies one clip-path construction operator.
type PathOp byte

const (
	OpMove   PathOp = 'm' // x y m
	OpLine   PathOp = 'l' // x y l
	OpCurve  PathOp = 'c' // x1 y1 x2 y2 x3 y3 c
	OpVCurve PathOp = 'v' // x2 y2 x3 y3 v (current point is first control)
	OpYCurve PathOp = 'y' // x1 y1 x3 y3 y (final point is last control)
	OpRect   PathOp = 'r' // x y w h re
	OpClose  PathOp = 'h' // h
)

// PathCmd is one operator of a recovered clip path, in page units.
type PathCmd struct {
	Op   PathOp
	Args []float64
}

// Placement is what the content-stream mini-parser recovers for one image
// reference: the transform matrix active at its "Do" and the clip path (if
// any) immediately preceding it. A nil Clip means "no clip", i.e. the whole
// image is visible.
type Placement struct {
	Name   string
	Matrix Matrix
	Clip   []PathCmd
}

// parsePlacements walks a content stream's tokens, tracking the most recent
// "cm" operands and the path-construction operators accumulated since the
// last clip-or-paint operator, within the current q/Q nesting level. Each
// bare name token immediately followed by "Do" records a Placement using
// whatever matrix and clip state is active at that point.
//
// State resets at every "q" and "Q": real PDF writers overwhelmingly emit
// one image per "q ... cm ... W n ... /Im Do Q" block, so this does not
// attempt to maintain a nested CTM stack — only the last `cm` seen before
// the image's own Do is needed.
func parsePlacements(stream []byte) map[string]Placement {
	toks := tokenizeContentStream(stream)
	out := make(map[string]Placement)

	var lastCM Matrix
	haveCM := false
	var pathBuf []PathCmd
	var pendingClip []PathCmd
	clipArmed := false
	var nums []float64

	reset := func() {
		haveCM = false
		pendingClip = nil
		pathBuf = nil
		clipArmed = false
	}
	finishPath := func() {
		if clipArmed {
			pendingClip = pathBuf
			clipArmed = false
		}
		pathBuf = nil
	}

	for i, tok := range toks {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			nums = append(nums, f)
			continue
		}
		switch tok {
		case "q", "Q":
			reset()
		case "cm":
			if len(nums) >= 6 {
				n := nums[len(nums)-6:]
				lastCM = Matrix{A: n[0], B: n[1], C: n[2], D: n[3], E: n[4], F: n[5]}
				haveCM = true
			}
		case "m":
			pathBuf = appendPath(pathBuf, OpMove, nums, 2)
		case "l":
			pathBuf = appendPath(pathBuf, OpLine, nums, 2)
		case "c":
			pathBuf = appendPath(pathBuf, OpCurve, nums, 6)
		case "v":
			pathBuf = appendPath(pathBuf, OpVCurve, nums, 4)
		case "y":
			pathBuf = appendPath(pathBuf, OpYCurve, nums, 4)
		case "re":
			pathBuf = appendPath(pathBuf, OpRect, nums, 4)
		case "h":
			pathBuf = append(pathBuf, PathCmd{Op: OpClose})
		case "W", "W*":
			clipArmed = true
		case "n", "f", "f*", "S", "B", "B*", "s", "b", "b*":
			finishPath()
		case "Do":
			if i > 0 {
				if name := toks[i-1]; len(name) > 0 && name[0] == '/' {
					p := Placement{Name: name, Clip: pendingClip}
					if haveCM {
						p.Matrix = lastCM
					} else {
						p.Matrix = IdentityMatrix()
					}
					out[name] = p
				}
			}
		}
		if tok != "Do" {
			nums = nil
		}
	}
	return out
}

func appendPath(buf []PathCmd, op PathOp, nums []float64, n int) []PathCmd {
	if len(nums) < n {
		return buf
	}
	args := append([]float64(nil), nums[len(nums)-n:]...)
	return append(buf, PathCmd{Op: op, Args: args})
}

// tokenizeContentStream splits PDF content-stream bytes into whitespace and
// delimiter-separated tokens: operators, numeric operands, and name tokens
// ("/Name"), skipping comments and treating string, hex-string and
// dictionary literals as opaque single tokens. Array brackets are emitted as
// their own "[" and "]" tokens, with the array's elements tokenized
// individually between them.
func tokenizeContentStream(data []byte) []string {
	var tokens []string
	i, n := 0, len(data)
	for i < n {
		c := data[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '%':
			for i < n && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			depth := 1
			start := i
			i++
			for i < n && depth > 0 {
				if data[i] == '\\' {
					i += 2
					continue
				}
				if data[i] == '(' {
					depth++
				} else if data[i] == ')' {
					depth--
				}
				i++
			}
			tokens = append(tokens, string(data[start:i]))
		case c == '<' && i+1 < n && data[i+1] == '<':
			depth := 0
			start := i
			for i < n {
				if data[i] == '<' && i+1 < n && data[i+1] == '<' {
					depth++
					i += 2
					continue
				}
				if data[i] == '>' && i+1 < n && data[i+1] == '>' {
					depth--
					i += 2
					if depth == 0 {
						break
					}
					continue
				}
				i++
			}
			tokens = append(tokens, string(data[start:i]))
		case c == '<':
			start := i
			i++
			for i < n && data[i] != '>' {
				i++
			}
			if i < n {
				i++
			}
			tokens = append(tokens, string(data[start:i]))
		case c == '[' || c == ']':
			tokens = append(tokens, string(c))
			i++
		default:
			start := i
			for i < n {
				d := data[i]
				if d == ' ' || d == '\t' || d == '\r' || d == '\n' ||
					d == '(' || d == ')' || d == '<' || d == '>' ||
					d == '[' || d == ']' || d == '%' {
					break
				}
				i++
			}
			if i > start {
				tokens = append(tokens, string(data[start:i]))
			} else {
				i++
			}
		}
	}
	return tokens
}

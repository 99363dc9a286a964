package textpart

import (
	"bytes"
)

// The fixed test signature. Messages carrying it get a deterministic reject
// verdict, which is how the reject path is verified end to end.
const gtubePattern = "XJS*C4JDBQADN1.NSBN3*2IDNEN*GTUBE-STANDARD-ANTI-UBE-TEST-EMAIL*C.34X"

// Only parts larger than the pattern and at most this size are searched.
const gtubeMaxSize = 4 * 1024

// Gtube reports whether the part's content carries the test signature. The
// check runs on rendered/decoded content, before normalization.
func Gtube(p *TextPart) bool {
	if len(p.Content) <= len(gtubePattern) || len(p.Content) > gtubeMaxSize {
		return false
	}
	return bytes.Contains(p.Content, []byte(gtubePattern))
}

// GtubePattern returns the test signature, for composing test messages.
func GtubePattern() string {
	return gtubePattern
}

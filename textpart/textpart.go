// Package textpart analyzes the text-bearing parts of a message: script and
// language detection, newline/markup normalization with a position-mapped
// exception list, word tokenization and hashing, the gtube test-signature
// gate and the weighted edit distance used for near-duplicate detection
// between alternative parts.
package textpart

import (
	"sort"

	"github.com/mailscan/mailscan/message"
)

// ExceptionKind tells why a byte range in normalized content is special.
type ExceptionKind int

const (
	ExceptionNewline ExceptionKind = iota // Zero-length removal point of a stripped line ending.
	ExceptionURL                          // Span of a URL or anchor text from HTML rendering.
	ExceptionTag                          // Span of text inserted for markup, e.g. img alt text.
)

// Exception is a byte range in a part's normalized content that downstream
// consumers must skip or treat specially. HTML-origin spans start out in
// rendered-content coordinates; Normalize remaps them, so after normalization
// all offsets are in stripped-buffer coordinates and the merged list is
// sorted by offset.
type Exception struct {
	Offset int
	Length int
	Kind   ExceptionKind
}

// TextPart is the analyzed representation of one text-bearing MIME part. It
// is created during part selection, then mutated in place by the successive
// pipeline stages, and lives for the duration of the scan task.
type TextPart struct {
	Part *message.Part // Source MIME part.

	Content    []byte      // Rendered (HTML) or charset-converted (plain) content.
	Stripped   []byte      // Content with line endings removed.
	Exceptions []Exception // Sorted by offset after Normalize.
	NumLines   int

	Script   string // Detected dominant script, e.g. "Latin". Empty if not detected.
	LangCode string // ISO code for the script's language, e.g. "en". May be empty.
	Language string // Language name used for stemmer selection, e.g. "english".

	HTML     bool // Part was text/html or text/xhtml.
	UTF8     bool // Content is valid UTF-8.
	Empty    bool // No content after decoding/rendering.
	Balanced bool // HTML markup was balanced.

	Words  [][]byte // Normalized word tokens, including exception placeholders.
	Hashes []uint64 // Ordered token hashes; placeholders are not hashed.
}

// sortExceptions establishes the total order required by every consumer that
// walks exceptions monotonically. Stable, so producers' internal order of
// equal offsets is kept.
func sortExceptions(l []Exception) {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Offset < l[j].Offset
	})
}

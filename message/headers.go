package message

import (
	"bytes"
	"strings"
)

// Header is a single message header field. Value is the raw value with
// continuation lines unfolded, leading/trailing whitespace trimmed, and no
// encoded-word decoding applied.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of header fields, in the order they appear in
// the message. Order matters for Received headers, where the topmost header
// is the hop closest to the receiving system.
type Headers []Header

// ParseHeaders scans the header block at the start of buf and returns the
// ordered fields plus the offset where the body starts. It is lenient: a
// missing empty separator line means the whole buffer is headers, and
// malformed lines are skipped.
func ParseHeaders(buf []byte) (Headers, int) {
	var h Headers
	off := 0
	for off < len(buf) {
		end := bytes.IndexByte(buf[off:], '\n')
		var line []byte
		if end < 0 {
			line = buf[off:]
			end = len(buf)
		} else {
			line = buf[off : off+end]
			end = off + end + 1
		}
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			// End of headers, body follows.
			off = end
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of the previous field.
			if len(h) > 0 {
				h[len(h)-1].Value += " " + string(bytes.TrimSpace(line))
			}
			off = end
			continue
		}
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || len(bytes.TrimSpace(name)) == 0 {
			// Not a header line, skip it.
			off = end
			continue
		}
		h = append(h, Header{string(bytes.TrimSpace(name)), string(bytes.TrimSpace(value))})
		off = end
	}
	return h, off
}

// Values returns the raw values for the named header, in message order. The
// lookup is case-insensitive. With strong set, names are re-checked for exact
// case-sensitive equality, filtering out fields that only match by fold.
func (h Headers) Values(name string, strong bool) []string {
	var l []string
	for _, f := range h {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		if strong && f.Name != name {
			continue
		}
		l = append(l, f.Value)
	}
	return l
}

// Value returns the first raw value for the named header, or the empty string.
func (h Headers) Value(name string) string {
	l := h.Values(name, false)
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

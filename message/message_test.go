package message

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mailscan/mailscan/mlog"
)

var tlog = mlog.New("message")

func tcheck(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %s", msg, err)
	}
}

func TestParseHeaders(t *testing.T) {
	buf := []byte("Received: from a\r\nReceived: from b\r\n\tby c\r\nSubject: test\r\nnot a header line\r\n\r\nbody")
	h, off := ParseHeaders(buf)
	if len(h) != 3 {
		t.Fatalf("got %d headers, want 3", len(h))
	}
	if h[0].Name != "Received" || h[0].Value != "from a" {
		t.Fatalf("header 0: %+v", h[0])
	}
	if h[1].Value != "from b by c" {
		t.Fatalf("continuation not unfolded: %q", h[1].Value)
	}
	if h[2].Name != "Subject" || h[2].Value != "test" {
		t.Fatalf("header 2: %+v", h[2])
	}
	if got := string(buf[off:]); got != "body" {
		t.Fatalf("body offset wrong, got %q", got)
	}
}

func TestParseHeadersNoBody(t *testing.T) {
	h, off := ParseHeaders([]byte("Subject: only headers\r\nX-Test: 1"))
	if len(h) != 2 {
		t.Fatalf("got %d headers, want 2", len(h))
	}
	if off != len("Subject: only headers\r\nX-Test: 1") {
		t.Fatalf("offset %d", off)
	}
}

func TestHeaderValues(t *testing.T) {
	h := Headers{
		{"Received", "one"},
		{"RECEIVED", "two"},
		{"Received", "three"},
	}
	if l := h.Values("Received", false); len(l) != 3 || l[0] != "one" || l[2] != "three" {
		t.Fatalf("folded lookup: %v", l)
	}
	if l := h.Values("Received", true); len(l) != 2 || l[0] != "one" || l[1] != "three" {
		t.Fatalf("strong lookup: %v", l)
	}
	if v := h.Value("received"); v != "one" {
		t.Fatalf("first value: %q", v)
	}
	if v := h.Value("X-Absent"); v != "" {
		t.Fatalf("absent header: %q", v)
	}
}

func TestParseSimple(t *testing.T) {
	raw := "Message-ID: <abc@example.org>\r\nSubject: hello\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nhello world\r\n"
	m, err := Parse(tlog, []byte(raw))
	tcheck(t, err, "parse")
	if len(m.Parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(m.Parts))
	}
	p := m.Parts[0]
	if p.MediaType != "TEXT" || p.MediaSubType != "PLAIN" {
		t.Fatalf("media type %s/%s", p.MediaType, p.MediaSubType)
	}
	if !p.IsText() || p.IsAttachment() {
		t.Fatalf("classification wrong: text %v attachment %v", p.IsText(), p.IsAttachment())
	}
	if !bytes.Contains(p.Data, []byte("hello world")) {
		t.Fatalf("body: %q", p.Data)
	}
	if !p.Converted {
		t.Fatalf("utf-8 part not marked converted")
	}
	if m.MessageID() != "abc@example.org" {
		t.Fatalf("message-id: %q", m.MessageID())
	}
	if m.Subject() != "hello" {
		t.Fatalf("subject: %q", m.Subject())
	}
}

func TestParseMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"Content-Type: multipart/alternative; boundary=x",
		"",
		"--x",
		"Content-Type: text/plain",
		"",
		"plain body",
		"--x",
		"Content-Type: text/html",
		"",
		"<p>html body</p>",
		"--x--",
		"",
	}, "\r\n")
	m, err := Parse(tlog, []byte(raw))
	tcheck(t, err, "parse")
	if len(m.Parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(m.Parts))
	}
	root := m.Parts[0]
	if root.MediaType != "MULTIPART" || root.MediaSubType != "ALTERNATIVE" {
		t.Fatalf("root type %s/%s", root.MediaType, root.MediaSubType)
	}
	if root.Parent != nil {
		t.Fatalf("root has parent")
	}
	if m.Parts[1].Parent != root || m.Parts[2].Parent != root {
		t.Fatalf("parent relations wrong")
	}
	if m.Parts[1].MediaSubType != "PLAIN" || m.Parts[2].MediaSubType != "HTML" {
		t.Fatalf("subpart order wrong: %s, %s", m.Parts[1].MediaSubType, m.Parts[2].MediaSubType)
	}
	if m.Parts[1].Digest == m.Parts[2].Digest {
		t.Fatalf("distinct bodies share a digest")
	}
}

func TestParseBase64(t *testing.T) {
	raw := "Content-Type: text/plain\r\nContent-Transfer-Encoding: base64\r\n\r\naGVsbG8gd29ybGQ=\r\n"
	m, err := Parse(tlog, []byte(raw))
	tcheck(t, err, "parse")
	if got := string(m.Parts[0].Data); got != "hello world" {
		t.Fatalf("transfer decoding: %q", got)
	}
}

func TestParseUnknownCharset(t *testing.T) {
	raw := "Content-Type: text/plain; charset=x-no-such-charset\r\n\r\nraw bytes\r\n"
	m, err := Parse(tlog, []byte(raw))
	tcheck(t, err, "parse")
	if m.Parts[0].Converted {
		t.Fatalf("unknown charset part marked converted")
	}
	if !bytes.Contains(m.Parts[0].Data, []byte("raw bytes")) {
		t.Fatalf("body: %q", m.Parts[0].Data)
	}
}

func TestParseMbox(t *testing.T) {
	raw := "From sender@example.org Mon Oct  5 10:00:00 2020\r\nSubject: boxed\r\n\r\nbody\r\n"
	m, err := Parse(tlog, []byte(raw))
	tcheck(t, err, "parse")
	if m.Subject() != "boxed" {
		t.Fatalf("mbox From line not skipped, subject %q", m.Subject())
	}
}

func TestParseBad(t *testing.T) {
	// Parse errors, when they occur, wrap ErrBadMessage so callers can decide
	// on the raw-input fallback. The parser is lenient, so also accept a
	// successful parse here.
	raw := strings.Join([]string{
		"Content-Type: multipart/mixed; boundary=x",
		"",
		"--x",
		"Content-Type: text/plain",
		"",
		"never terminated",
	}, "\r\n")
	m, err := Parse(tlog, []byte(raw))
	if err != nil {
		if !errors.Is(err, ErrBadMessage) {
			t.Fatalf("error not wrapping ErrBadMessage: %v", err)
		}
		return
	}
	if len(m.Parts) == 0 {
		t.Fatalf("no error but also no parts")
	}
}

func TestFromData(t *testing.T) {
	data := []byte("Subject: raw\r\n\r\nnot a mime message")
	m := FromData(tlog, data)
	if len(m.Parts) != 1 {
		t.Fatalf("got %d parts", len(m.Parts))
	}
	p := m.Parts[0]
	if p.MediaType != "TEXT" || p.MediaSubType != "PLAIN" {
		t.Fatalf("media type %s/%s", p.MediaType, p.MediaSubType)
	}
	if !bytes.Equal(p.Data, data) {
		t.Fatalf("data changed")
	}
	if m.Headers.Value("Subject") != "raw" {
		t.Fatalf("headers not scanned")
	}
}

func TestMessageIDDefault(t *testing.T) {
	m := &Message{}
	if m.MessageID() != "undef" {
		t.Fatalf("got %q, want undef", m.MessageID())
	}
}

func TestSubjectEncoded(t *testing.T) {
	m := &Message{Headers: Headers{{"Subject", "=?utf-8?q?caf=C3=A9?="}}}
	if m.Subject() != "café" {
		t.Fatalf("got %q", m.Subject())
	}
}

func TestDecodeCharset(t *testing.T) {
	// 0xC1 is Cyrillic small a in KOI8-R.
	out, ok := DecodeCharset(tlog, "koi8-r", []byte{0xC1})
	if !ok || string(out) != "а" {
		t.Fatalf("koi8-r: %q ok %v", out, ok)
	}

	out, ok = DecodeCharset(tlog, "utf-8", []byte("plain"))
	if !ok || string(out) != "plain" {
		t.Fatalf("utf-8 passthrough: %q ok %v", out, ok)
	}

	bad := []byte{0xff, 0xfe}
	out, ok = DecodeCharset(tlog, "", bad)
	if ok || !bytes.Equal(out, bad) {
		t.Fatalf("invalid utf-8 accepted: %q ok %v", out, ok)
	}

	out, ok = DecodeCharset(tlog, "x-no-such-charset", []byte("kept"))
	if ok || string(out) != "kept" {
		t.Fatalf("unknown charset: %q ok %v", out, ok)
	}
	if !utf8.Valid(out) {
		t.Fatalf("ascii input no longer valid")
	}
}

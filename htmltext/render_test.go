package htmltext

import (
	"strings"
	"testing"

	"github.com/mailscan/mailscan/textpart"
)

func TestRenderText(t *testing.T) {
	r := Render([]byte("<html><body><p>first line</p><p>second line</p></body></html>"))
	s := string(r.Text)
	if !strings.Contains(s, "first line") || !strings.Contains(s, "second line") {
		t.Fatalf("text: %q", s)
	}
	if !strings.Contains(s, "first line\n") {
		t.Fatalf("no line break after paragraph: %q", s)
	}
	if !r.Balanced {
		t.Fatalf("well-formed html marked unbalanced")
	}
}

func TestRenderSkipsScriptStyle(t *testing.T) {
	r := Render([]byte("<style>p{color:red}</style><script>alert(1)</script><p>visible</p>"))
	s := string(r.Text)
	if strings.Contains(s, "color") || strings.Contains(s, "alert") {
		t.Fatalf("script/style content rendered: %q", s)
	}
	if !strings.Contains(s, "visible") {
		t.Fatalf("text: %q", s)
	}
}

func TestRenderLinks(t *testing.T) {
	r := Render([]byte(`<a href="https://example.org/x">click here</a> and <a href="mailto:user@example.org">mail us</a>`))
	if len(r.URLs) != 1 || r.URLs[0] != "https://example.org/x" {
		t.Fatalf("urls: %v", r.URLs)
	}
	if len(r.Addresses) != 1 || r.Addresses[0] != "user@example.org" {
		t.Fatalf("addresses: %v", r.Addresses)
	}

	// Anchor text gets a URL exception span covering it exactly.
	var urlspans []textpart.Exception
	for _, e := range r.Exceptions {
		if e.Kind == textpart.ExceptionURL {
			urlspans = append(urlspans, e)
		}
	}
	if len(urlspans) != 2 {
		t.Fatalf("url exceptions: %v", r.Exceptions)
	}
	got := string(r.Text[urlspans[0].Offset : urlspans[0].Offset+urlspans[0].Length])
	if got != "click here" {
		t.Fatalf("span text: %q", got)
	}
}

func TestRenderImgAlt(t *testing.T) {
	r := Render([]byte(`before <img src="x.png" alt="a kitten"> after`))
	if !strings.Contains(string(r.Text), "a kitten") {
		t.Fatalf("alt text not rendered: %q", r.Text)
	}
	found := false
	for _, e := range r.Exceptions {
		if e.Kind == textpart.ExceptionTag && string(r.Text[e.Offset:e.Offset+e.Length]) == "a kitten" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no tag exception for alt text: %v", r.Exceptions)
	}
}

func TestRenderExceptionsAscending(t *testing.T) {
	r := Render([]byte(`<a href="https://a.example">one</a> mid <img alt="pic"> end <a href="https://b.example">two</a>`))
	for i := 1; i < len(r.Exceptions); i++ {
		if r.Exceptions[i].Offset < r.Exceptions[i-1].Offset {
			t.Fatalf("exceptions not ascending: %v", r.Exceptions)
		}
	}
	if len(r.Exceptions) != 3 {
		t.Fatalf("got %d exceptions, want 3", len(r.Exceptions))
	}
}

func TestRenderUnbalanced(t *testing.T) {
	if r := Render([]byte("<div><p>text</div>")); r.Balanced {
		t.Fatalf("mismatched close not detected")
	}
	if r := Render([]byte("<div>text")); r.Balanced {
		t.Fatalf("unclosed element not detected")
	}
	if r := Render([]byte("text</p>")); r.Balanced {
		t.Fatalf("stray close not detected")
	}
	// Empty elements need no close.
	if r := Render([]byte("a<br>b<hr>c")); !r.Balanced {
		t.Fatalf("empty elements counted as unclosed")
	}
}

func TestRenderSelfClosingAnchor(t *testing.T) {
	// A self-closing anchor has no close tag and must not leave an anchor
	// open over the rest of the document.
	r := Render([]byte(`<a href="https://a.example"/>plain tail`))
	if !r.Balanced {
		t.Fatalf("self-closing anchor reported unbalanced")
	}
	if len(r.URLs) != 1 || r.URLs[0] != "https://a.example" {
		t.Fatalf("urls: %v", r.URLs)
	}
	for _, e := range r.Exceptions {
		if e.Kind == textpart.ExceptionURL {
			t.Fatalf("text after self-closing anchor marked as anchor text: %v", r.Exceptions)
		}
	}
	if !strings.Contains(string(r.Text), "plain tail") {
		t.Fatalf("text: %q", r.Text)
	}
}

func TestRenderGarbage(t *testing.T) {
	// Tokenization never fails, broken markup just ends the render.
	r := Render([]byte(`<<<>>><a href=">`))
	_ = r.Text
}

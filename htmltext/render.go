// Package htmltext renders HTML to plain text for analysis. Besides the text
// it returns exception spans for text that originated in markup (anchor
// text, img alt text), the URLs and mail addresses found in links, and
// whether the markup was balanced.
package htmltext

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/mailscan/mailscan/textpart"
)

// Result of rendering one HTML part.
type Result struct {
	Text       []byte
	Exceptions []textpart.Exception // URL/tag spans, in Text coordinates, ascending offset.
	URLs       []string
	Addresses  []string
	Balanced   bool
}

// Elements whose text content is not rendered.
var skipContent = map[string]bool{
	"script": true,
	"style":  true,
	"svg":    true,
}

// Empty elements, https://developer.mozilla.org/en-US/docs/Glossary/Empty_element
var emptyElement = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Elements that end a line of rendered text.
var lineBreaking = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true,
}

// Render tokenizes the HTML in buf and produces the plain-text rendering.
// It never fails: tokenization errors end the rendering with whatever text
// was produced so far.
func Render(buf []byte) Result {
	// todo: handle elements that implicitly close open elements, e.g. a new <p> closing a previous unclosed <p>. For now the tag stream is taken at face value.
	t := html.NewTokenizer(bytes.NewReader(buf))
	r := Result{Balanced: true}
	var text []byte
	var tagStack []string
	anchorDepth := 0

	appendText := func(b []byte, kind textpart.ExceptionKind, marked bool) {
		if len(b) == 0 {
			return
		}
		if marked {
			r.Exceptions = append(r.Exceptions, textpart.Exception{Offset: len(text), Length: len(b), Kind: kind})
		}
		text = append(text, b...)
	}

loop:
	for {
		tt := t.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF for well-formed input, anything else also just ends the render.
			break loop

		case html.TextToken:
			if len(tagStack) > 0 && skipContent[tagStack[len(tagStack)-1]] {
				continue
			}
			appendText(t.Text(), textpart.ExceptionURL, anchorDepth > 0)

		case html.StartTagToken, html.SelfClosingTagToken:
			tagBuf, moreAttr := t.TagName()
			tag := string(tagBuf)

			switch tag {
			case "a":
				var key, val []byte
				for moreAttr {
					key, val, moreAttr = t.TagAttr()
					if string(key) == "href" && len(val) > 0 {
						u := string(val)
						if addr, ok := strings.CutPrefix(u, "mailto:"); ok {
							r.Addresses = append(r.Addresses, addr)
						} else {
							r.URLs = append(r.URLs, u)
						}
					}
				}
			case "img":
				var key, val []byte
				for moreAttr {
					key, val, moreAttr = t.TagAttr()
					if string(key) == "alt" && len(val) > 0 {
						appendText(val, textpart.ExceptionTag, true)
					}
				}
			}

			if lineBreaking[tag] {
				text = append(text, '\n')
			}
			// Self-closing and empty elements leave nothing to close.
			if emptyElement[tag] || tt == html.SelfClosingTagToken {
				continue
			}
			if tag == "a" {
				anchorDepth++
			}
			tagStack = append(tagStack, tag)

		case html.EndTagToken:
			tagBuf, _ := t.TagName()
			tag := string(tagBuf)
			if tag == "a" && anchorDepth > 0 {
				anchorDepth--
			}
			if lineBreaking[tag] {
				text = append(text, '\n')
			}
			if len(tagStack) == 0 || tagStack[len(tagStack)-1] != tag {
				r.Balanced = false
			}
			if len(tagStack) > 0 {
				tagStack = tagStack[:len(tagStack)-1]
			}

		case html.CommentToken, html.DoctypeToken:
		}
	}

	if len(tagStack) > 0 {
		r.Balanced = false
	}
	r.Text = text
	return r
}

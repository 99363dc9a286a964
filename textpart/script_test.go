package textpart

import (
	"testing"
)

func TestDetectScriptLatin(t *testing.T) {
	p := &TextPart{UTF8: true, Content: []byte("The quick brown fox jumps over the lazy dog")}
	DetectScript(p)
	if p.Script != "Latin" || p.LangCode != "en" || p.Language != "english" {
		t.Fatalf("got script %q lang %q/%q", p.Script, p.LangCode, p.Language)
	}
}

func TestDetectScriptCyrillic(t *testing.T) {
	p := &TextPart{UTF8: true, Content: []byte("Привет мир, это письмо на русском языке")}
	DetectScript(p)
	if p.Script != "Cyrillic" || p.LangCode != "ru" || p.Language != "russian" {
		t.Fatalf("got script %q lang %q/%q", p.Script, p.LangCode, p.Language)
	}
}

func TestDetectScriptDominant(t *testing.T) {
	// A few latin characters mixed into mostly greek text.
	p := &TextPart{UTF8: true, Content: []byte("ab αβγδεζηθικλμν")}
	DetectScript(p)
	if p.Script != "Greek" {
		t.Fatalf("got script %q, want Greek", p.Script)
	}
}

func TestDetectScriptTie(t *testing.T) {
	// Equal counts resolve to the earliest table entry: Cyrillic before
	// Latin.
	p := &TextPart{UTF8: true, Content: []byte("ab яю")}
	DetectScript(p)
	if p.Script != "Cyrillic" {
		t.Fatalf("got script %q, want Cyrillic (ties resolve to lowest ordinal)", p.Script)
	}
}

func TestDetectScriptNonUTF8(t *testing.T) {
	p := &TextPart{UTF8: false, Content: []byte("latin text but flagged raw")}
	DetectScript(p)
	if p.Script != "" || p.Language != "" {
		t.Fatalf("script detected on non-utf8 part: %q/%q", p.Script, p.Language)
	}
}

func TestDetectScriptDecodeFailureStops(t *testing.T) {
	// Invalid UTF-8 mid-stream ends the scan with whatever was sampled.
	content := append([]byte("abc"), 0xff, 0xfe)
	content = append(content, []byte("αβγδεζηθ")...)
	p := &TextPart{UTF8: true, Content: content}
	DetectScript(p)
	if p.Script != "Latin" {
		t.Fatalf("got script %q, want Latin from the sampled prefix", p.Script)
	}
}

func TestDetectScriptEmpty(t *testing.T) {
	// No alphabetic characters selects the first entry, Common, which maps
	// to english with no ISO code.
	p := &TextPart{UTF8: true, Content: []byte("123 456 !!!")}
	DetectScript(p)
	if p.Script != "Common" || p.Language != "english" || p.LangCode != "" {
		t.Fatalf("got %q/%q/%q", p.Script, p.LangCode, p.Language)
	}
}

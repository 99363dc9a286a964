package textpart

import (
	"unicode"
	"unicode/utf8"
)

// maxScriptChars is how many alphabetic characters from the start of content
// are sampled for script detection.
const maxScriptChars = 32

type scriptLang struct {
	code   string // ISO language code, may be empty.
	name   string // Language name, used for stemmer selection.
	script string
	table  *unicode.RangeTable
}

// scriptTable maps a Unicode script to the language most commonly written in
// it. The order is fixed: ties between equally-counted scripts resolve to the
// earliest entry. Immutable, safe for concurrent reads.
var scriptTable = []scriptLang{
	{"", "english", "Common", unicode.Common},
	{"", "", "Inherited", unicode.Inherited},
	{"ar", "arabic", "Arabic", unicode.Arabic},
	{"hy", "armenian", "Armenian", unicode.Armenian},
	{"bn", "bengali", "Bengali", unicode.Bengali},
	{"", "", "Bopomofo", unicode.Bopomofo},
	{"chr", "", "Cherokee", unicode.Cherokee},
	{"cop", "", "Coptic", unicode.Coptic},
	{"ru", "russian", "Cyrillic", unicode.Cyrillic},
	// Deseret was used to write English.
	{"", "", "Deseret", unicode.Deseret},
	{"hi", "", "Devanagari", unicode.Devanagari},
	{"am", "", "Ethiopic", unicode.Ethiopic},
	{"ka", "", "Georgian", unicode.Georgian},
	{"", "", "Gothic", unicode.Gothic},
	{"el", "greek", "Greek", unicode.Greek},
	{"gu", "", "Gujarati", unicode.Gujarati},
	{"pa", "", "Gurmukhi", unicode.Gurmukhi},
	{"han", "chinese", "Han", unicode.Han},
	{"ko", "", "Hangul", unicode.Hangul},
	{"he", "hebrew", "Hebrew", unicode.Hebrew},
	{"ja", "", "Hiragana", unicode.Hiragana},
	{"kn", "", "Kannada", unicode.Kannada},
	{"ja", "", "Katakana", unicode.Katakana},
	{"km", "", "Khmer", unicode.Khmer},
	{"lo", "", "Lao", unicode.Lao},
	{"en", "english", "Latin", unicode.Latin},
	{"ml", "", "Malayalam", unicode.Malayalam},
	{"mn", "", "Mongolian", unicode.Mongolian},
	{"my", "", "Myanmar", unicode.Myanmar},
	// Ogham was used to write old Irish.
	{"", "", "Ogham", unicode.Ogham},
	{"", "", "Old_Italic", unicode.Old_Italic},
	{"or", "", "Oriya", unicode.Oriya},
	{"", "", "Runic", unicode.Runic},
	{"si", "", "Sinhala", unicode.Sinhala},
	{"syr", "", "Syriac", unicode.Syriac},
	{"ta", "", "Tamil", unicode.Tamil},
	{"te", "", "Telugu", unicode.Telugu},
	{"dv", "", "Thaana", unicode.Thaana},
	{"th", "", "Thai", unicode.Thai},
	{"bo", "", "Tibetan", unicode.Tibetan},
	{"iu", "", "Canadian_Aboriginal", unicode.Canadian_Aboriginal},
	{"", "", "Yi", unicode.Yi},
	{"tl", "", "Tagalog", unicode.Tagalog},
	// Philippine scripts.
	{"hnn", "", "Hanunoo", unicode.Hanunoo},
	{"bku", "", "Buhid", unicode.Buhid},
	{"tbw", "", "Tagbanwa", unicode.Tagbanwa},
	{"", "", "Braille", unicode.Braille},
	{"", "", "Cypriot", unicode.Cypriot},
	{"", "", "Limbu", unicode.Limbu},
	// Used for Somali in the past.
	{"", "", "Osmanya", unicode.Osmanya},
	// The Shavian alphabet was designed for English.
	{"", "", "Shavian", unicode.Shavian},
	{"", "", "Linear_B", unicode.Linear_B},
	{"", "", "Tai_Le", unicode.Tai_Le},
	{"uga", "", "Ugaritic", unicode.Ugaritic},
	{"", "", "New_Tai_Lue", unicode.New_Tai_Lue},
	{"bug", "", "Buginese", unicode.Buginese},
	{"", "", "Glagolitic", unicode.Glagolitic},
	// Used for Berber, but Arabic script is more common.
	{"", "", "Tifinagh", unicode.Tifinagh},
	{"syl", "", "Syloti_Nagri", unicode.Syloti_Nagri},
	{"peo", "", "Old_Persian", unicode.Old_Persian},
	{"", "", "Kharoshthi", unicode.Kharoshthi},
	{"", "", "Balinese", unicode.Balinese},
	{"", "", "Cuneiform", unicode.Cuneiform},
	{"", "", "Phoenician", unicode.Phoenician},
	{"", "", "Phags_Pa", unicode.Phags_Pa},
	{"nqo", "", "Nko", unicode.Nko},
}

// DetectScript samples the leading alphabetic characters of the part's
// content, tallies their Unicode scripts, and maps the dominant script to a
// language. Non-UTF-8 parts are skipped: language stays unset and downstream
// stemming is disabled.
func DetectScript(p *TextPart) {
	if !p.UTF8 {
		return
	}
	counts := make([]int, len(scriptTable))
	content := p.Content
	processed := 0
	for len(content) > 0 && processed < maxScriptChars {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size <= 1 {
			// Decode failure ends the scan, it is not an error.
			break
		}
		if unicode.IsLetter(r) {
			for i := range scriptTable {
				if scriptTable[i].table != nil && unicode.Is(scriptTable[i].table, r) {
					counts[i]++
					break
				}
			}
			processed++
		}
		content = content[size:]
	}

	sel := 0
	max := 0
	for i, n := range counts {
		if n > max {
			max = n
			sel = i
		}
	}
	e := scriptTable[sel]
	p.Script = e.script
	p.LangCode = e.code
	p.Language = e.name
}

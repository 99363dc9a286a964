// Package stem provides word stemming, keyed by the language name detected
// for a text part. The default backend is the snowball stemmer family; for
// languages without a snowball algorithm no stemmer is available and words
// are analyzed unstemmed.
package stem

import (
	"github.com/kljensen/snowball"
)

// Languages with a snowball algorithm, by the names used in script
// detection.
var languages = map[string]bool{
	"english":   true,
	"spanish":   true,
	"french":    true,
	"russian":   true,
	"swedish":   true,
	"norwegian": true,
	"hungarian": true,
}

// Snowball stems words for one language.
type Snowball struct {
	language string
}

// For returns a stemmer for the named language, or nil if none is available.
func For(language string) *Snowball {
	if !languages[language] {
		return nil
	}
	return &Snowball{language}
}

// Stem returns the stem of a UTF-8 word.
func (s *Snowball) Stem(word string) (string, error) {
	return snowball.Stem(word, s.language, false)
}

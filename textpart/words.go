package textpart

import (
	"bytes"
	"encoding/binary"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/mailscan/mailscan/metrics"
	"github.com/mailscan/mailscan/mlog"
)

// wordsHashSeed is fixed and process-wide. Hashes must be comparable across
// messages (and usable in shingles computation later), so the seed is never
// randomized per run.
const wordsHashSeed uint64 = 0xdeadbabe

// exceptionMarker is the placeholder token emitted where an exception span
// was skipped. It participates in tokenization bookkeeping only and is never
// hashed.
var exceptionMarker = []byte("!!EX!!")

// Stemmer reduces a UTF-8 word to its stem. An error means the word could not
// be stemmed; that is never fatal, the word is used unstemmed.
type Stemmer interface {
	Stem(word string) (string, error)
}

// TokenHash returns the fixed-seed 64-bit hash of one canonical token.
func TokenHash(token []byte) uint64 {
	d := xxhash.New()
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], wordsHashSeed)
	d.Write(seed[:])
	d.Write(token)
	return d.Sum64()
}

// ExtractWords tokenizes the part's stripped content into words, canonizes
// each word by stemming (truncated to the original token length) or
// lowercasing, and appends the hash of each canonical word to the part's
// ordered hash sequence. stemmer may be nil, in which case all words are
// lowercased.
func ExtractWords(log *mlog.Log, p *TextPart, stemmer Stemmer) {
	words := tokenize(p.Stripped, p.UTF8, p.Exceptions)
	p.Words = make([][]byte, 0, len(words))
	p.Hashes = make([]uint64, 0, len(words))

	for _, w := range words {
		if len(w) == 0 {
			continue
		}
		if bytes.Equal(w, exceptionMarker) {
			p.Words = append(p.Words, w)
			continue
		}

		canon := w
		stemmed := false
		if stemmer != nil && p.UTF8 {
			s, err := stemmer.Stem(string(w))
			if err != nil {
				log.Debugx("stemming word, using unstemmed", err, mlog.Field("language", p.Language))
				metrics.DegradeInc("stem")
			} else if s != "" {
				// Stemmed forms are never lengthened.
				b := []byte(s)
				if len(b) > len(w) {
					b = b[:len(w)]
				}
				canon = b
				stemmed = true
			}
		}
		if !stemmed {
			canon = lower(w, p.UTF8)
		}

		p.Words = append(p.Words, canon)
		p.Hashes = append(p.Hashes, TokenHash(canon))
	}
}

// tokenize splits content into word tokens. Word boundary rules differ for
// UTF-8 and raw single-byte content. Byte ranges covered by exception spans
// are skipped, leaving the placeholder marker in the token stream;
// zero-length exceptions only break the current word.
func tokenize(content []byte, isUTF8 bool, exceptions []Exception) [][]byte {
	var words [][]byte
	start := -1
	exi := 0

	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, content[start:end])
		}
		start = -1
	}

	for i := 0; i < len(content); {
		if exi < len(exceptions) && exceptions[exi].Offset <= i {
			ex := exceptions[exi]
			exi++
			flush(i)
			if ex.Length > 0 {
				words = append(words, exceptionMarker)
				i += ex.Length
				if i > len(content) {
					i = len(content)
				}
			}
			continue
		}

		if isUTF8 {
			r, size := utf8.DecodeRune(content[i:])
			if (r == utf8.RuneError && size <= 1) || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
				flush(i)
			} else if start < 0 {
				start = i
			}
			i += size
		} else {
			c := content[i]
			if isASCIIAlnum(c) {
				if start < 0 {
					start = i
				}
			} else {
				flush(i)
			}
			i++
		}
	}
	flush(len(content))
	return words
}

func isASCIIAlnum(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func lower(w []byte, isUTF8 bool) []byte {
	if !isUTF8 {
		l := make([]byte, len(w))
		for i, c := range w {
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			l[i] = c
		}
		return l
	}
	l := make([]byte, 0, len(w))
	for i := 0; i < len(w); {
		r, size := utf8.DecodeRune(w[i:])
		if r == utf8.RuneError && size <= 1 {
			l = append(l, w[i])
		} else {
			l = utf8.AppendRune(l, unicode.ToLower(r))
		}
		i += size
	}
	return l
}

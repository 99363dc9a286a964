package textpart

import (
	"github.com/mailscan/mailscan/metrics"
	"github.com/mailscan/mailscan/mlog"
)

// maxDistanceWords caps the combined length of the two hash sequences that
// the edit distance is computed over. Larger inputs report zero distance, a
// documented precision loss, not a failure.
const maxDistanceWords = 8192

// WordsLevenshtein computes the weighted edit distance between two ordered
// token-hash sequences. Substituting equal hashes costs 0, unequal hashes 2,
// insert/delete 1 each. The doubled mismatch cost makes distance/total a
// percentage of differing words rather than a raw edit count.
func WordsLevenshtein(log *mlog.Log, w1, w2 []uint64) int {
	s1len := len(w1)
	s2len := len(w2)

	if s1len+s2len > maxDistanceWords {
		log.Error("cannot compare parts, too many words", mlog.Field("words", s1len+s2len), mlog.Field("max", maxDistanceWords))
		metrics.DistanceInc("capped")
		return 0
	}

	// Single-row dynamic programming, O(n*m) time.
	column := make([]int, s1len+1)
	for y := 1; y <= s1len; y++ {
		column[y] = y
	}
	for x := 1; x <= s2len; x++ {
		column[0] = x
		lastdiag := x - 1
		for y := 1; y <= s1len; y++ {
			olddiag := column[y]
			cost := 0
			if w1[y-1] != w2[x-1] {
				cost = 2
			}
			column[y] = min3(column[y]+1, column[y-1]+1, lastdiag+cost)
			lastdiag = olddiag
		}
	}
	return column[s1len]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

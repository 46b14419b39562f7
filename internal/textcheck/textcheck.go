// Package textcheck compares a recognised transcript against the expected
// verse text and reports which words were recited, missed, or garbled.
package textcheck

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// DefaultSimilarity is the Jaro-Winkler score at or above which a heard word
// counts as a fuzzy match for an expected word. Recognition output for Arabic
// is noisy, so exact equality alone misses too much.
const DefaultSimilarity = 0.85

// WordStatus classifies one expected word of the verse.
type WordStatus string

const (
	// StatusExact means the normalised transcript word equals the expected word.
	StatusExact WordStatus = "exact"

	// StatusFuzzy means the words differ but are within the similarity bound.
	StatusFuzzy WordStatus = "fuzzy"

	// StatusMissing means no transcript word aligned with the expected word.
	StatusMissing WordStatus = "missing"
)

// WordResult is the verdict for one expected word, in verse order.
type WordResult struct {
	Expected string     `json:"expected"`
	Heard    string     `json:"heard,omitempty"`
	Status   WordStatus `json:"status"`

	// Distance is the Levenshtein distance between the normalised words,
	// 0 for exact matches and -1 when the word is missing.
	Distance int `json:"distance"`
}

// Result is the outcome of comparing a transcript to a verse.
type Result struct {
	// Score is the fraction of expected words matched (exact or fuzzy),
	// scaled to 0–100. An empty verse scores 100.
	Score float64 `json:"score"`

	Words []WordResult `json:"words"`

	// Missing lists the expected words with no aligned transcript word.
	Missing []string `json:"missing,omitempty"`

	// Extra lists transcript words that aligned with nothing in the verse.
	Extra []string `json:"extra,omitempty"`
}

// normalize strips tashkeel and folds the alef variants so that comparison is
// about letters, not orthography. Recognition output rarely carries diacritics
// while canonical verse text always does.
func normalize(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for _, r := range word {
		switch r {
		case 'َ', 'ُ', 'ِ', 'ْ', 'ّ', 'ً', 'ٌ', 'ٍ', 'ٰ':
			// tashkeel
		case 'أ', 'إ', 'آ', 'ٱ':
			b.WriteRune('ا')
		case 'ة':
			b.WriteRune('ه')
		case 'ى':
			b.WriteRune('ي')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// similar reports whether two normalised words are close enough to count as
// the same word, plus their edit distance.
func similar(a, b string, minSimilarity float64) (bool, int) {
	dist := matchr.Levenshtein(a, b)
	if dist == 0 {
		return true, 0
	}
	return matchr.JaroWinkler(a, b, false) >= minSimilarity, dist
}

// Compare aligns the transcript against the expected verse text word by word
// and scores the recitation. minSimilarity selects the fuzzy-match bound;
// pass [DefaultSimilarity] unless the caller has a reason not to.
//
// Alignment is a standard edit-distance walk over the two word sequences, so
// a skipped word in the middle of the verse shifts nothing after it.
func Compare(expected, transcript string, minSimilarity float64) Result {
	want := splitNormalized(expected)
	heard := splitNormalized(transcript)

	if len(want.norm) == 0 {
		res := Result{Score: 100}
		for _, w := range heard.orig {
			res.Extra = append(res.Extra, w)
		}
		return res
	}

	ops := alignWords(want.norm, heard.norm, minSimilarity)

	res := Result{}
	matched := 0
	for _, op := range ops {
		switch op.kind {
		case opMatch:
			_, dist := similar(want.norm[op.wantIdx], heard.norm[op.heardIdx], minSimilarity)
			status := StatusFuzzy
			if dist == 0 {
				status = StatusExact
			}
			res.Words = append(res.Words, WordResult{
				Expected: want.orig[op.wantIdx],
				Heard:    heard.orig[op.heardIdx],
				Status:   status,
				Distance: dist,
			})
			matched++
		case opMiss:
			res.Words = append(res.Words, WordResult{
				Expected: want.orig[op.wantIdx],
				Status:   StatusMissing,
				Distance: -1,
			})
			res.Missing = append(res.Missing, want.orig[op.wantIdx])
		case opExtra:
			res.Extra = append(res.Extra, heard.orig[op.heardIdx])
		}
	}
	res.Score = 100 * float64(matched) / float64(len(want.norm))
	return res
}

type wordList struct {
	orig []string
	norm []string
}

func splitNormalized(text string) wordList {
	var wl wordList
	for _, w := range strings.Fields(text) {
		wl.orig = append(wl.orig, w)
		wl.norm = append(wl.norm, normalize(w))
	}
	return wl
}

type opKind int

const (
	opMatch opKind = iota
	opMiss
	opExtra
)

type alignOp struct {
	kind     opKind
	wantIdx  int
	heardIdx int
}

// alignWords computes a minimal-cost alignment of the two word sequences.
// A fuzzy pair costs nothing to keep aligned; any other pairing costs one
// drop plus one insert, so mismatched words fall out as miss/extra pairs.
func alignWords(want, heard []string, minSimilarity float64) []alignOp {
	n, m := len(want), len(heard)
	cost := make([][]int, n+1)
	for i := range cost {
		cost[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		cost[i][0] = i
	}
	for j := 1; j <= m; j++ {
		cost[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			miss := cost[i-1][j] + 1
			extra := cost[i][j-1] + 1
			best := miss
			if extra < best {
				best = extra
			}
			if ok, _ := similar(want[i-1], heard[j-1], minSimilarity); ok {
				if keep := cost[i-1][j-1]; keep < best {
					best = keep
				}
			}
			cost[i][j] = best
		}
	}

	var ops []alignOp
	i, j := n, m
	for i > 0 || j > 0 {
		if i > 0 && j > 0 {
			if ok, _ := similar(want[i-1], heard[j-1], minSimilarity); ok && cost[i][j] == cost[i-1][j-1] {
				ops = append(ops, alignOp{kind: opMatch, wantIdx: i - 1, heardIdx: j - 1})
				i--
				j--
				continue
			}
		}
		if i > 0 && cost[i][j] == cost[i-1][j]+1 {
			ops = append(ops, alignOp{kind: opMiss, wantIdx: i - 1})
			i--
			continue
		}
		ops = append(ops, alignOp{kind: opExtra, heardIdx: j - 1})
		j--
	}

	// Backtracking produced the ops in reverse.
	for a, b := 0, len(ops)-1; a < b; a, b = a+1, b-1 {
		ops[a], ops[b] = ops[b], ops[a]
	}
	return ops
}

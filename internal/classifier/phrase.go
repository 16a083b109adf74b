package classifier

import (
	"sort"
	"strings"
)

// PhraseIndex holds the per-category reference phrases. Phrases are stored
// lower-cased in their configured order; that order is the tie-break when two
// phrases score equally.
type PhraseIndex struct {
	phrases map[string][]string
}

func NewPhraseIndex(phrases map[string][]string) *PhraseIndex {
	idx := &PhraseIndex{phrases: make(map[string][]string, len(phrases))}
	for cat, list := range phrases {
		out := make([]string, 0, len(list))
		for _, p := range list {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				out = append(out, p)
			}
		}
		idx.phrases[strings.ToUpper(cat)] = out
	}
	return idx
}

func (i *PhraseIndex) Phrases(category string) []string {
	return i.phrases[category]
}

// BestMatch scores text against every phrase of the category and returns the
// highest-scoring phrase with its score in [0,100]. A category without
// phrases scores 0 with an empty phrase.
func (i *PhraseIndex) BestMatch(text string, category string) (string, int) {
	text = strings.ToLower(text)
	bestPhrase := ""
	bestScore := 0
	for _, p := range i.phrases[category] {
		if s := TokenSetRatio(text, p); s > bestScore {
			bestScore = s
			bestPhrase = p
		}
	}
	return bestPhrase, bestScore
}

// TokenSetRatio is a set-based token overlap similarity in [0,100]. Both
// inputs are tokenized into unique sorted word sets; the score is the best
// pairwise ratio between the intersection and each full set. A description
// that fully contains a reference phrase's tokens scores 100 regardless of
// the surrounding words.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		seen[t] = true
	}
	matched := make(map[string]bool, len(ta))
	for _, t := range ta {
		if seen[t] {
			inter = append(inter, t)
			matched[t] = true
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !matched[t] {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	score := ratio(base, combinedA)
	if s := ratio(base, combinedB); s > score {
		score = s
	}
	if s := ratio(combinedA, combinedB); s > score {
		score = s
	}
	return score
}

func tokenSet(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	uniq := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := uniq[f]; ok {
			continue
		}
		uniq[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ratio converts edit distance into a 0-100 similarity.
func ratio(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	d := levenshtein(a, b)
	return int(float64(maxLen-d)/float64(maxLen)*100 + 0.5)
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}
	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(min(row[j-1]+1, prevRow[j]+1), prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}
	return prevRow[len(b)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

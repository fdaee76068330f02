package analyzer

import (
	"regexp"
	"sort"
	"strings"
)

// wordSpan is one whitespace-delimited token's byte range in the source
// text, used to convert a character offset into a word index.
type wordSpan struct{ start, end int }

func tokenizeWords(text string) []wordSpan {
	spans := make([]wordSpan, 0, len(text)/6)
	inWord := false
	wordStart := 0
	for i, r := range text {
		if strings.ContainsRune(" \t\n\r\v\f", r) {
			if inWord {
				spans = append(spans, wordSpan{wordStart, i})
				inWord = false
			}
			continue
		}
		if !inWord {
			wordStart = i
			inWord = true
		}
	}
	if inWord {
		spans = append(spans, wordSpan{wordStart, len(text)})
	}
	return spans
}

// wordIndexForOffset returns the index of the last word span starting at
// or before offset (the word offset falls inside, or immediately after).
func wordIndexForOffset(spans []wordSpan, offset int) int {
	lo, hi, best := 0, len(spans)-1, 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if spans[mid].start <= offset {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

func contextSnippet(text string, charOffset, matchLen int) string {
	start := charOffset - 50
	if start < 0 {
		start = 0
	}
	end := charOffset + matchLen + 50
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(text[start:end]), " "))
}

// keywordOccurrence is one located keyword hit (§4.E.2 step 1).
type keywordOccurrence struct {
	keyword    string
	charOffset int
	wordIndex  int
	context    string
}

func locateKeywords(text string, keywords []string, spans []wordSpan) []keywordOccurrence {
	lower := strings.ToLower(text)
	var out []keywordOccurrence
	for _, kw := range keywords {
		kwLower := strings.ToLower(kw)
		if kwLower == "" {
			continue
		}
		searchFrom := 0
		for {
			idx := strings.Index(lower[searchFrom:], kwLower)
			if idx < 0 {
				break
			}
			pos := searchFrom + idx
			out = append(out, keywordOccurrence{
				keyword:    kw,
				charOffset: pos,
				wordIndex:  wordIndexForOffset(spans, pos),
				context:    contextSnippet(text, pos, len(kw)),
			})
			searchFrom = pos + len(kwLower)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].wordIndex < out[j].wordIndex })
	return out
}

// bestCluster finds the window of occurrences (§4.E.2 step 2) maximizing
// distinct-keyword count subject to every pairwise word-distance staying
// within maxDistance. A sliding window keyed on word index achieves this
// directly: within any window, the maximum pairwise distance equals the
// span between its first and last word index.
func bestCluster(occurrences []keywordOccurrence, maxDistance int) (distinct int, span int, window []keywordOccurrence) {
	left := 0
	for right := range occurrences {
		for occurrences[right].wordIndex-occurrences[left].wordIndex > maxDistance {
			left++
		}
		counts := make(map[string]bool, right-left+1)
		for k := left; k <= right; k++ {
			counts[occurrences[k].keyword] = true
		}
		if len(counts) > distinct {
			distinct = len(counts)
			span = occurrences[right].wordIndex - occurrences[left].wordIndex
			window = append(window[:0:0], occurrences[left:right+1]...)
		}
	}
	return distinct, span, window
}

// proximityBand maps a word span to the §4.E.2 step-3 base score.
func proximityBand(span int) float64 {
	switch {
	case span <= 50:
		return 1.0
	case span <= 200:
		return 0.8
	case span <= 500:
		return 0.6
	default:
		return 0.3
	}
}

// boostFactor is the linear multiplier applied when a pattern's
// boostNearby flag is set, keyed to the same bands as proximityBand.
func boostFactor(span int) float64 {
	switch {
	case span <= 50:
		return 1.5
	case span <= 200:
		return 1.3
	case span <= 500:
		return 1.1
	default:
		return 0.8
	}
}

func countRegexMatches(text string, res []*regexp.Regexp) int {
	n := 0
	for _, re := range res {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

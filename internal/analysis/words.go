package analysis

import (
	"sort"
	"strings"
	"unicode/utf8"

	"sentiment_dashboard/internal/report"
)

// DefaultStopWords is the function-word set dropped from word counts.
// Deployments override it through configuration.
var DefaultStopWords = []string{
	"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"from", "up", "about", "into", "through", "during", "before", "after",
	"above", "below", "between", "among",
}

// minWordRunes is the shortest token that is counted.
const minWordRunes = 3

// WordCount is one entry of the word-frequency ranking.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWords lower-cases and whitespace-splits every comment in rows, drops
// short tokens and stop words, and returns the limit most frequent tokens.
// Ties keep first-seen order. No stemming or punctuation handling is done.
func TopWords(rows []report.Row, stopWords map[string]struct{}, limit int) []WordCount {
	if limit <= 0 {
		return nil
	}
	index := make(map[string]int)
	var counts []WordCount
	for _, row := range rows {
		comment, ok := row.Comment()
		if !ok {
			continue
		}
		for _, tok := range strings.Fields(strings.ToLower(comment)) {
			if utf8.RuneCountInString(tok) < minWordRunes {
				continue
			}
			if _, stop := stopWords[tok]; stop {
				continue
			}
			i, seen := index[tok]
			if !seen {
				i = len(counts)
				index[tok] = i
				counts = append(counts, WordCount{Word: tok})
			}
			counts[i].Count++
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

// StopWordSet lower-cases words into a lookup set.
func StopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

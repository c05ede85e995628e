package analytics

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"

	"CVELens/internal/model"
)

// DefaultTopWords 词云默认保留的词数
const DefaultTopWords = 25

// WordCount 词及其出现次数
type WordCount struct {
	Word  string `json:"word" yaml:"word"`
	Count int    `json:"count" yaml:"count"`
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "to": {}, "with": {}, "a": {},
	"for": {}, "on": {}, "by": {}, "from": {}, "this": {}, "when": {}, "could": {},
	"gold": {}, "that": {},
}

var punctuationStripper = strings.NewReplacer(
	".", "", ",", "", "/", "", "#", "", "!", "", "$", "", "%", "", "^", "",
	"&", "", "*", "", ";", "", ":", "", "{", "", "}", "", "=", "", "-", "",
	"_", "", "`", "", "~", "", "(", "", ")", "",
)

// TopWords 统计所有描述中的高频词，按次数降序，次数相同时按字母序，截取前topN个。
// 长度不超过2、停用词以及纯数字的词被过滤。
func TopWords(records []model.Record, topN int) []WordCount {
	if topN <= 0 {
		topN = DefaultTopWords
	}

	descriptions := make([]string, len(records))
	for i, r := range records {
		descriptions[i] = r.Description
	}
	text := punctuationStripper.Replace(strings.ToLower(strings.Join(descriptions, " ")))

	freq := make(map[string]int)
	for _, w := range strings.Fields(text) {
		if keepWord(w) {
			freq[w]++
		}
	}

	words := maps.Keys(freq)
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(words) > topN {
		words = words[:topN]
	}

	result := make([]WordCount, len(words))
	for i, w := range words {
		result[i] = WordCount{Word: w, Count: freq[w]}
	}
	return result
}

func keepWord(w string) bool {
	if utf8.RuneCountInString(w) <= 2 {
		return false
	}
	if _, stop := stopWords[w]; stop {
		return false
	}
	return !allDigits(w)
}

func allDigits(w string) bool {
	for i := 0; i < len(w); i++ {
		if w[i] < '0' || w[i] > '9' {
			return false
		}
	}
	return w != ""
}

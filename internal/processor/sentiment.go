package processor

import (
	"strings"
	"unicode"

	"github.com/LJTian/InsightSphere/internal/storage"
)

var (
	positiveWords = map[string]struct{}{
		"good": {}, "great": {}, "excellent": {}, "positive": {}, "success": {}, "win": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "negative": {}, "failure": {}, "loss": {}, "problem": {},
	}
)

// AnalyzeSentiment 基于正负词表计数；没有任何命中时固定返回 {0.5, 0.5, 1.0}
func AnalyzeSentiment(text string) storage.Sentiment {
	var pos, neg int
	for _, tok := range tokenize(text) {
		tok = lexeme(tok)
		if _, ok := positiveWords[tok]; ok {
			pos++
		}
		if _, ok := negativeWords[tok]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return storage.Sentiment{Positive: 0.5, Negative: 0.5, Neutral: 1.0}
	}

	p := float64(pos) / float64(total)
	n := float64(neg) / float64(total)
	return storage.Sentiment{Positive: p, Negative: n, Neutral: 1 - (p + n)}
}

// tokenize 切出由字母、数字和撇号组成的最长片段
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
}

// lexeme 小写并去掉所有格后缀和首尾撇号，"Win's" 与 "losses'" 分别还原为 "win"、"losses"
func lexeme(tok string) string {
	tok = strings.ToLower(tok)
	tok = strings.TrimSuffix(tok, "'s")
	return strings.Trim(tok, "'")
}

package processor

import "strings"

// DefaultCategory 没有命中或并列最高时的分类
const DefaultCategory = "world"

type categoryKeywords struct {
	name     string
	keywords []string
}

var categoryTable = []categoryKeywords{
	{"politics", []string{"politics", "government", "election", "president", "congress"}},
	{"technology", []string{"technology", "tech", "software", "digital", "computer"}},
	{"business", []string{"business", "economy", "market", "stock", "finance"}},
	{"sports", []string{"sports", "game", "team", "player", "championship"}},
	{"entertainment", []string{"entertainment", "movie", "music", "celebrity", "show"}},
	{"health", []string{"health", "medical", "disease", "hospital", "doctor"}},
	{"science", []string{"science", "research", "study", "scientist", "discovery"}},
	{"world", []string{"world", "international", "global", "foreign", "country"}},
}

// Categories 返回固定的分类集合
func Categories() []string {
	out := make([]string, 0, len(categoryTable))
	for _, c := range categoryTable {
		out = append(out, c.name)
	}
	return out
}

// Categorize 按命中的关键词个数（子串匹配，每个关键词最多计一次）打分，
// 唯一最高分胜出；并列或全为 0 时返回 world
func Categorize(title, description string) string {
	text := strings.ToLower(title + " " + description)

	best, bestScore, tied := "", 0, false
	for _, c := range categoryTable {
		score := 0
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = c.name, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}

	if bestScore == 0 || tied {
		return DefaultCategory
	}
	return best
}

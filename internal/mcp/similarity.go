package mcp

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/kutbudev/promptvault/internal/models"
)

// SimilarityThreshold is the minimum score for create_prompt to report an
// existing prompt as a likely duplicate
const SimilarityThreshold = 0.6

// SimilarPrompt is an existing prompt close to a candidate's content
type SimilarPrompt struct {
	UUID       string  `json:"uuid"`
	Title      string  `json:"title"`
	Content    string  `json:"content"` // truncated for display
	Similarity float64 `json:"similarity"`
}

var nonWord = regexp.MustCompile(`[^a-z0-9\s]`)

// tokenize splits text into lowercase words, removing punctuation
func tokenize(text string) map[string]struct{} {
	text = nonWord.ReplaceAllString(strings.ToLower(text), " ")

	words := make(map[string]struct{})
	for _, word := range strings.Fields(text) {
		if len(word) > 1 {
			words[word] = struct{}{}
		}
	}
	return words
}

// JaccardSimilarity returns the word-set overlap of two texts, between 0
// (nothing shared) and 1 (same words)
func JaccardSimilarity(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for word := range setA {
		if _, ok := setB[word]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// FindSimilarPrompts returns prompts whose content scores at least threshold
// against content, highest first
func FindSimilarPrompts(prompts []models.ExportedPrompt, content string, threshold float64) []SimilarPrompt {
	var similar []SimilarPrompt
	for _, p := range prompts {
		score := JaccardSimilarity(content, p.Content)
		if score >= threshold {
			similar = append(similar, SimilarPrompt{
				UUID:       p.UUID,
				Title:      p.Title,
				Content:    truncateContent(p.Content, 200),
				Similarity: score,
			})
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Similarity > similar[j].Similarity
	})
	return similar
}

func truncateContent(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen-3] + "..."
}

// normalizeForMatch drops case and separators.
// "Blog Outline" and "blog-outline" both become "blogoutline".
func normalizeForMatch(s string) string {
	s = strings.ToLower(s)
	for _, sep := range []string{" ", "-", "_", "."} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}

// matchNames ranks candidates against input. A normalized exact match wins
// outright; otherwise fuzzy subsequence matches are returned best first.
func matchNames(candidates []string, input string) []int {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	norm := normalizeForMatch(input)
	for i, c := range candidates {
		if normalizeForMatch(c) == norm {
			return []int{i}
		}
	}

	matches := fuzzy.Find(input, candidates)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Index)
	}
	return out
}

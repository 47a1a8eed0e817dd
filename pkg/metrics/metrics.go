// Package metrics scores a transcription against its ground truth.
package metrics

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Result holds character and word level accuracy for one transcription.
type Result struct {
	CharacterSimilarity   float64 `json:"character_similarity" yaml:"character_similarity"`
	CharacterErrorRate    float64 `json:"character_error_rate" yaml:"character_error_rate"`
	WordSimilarity        float64 `json:"word_similarity" yaml:"word_similarity"`
	WordAccuracy          float64 `json:"word_accuracy" yaml:"word_accuracy"`
	WordErrorRate         float64 `json:"word_error_rate" yaml:"word_error_rate"`
	TotalWordsOriginal    int     `json:"total_words_original" yaml:"total_words_original"`
	TotalWordsTranscribed int     `json:"total_words_transcribed" yaml:"total_words_transcribed"`
	CorrectWords          int     `json:"correct_words" yaml:"correct_words"`
	Substitutions         int     `json:"substitutions" yaml:"substitutions"`
	Deletions             int     `json:"deletions" yaml:"deletions"`
	Insertions            int     `json:"insertions" yaml:"insertions"`
	IgnoredCharsCount     int     `json:"ignored_chars_count,omitempty" yaml:"ignored_chars_count,omitempty"`
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeText applies NFKC, collapses whitespace and lowercases, so the
// comparison ignores case and spacing differences.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return strings.ToLower(text)
}

// Calculate scores transcribed against original. Ignore patterns in the
// ground truth mark unreadable words or characters; see ApplyIgnorePatterns.
func Calculate(original, transcribed string, ignorePatterns []string) Result {
	original, transcribed, ignored := ApplyIgnorePatterns(original, transcribed, ignorePatterns)

	origNorm := NormalizeText(original)
	transNorm := NormalizeText(transcribed)
	charSim := Similarity(origNorm, transNorm)

	cer := 0.0
	if n := len([]rune(origNorm)); n > 0 {
		cer = float64(Levenshtein(origNorm, transNorm)) / float64(n)
	} else if transNorm != "" {
		cer = 1
	}

	origWords := strings.Fields(origNorm)
	transWords := strings.Fields(transNorm)
	wordSim := Similarity(strings.Join(origWords, " "), strings.Join(transWords, " "))
	wordAcc, correct, subs, dels, ins := wordLevelMetrics(origWords, transWords)

	return Result{
		CharacterSimilarity:   charSim,
		CharacterErrorRate:    cer,
		WordSimilarity:        wordSim,
		WordAccuracy:          wordAcc,
		WordErrorRate:         1.0 - wordAcc,
		TotalWordsOriginal:    len(origWords),
		TotalWordsTranscribed: len(transWords),
		CorrectWords:          correct,
		Substitutions:         subs,
		Deletions:             dels,
		Insertions:            ins,
		IgnoredCharsCount:     ignored,
	}
}

// Levenshtein returns the edit distance between s1 and s2 in runes.
func Levenshtein(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	prev := make([]int, len2+1)
	curr := make([]int, len2+1)
	for j := 0; j <= len2; j++ {
		prev[j] = j
	}

	for i := 1; i <= len1; i++ {
		curr[0] = i
		for j := 1; j <= len2; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				min(prev[j]+1, curr[j-1]+1), // deletion, insertion
				prev[j-1]+cost,              // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len2]
}

// Similarity is one minus the edit distance over the longer length.
func Similarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Levenshtein(s1, s2))/float64(maxLen)
}

// wordLevelMetrics aligns the word sequences and counts edit operations.
func wordLevelMetrics(orig, trans []string) (float64, int, int, int, int) {
	m, n := len(orig), len(trans)
	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		dp[i][0] = i
	}
	for j := 0; j <= n; j++ {
		dp[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if orig[i-1] == trans[j-1] {
				dp[i][j] = dp[i-1][j-1]
			} else {
				dp[i][j] = 1 + min(
					min(dp[i-1][j], dp[i][j-1]), // deletion, insertion
					dp[i-1][j-1],                // substitution
				)
			}
		}
	}

	i, j := m, n
	substitutions, deletions, insertions, correct := 0, 0, 0, 0
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && orig[i-1] == trans[j-1]:
			correct++
			i--
			j--
		case i > 0 && j > 0 && dp[i][j] == dp[i-1][j-1]+1:
			substitutions++
			i--
			j--
		case i > 0 && dp[i][j] == dp[i-1][j]+1:
			deletions++
			i--
		default:
			insertions++
			j--
		}
	}

	wer := 0.0
	if m > 0 {
		wer = float64(substitutions+deletions+insertions) / float64(m)
	}
	return 1.0 - wer, correct, substitutions, deletions, insertions
}

package metrics

import (
	"strings"
	"unicode/utf8"
)

// ApplyIgnorePatterns removes the parts of a comparison that the ground truth
// marks as unreadable. A ground-truth word equal to a pattern stands for one
// unknown word: it and the transcription word in the same position become
// empty. A pattern inside a word stands for one unknown character: it and
// the aligned transcription character are dropped. Words are aligned by
// position. The third result counts the pattern characters removed.
func ApplyIgnorePatterns(groundTruth, transcription string, patterns []string) (string, string, int) {
	if len(patterns) == 0 {
		return groundTruth, transcription, 0
	}

	gtWords := strings.Fields(groundTruth)
	transWords := strings.Fields(transcription)

	gtOut := make([]string, 0, len(gtWords))
	transOut := make([]string, 0, len(transWords))
	ignored := 0

	for i, word := range gtWords {
		trans, hasTrans := "", i < len(transWords)
		if hasTrans {
			trans = transWords[i]
		}

		if p, ok := standalone(word, patterns); ok {
			ignored += len(p)
			gtOut = append(gtOut, "")
			if hasTrans {
				transOut = append(transOut, "")
			}
			continue
		}

		g, t, n := stripInWord(word, trans, patterns)
		ignored += n
		gtOut = append(gtOut, g)
		if hasTrans {
			transOut = append(transOut, t)
		}
	}
	if len(transWords) > len(gtWords) {
		transOut = append(transOut, transWords[len(gtWords):]...)
	}

	return strings.Join(gtOut, " "), strings.Join(transOut, " "), ignored
}

func standalone(word string, patterns []string) (string, bool) {
	for _, p := range patterns {
		if p != "" && word == p {
			return p, true
		}
	}
	return "", false
}

// stripInWord walks the ground-truth word, dropping every pattern occurrence
// together with the transcription rune at the same position.
func stripInWord(word, trans string, patterns []string) (string, string, int) {
	t := []rune(trans)
	var gtOut, transOut strings.Builder
	ignored, j := 0, 0

	for i := 0; i < len(word); {
		if p := prefixPattern(word[i:], patterns); p != "" {
			ignored += len(p)
			i += len(p)
			j++
			continue
		}
		r, size := utf8.DecodeRuneInString(word[i:])
		gtOut.WriteRune(r)
		if j < len(t) {
			transOut.WriteRune(t[j])
		}
		i += size
		j++
	}
	if j < len(t) {
		transOut.WriteString(string(t[j:]))
	}
	return gtOut.String(), transOut.String(), ignored
}

func prefixPattern(s string, patterns []string) string {
	for _, p := range patterns {
		if p != "" && strings.HasPrefix(s, p) {
			return p
		}
	}
	return ""
}

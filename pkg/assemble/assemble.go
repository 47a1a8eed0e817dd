// Package assemble merges classifier labels with recorded word gaps into the
// final reading-order token stream.
package assemble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

var ErrInvalidMarkers = errors.New("invalid space markers")

// Label is one classified glyph.
type Label struct {
	Text       string
	Confidence float32
	Box        layout.Box
	Line       int
}

// Token is a label or an inserted word space.
type Token struct {
	Text       string     `yaml:"text" json:"text"`
	Space      bool       `yaml:"space,omitempty" json:"space,omitempty"`
	Confidence float32    `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	Box        layout.Box `yaml:"box,omitempty" json:"box,omitempty"`
	Line       int        `yaml:"line" json:"line"`
}

// SpaceToken is the text used for inserted spaces.
const SpaceToken = " "

// Tokens inserts one space before each glyph index listed in markers. Markers
// refer to positions in labels before any insertion, so each inserted space
// shifts the following markers by one. Markers must be strictly increasing
// and no larger than len(labels); a marker equal to len(labels) appends a
// trailing space.
func Tokens(labels []Label, markers []int) ([]Token, error) {
	if err := validate(markers, len(labels)); err != nil {
		return nil, err
	}

	out := make([]Token, 0, len(labels)+len(markers))
	for _, l := range labels {
		out = append(out, Token{Text: l.Text, Confidence: l.Confidence, Box: l.Box, Line: l.Line})
	}

	offset := 0
	for _, m := range markers {
		pos := m + offset
		line := 0
		switch {
		case m < len(labels):
			line = labels[m].Line
		case len(labels) > 0:
			line = labels[len(labels)-1].Line
		}
		out = append(out, Token{})
		copy(out[pos+1:], out[pos:])
		out[pos] = Token{Text: SpaceToken, Space: true, Line: line}
		offset++
	}
	return out, nil
}

func validate(markers []int, n int) error {
	for i, m := range markers {
		if m < 0 || m > n {
			return fmt.Errorf("%w: marker %d out of range [0,%d]", ErrInvalidMarkers, m, n)
		}
		if i > 0 && m <= markers[i-1] {
			return fmt.Errorf("%w: marker %d follows %d", ErrInvalidMarkers, m, markers[i-1])
		}
	}
	return nil
}

// Text concatenates the tokens.
func Text(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Words splits the token stream at spaces, keeping each word's tokens.
func Words(tokens []Token) [][]Token {
	var words [][]Token
	var current []Token
	for _, t := range tokens {
		if t.Space {
			if len(current) > 0 {
				words = append(words, current)
			}
			current = nil
			continue
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		words = append(words, current)
	}
	return words
}

// Lines splits the token stream by the line each token came from.
func Lines(tokens []Token) [][]Token {
	var lines [][]Token
	for i, t := range tokens {
		if i == 0 || t.Line != tokens[i-1].Line {
			lines = append(lines, nil)
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], t)
	}
	return lines
}

package lines

import (
	"sort"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// mergeNearbyComponents joins runs of horizontally adjacent components into
// word boxes. components must be in reading order.
func mergeNearbyComponents(components []layout.Box) []layout.Box {
	if len(components) <= 1 {
		return components
	}

	var merged []layout.Box
	current := components[0]
	last := components[0]
	for _, c := range components[1:] {
		if shouldMergeComponents(last, c) {
			current = current.Union(c)
		} else {
			merged = append(merged, current)
			current = c
		}
		last = c
	}
	return append(merged, current)
}

func shouldMergeComponents(a, b layout.Box) bool {
	horizontalGap := b.X - a.Right()
	verticalOverlap := b.Bottom() >= a.Y && b.Y <= a.Bottom()
	maxGap := max(a.H, b.H) / 3
	return horizontalGap >= 0 && horizontalGap <= maxGap && verticalOverlap
}

// groupWordsIntoLines bands words whose vertical extents overlap, with a
// third of the average word height as slack.
func groupWordsIntoLines(words []layout.Box) []layout.Box {
	if len(words) == 0 {
		return nil
	}

	sorted := append([]layout.Box(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if abs(sorted[i].Y-sorted[j].Y) < sorted[i].H/2 {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	var lines []layout.Box
	var current []layout.Box
	for _, word := range sorted {
		if len(current) == 0 || wordsOnSameLine(current, word) {
			current = append(current, word)
			continue
		}
		lines = append(lines, createLineFromWords(current))
		current = []layout.Box{word}
	}
	if len(current) > 0 {
		lines = append(lines, createLineFromWords(current))
	}
	return lines
}

func wordsOnSameLine(current []layout.Box, word layout.Box) bool {
	if len(current) == 0 {
		return true
	}

	avgHeight := 0
	top, bottom := current[0].Y, current[0].Bottom()
	for _, w := range current {
		avgHeight += w.H
		top = min(top, w.Y)
		bottom = max(bottom, w.Bottom())
	}
	avgHeight /= len(current)

	tolerance := avgHeight / 3
	return word.Bottom() >= top-tolerance && word.Y <= bottom+tolerance
}

func createLineFromWords(words []layout.Box) layout.Box {
	var line layout.Box
	for _, w := range words {
		line = line.Union(w)
	}
	return line
}

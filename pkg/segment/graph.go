package segment

import (
	"sort"

	"github.com/lehigh-university-libraries/handwrite/pkg/layout"
)

// scanGraph collapses each line's fragments before scanning. Two boxes join
// the same group when they overlap or when either lies inside the other's
// tolerance-expanded bounds; the result does not depend on which fragment the
// contour sort happened to emit first.
func scanGraph(lines [][]layout.Box, threshold float64, params Params) Result {
	s := NewScanner(params, threshold)
	for i, boxes := range lines {
		for _, b := range collapse(boxes, params.NestTolerance) {
			s.Visit(Candidate{Box: b, Line: i})
		}
	}
	return s.Result()
}

func collapse(boxes []layout.Box, tolerance int) []layout.Box {
	if len(boxes) == 0 {
		return nil
	}

	parent := make([]int, len(boxes))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range boxes {
		for j := i + 1; j < len(boxes); j++ {
			if linked(boxes[i], boxes[j], tolerance) {
				if ri, rj := find(i), find(j); ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
			}
		}
	}

	// roots are the lowest member index, so groups come out in the same
	// relative order as their first fragment
	merged := make(map[int]layout.Box)
	var roots []int
	for i, b := range boxes {
		r := find(i)
		if _, ok := merged[r]; !ok {
			roots = append(roots, r)
		}
		merged[r] = merged[r].Union(b)
	}

	out := make([]layout.Box, 0, len(roots))
	for _, r := range roots {
		out = append(out, merged[r])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].X < out[j].X
	})
	return out
}

func linked(a, b layout.Box, tolerance int) bool {
	return a.Overlaps(b) ||
		a.Expand(tolerance).ContainsStrict(b) ||
		b.Expand(tolerance).ContainsStrict(a)
}

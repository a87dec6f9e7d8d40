package merge

import "strings"

// hunk is a contiguous edit: the base lines in [start, end) are replaced by
// lines. A pure insertion has start == end.
type hunk struct {
	start int
	end   int
	lines []string
}

// computeHunks diffs two files line-wise and returns the edits that turn
// base into modified. Built on a longest-common-subsequence table; fine for
// source files, which stay small.
func computeHunks(base, modified string) []hunk {
	a := splitLines(base)
	b := splitLines(modified)

	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var hunks []hunk
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		if i < len(a) && j < len(b) && a[i] == b[j] {
			i++
			j++
			continue
		}

		h := hunk{start: i, end: i}
		for i < len(a) || j < len(b) {
			if i < len(a) && j < len(b) && a[i] == b[j] {
				break
			}
			if i < len(a) && (j >= len(b) || lcs[i+1][j] >= lcs[i][j+1]) {
				i++
				h.end = i
			} else {
				h.lines = append(h.lines, b[j])
				j++
			}
		}
		hunks = append(hunks, h)
	}
	return hunks
}

// overlaps reports whether two hunks touch the same base region. Insertions
// at the same point count as overlapping because their order is ambiguous.
func overlaps(a, b hunk) bool {
	if a.start == b.start {
		return true
	}
	return a.start < b.end && b.start < a.end
}

// applyHunks splices non-overlapping hunks into base. Hunks may arrive in
// any order; they are applied back to front so earlier offsets stay valid.
func applyHunks(base string, hunks []hunk) string {
	lines := splitLines(base)

	ordered := make([]hunk, len(hunks))
	copy(ordered, hunks)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].start > ordered[j-1].start; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	for _, h := range ordered {
		replaced := make([]string, 0, len(lines)-(h.end-h.start)+len(h.lines))
		replaced = append(replaced, lines[:h.start]...)
		replaced = append(replaced, h.lines...)
		replaced = append(replaced, lines[h.end:]...)
		lines = replaced
	}
	return strings.Join(lines, "\n")
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

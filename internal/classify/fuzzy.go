package classify

// Rune-level edit-distance similarity for correcting misrecognized tokens.
// Operates on runes so CJK names like 波士炖/波士顿 compare character by
// character rather than byte by byte.

// similarity returns 1 - editDistance/maxLen in [0,1].
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(editDistance(ra, rb))/float64(maxLen)
}

// editDistance computes the Levenshtein distance between two rune slices
// with a two-row table.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// closestMatch returns the single best candidate whose similarity to token
// clears cutoff, or "" when nothing does. Callers must not guess below the
// cutoff.
func closestMatch(token string, candidates []string, cutoff float64) string {
	best := ""
	bestScore := cutoff
	for _, c := range candidates {
		if s := similarity(token, c); s >= bestScore {
			best = c
			bestScore = s
		}
	}
	return best
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

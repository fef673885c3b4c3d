package classifier

// PartialRatio scores how well the shorter string aligns with the best
// matching window of the longer one, on a 0-100 scale. Windows that run off
// either end of the longer string are scored too, so a keyword overlapping
// the start or end of a filename still gets partial credit.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}

	m, n := len(short), len(long)
	best := 0.0
	consider := func(window []rune) bool {
		if score := indelRatio(short, window); score > best {
			best = score
		}
		return best == 100
	}

	for i := 1; i < m; i++ {
		if consider(long[:i]) {
			return best
		}
	}
	for i := 0; i+m <= n; i++ {
		if consider(long[i : i+m]) {
			return best
		}
	}
	for i := n - m + 1; i < n; i++ {
		if consider(long[i:]) {
			return best
		}
	}
	return best
}

// indelRatio is the normalized insert/delete similarity of two strings.
func indelRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// bestKeyword returns the highest scoring keyword against text. Ties keep the
// earlier keyword.
func bestKeyword(text string, keywords []string) (string, float64) {
	var (
		match string
		best  = -1.0
	)
	for _, keyword := range keywords {
		if score := PartialRatio(keyword, text); score > best {
			match, best = keyword, score
		}
	}
	if best < 0 {
		return "", 0
	}
	return match, best
}

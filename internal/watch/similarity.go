package watch

import "strings"

// Matches reports whether at least one trigger word is similar enough to
// the text. Threshold is a normalized score in [0,1]: 0 accepts any
// non-empty word list, 1 requires the word to be present verbatim.
// The result does not depend on word order.
func Matches(text string, words []string, threshold float64) bool {
	if len(words) == 0 {
		return false
	}
	if threshold <= 0 {
		return true
	}

	norm := strings.ToLower(normalizeSpace(text))
	tokens := strings.Fields(norm)

	for _, w := range words {
		nw := strings.ToLower(strings.TrimSpace(w))
		if nw == "" {
			continue
		}
		if strings.Contains(norm, nw) {
			return true
		}
		if threshold >= 1 {
			// exact presence required, no fuzzy fallback
			continue
		}
		for _, tok := range tokens {
			if diceCoefficient(nw, tok) >= threshold {
				return true
			}
		}
	}
	return false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// diceCoefficient is the Sørensen–Dice similarity over character bigrams,
// in [0,1]. Single-character strings only match by equality.
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i < len(a)-1; i++ {
		bigrams[a[i:i+2]]++
	}
	var overlap int
	for i := 0; i < len(b)-1; i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			overlap++
		}
	}
	return 2 * float64(overlap) / float64(len(a)+len(b)-2)
}

package signal

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tokenPattern    = regexp.MustCompile(`[a-z0-9]+`)
	tinyWordPattern = regexp.MustCompile(`^[a-z]{1,2}$`)
)

// Quality scores how much a query string looks like a real information need.
// Returns a value in [0, 1]; empty, single-character and mostly numeric
// strings score low.
func Quality(query string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	n := len([]rune(q))
	if n <= 1 {
		return 0.0
	}
	if n <= 2 {
		return 0.10
	}

	letters := 0
	for _, r := range q {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if float64(letters)/float64(n) < 0.30 {
		return 0.25
	}

	toks := tokenPattern.FindAllString(q, -1)
	base := 0.55
	if n >= 8 {
		base += 0.15
	}
	if len(toks) >= 2 {
		base += 0.15
	}
	if len(toks) >= 3 {
		base += 0.05
	}
	if onlyTinyWords(toks) {
		base -= 0.35
	}
	return clamp01(base)
}

// onlyTinyWords reports whether every token is a word of one or two letters.
func onlyTinyWords(toks []string) bool {
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if !tinyWordPattern.MatchString(t) {
			return false
		}
	}
	return true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

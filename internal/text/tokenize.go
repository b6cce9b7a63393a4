/*
Package text provides the lexical vector space shared by queries and domains.

Queries are tokenized into lowercase unigrams and adjacent bigrams. Domains
are mapped to a synthetic site:<domain> token plus their meaningful labels,
so a query and a domain can be compared directly with cosine similarity.
*/
package text

import (
	"regexp"
	"strings"
)

// SitePrefix marks synthetic domain tokens.
const SitePrefix = "site:"

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {},
	"in": {}, "for": {}, "on": {}, "at": {}, "near": {}, "me": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "with": {}, "from": {}, "by": {},
}

// genericLabels are domain labels that carry no topical meaning.
var genericLabels = map[string]struct{}{
	"www": {}, "m": {}, "com": {}, "co": {}, "org": {}, "net": {}, "io": {},
}

// IsStopWord reports whether tok is filtered during tokenization.
func IsStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}

// Words returns the filtered unigrams of s in order.
func Words(s string) []string {
	raw := wordPattern.FindAllString(strings.ToLower(s), -1)
	out := raw[:0]
	for _, w := range raw {
		if len(w) < 2 || IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Tokenize returns unigrams followed by adjacent bigrams joined with '_'.
func Tokenize(s string) []string {
	words := Words(s)
	if len(words) < 2 {
		return words
	}
	out := make([]string, 0, 2*len(words)-1)
	out = append(out, words...)
	for i := 0; i+1 < len(words); i++ {
		out = append(out, words[i]+"_"+words[i+1])
	}
	return out
}

// SiteToken returns the synthetic token for a domain.
func SiteToken(domain string) string {
	return SitePrefix + strings.ToLower(domain)
}

// IsSiteToken reports whether tok is a synthetic domain token.
func IsSiteToken(tok string) bool {
	return strings.HasPrefix(tok, SitePrefix)
}

// DomainTokens returns the site token plus the meaningful labels of domain.
// The last label (the TLD) and generic labels are skipped.
func DomainTokens(domain string) []string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil
	}
	out := []string{SiteToken(domain)}
	labels := strings.Split(domain, ".")
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	for _, l := range labels {
		if _, generic := genericLabels[l]; generic {
			continue
		}
		out = append(out, Words(l)...)
	}
	return out
}

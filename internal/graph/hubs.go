package graph

import (
	"sort"
	"strings"
)

// DefaultHubDomains are domains so common in any history that their
// co-occurrence with a query says nothing about the query.
var DefaultHubDomains = []string{"google.com", "youtube.com", "wikipedia.org"}

// HubSet is an immutable set of hub domains. The zero value contains nothing.
type HubSet struct {
	exact    map[string]struct{}
	families map[string]struct{}
}

// NewHubSet builds a hub set from domain names.
func NewHubSet(domains ...string) HubSet {
	h := HubSet{
		exact:    make(map[string]struct{}, len(domains)),
		families: make(map[string]struct{}, len(domains)),
	}
	for _, d := range domains {
		d = stripHostPrefix(strings.ToLower(strings.TrimSpace(d)))
		if d == "" {
			continue
		}
		h.exact[d] = struct{}{}
		if i := strings.IndexByte(d, '.'); i > 0 {
			h.families[d[:i]] = struct{}{}
		}
	}
	return h
}

// IsHub reports whether domain is a hub or a country-code variant of one
// (google.de, google.co.uk, google.com.au for google.com).
func (h HubSet) IsHub(domain string) bool {
	if len(h.exact) == 0 {
		return false
	}
	d := stripHostPrefix(strings.ToLower(strings.TrimSpace(domain)))
	if _, ok := h.exact[d]; ok {
		return true
	}

	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return false
	}
	if _, ok := h.families[labels[0]]; !ok {
		return false
	}
	return isCountrySuffix(labels[1:])
}

// Domains returns the configured hubs in sorted order.
func (h HubSet) Domains() []string {
	out := make([]string, 0, len(h.exact))
	for d := range h.exact {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of configured hubs.
func (h HubSet) Len() int {
	return len(h.exact)
}

func stripHostPrefix(d string) string {
	for _, p := range []string{"www.", "m."} {
		if strings.HasPrefix(d, p) {
			return d[len(p):]
		}
	}
	return d
}

func isCountrySuffix(rest []string) bool {
	switch len(rest) {
	case 1:
		return len(rest[0]) == 2
	case 2:
		return (rest[0] == "co" || rest[0] == "com") && len(rest[1]) == 2
	}
	return false
}

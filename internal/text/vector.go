package text

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Vector is a sparse term-weight vector.
type Vector map[string]float64

// sortedKeys returns the terms of m in ascending order. Float sums over a
// vector or document run in this order so results are bit-identical across
// calls.
func sortedKeys[M ~map[string]float64](m M) []string {
	keys := make([]string, 0, len(m))
	for t := range m {
		keys = append(keys, t)
	}
	sort.Strings(keys)
	return keys
}

// Norm returns the euclidean length of v.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, t := range sortedKeys(v) {
		w := v[t]
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b, 0 if either is empty.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	dot := 0.0
	for _, t := range sortedKeys(a) {
		dot += a[t] * b[t]
	}
	if dot == 0 {
		return 0.0
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (na * nb)
}

// AddScaled adds scale*other into v.
func (v Vector) AddScaled(other Vector, scale float64) {
	for t, w := range other {
		v[t] += w * scale
	}
}

// Scale multiplies every weight by f.
func (v Vector) Scale(f float64) {
	for t := range v {
		v[t] *= f
	}
}

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for t, w := range v {
		out[t] = w
	}
	return out
}

// Term is a weighted vector component.
type Term struct {
	Token  string
	Weight float64
}

// Top returns the n heaviest terms accepted by keep, ties broken by token.
// A nil keep accepts every term.
func (v Vector) Top(n int, keep func(string) bool) []Term {
	terms := make([]Term, 0, len(v))
	for t, w := range v {
		if w <= 0 || (keep != nil && !keep(t)) {
			continue
		}
		terms = append(terms, Term{Token: t, Weight: w})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Token < terms[j].Token
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Document is a bag of weighted raw terms.
type Document map[string]float64

// Add increments the raw weight of every token by w.
func (d Document) Add(tokens []string, w float64) {
	for _, t := range tokens {
		d[t] += w
	}
}

// Vectorize fits TF-IDF over docs and returns one vector per document, in
// input order. tf is normalized by document mass; idf = ln((N+1)/(df+1)) + 1.
// Work is split across workers goroutines (NumCPU when <= 0).
func Vectorize(ctx context.Context, docs []Document, workers int) ([]Vector, error) {
	df := make(map[string]int)
	for _, d := range docs {
		for t, w := range d {
			if w > 0 {
				df[t]++
			}
		}
	}
	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for t, c := range df {
		idf[t] = math.Log((n+1.0)/(float64(c)+1.0)) + 1.0
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]Vector, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(docs) + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}
	for start := 0; start < len(docs); start += chunk {
		start, end := start, start+chunk
		if end > len(docs) {
			end = len(docs)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = weigh(docs[i], idf)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func weigh(d Document, idf map[string]float64) Vector {
	total := 0.0
	for _, t := range sortedKeys(d) {
		if w := d[t]; w > 0 {
			total += w
		}
	}
	v := make(Vector, len(d))
	if total == 0 {
		return v
	}
	for t, w := range d {
		if w > 0 {
			v[t] = (w / total) * idf[t]
		}
	}
	return v
}

package suits

import (
	"math"
	"sort"

	"github.com/khanglvm/history-suits/internal/community"
	"github.com/khanglvm/history-suits/internal/graph"
	"github.com/khanglvm/history-suits/internal/text"
	"go.uber.org/zap"
)

const (
	// DefaultSeedPSignalMin gates which queries may seed or join a suit.
	DefaultSeedPSignalMin = 0.35

	// DefaultSeedMaxItems caps the number of seeds considered.
	DefaultSeedMaxItems = 6000

	// DefaultSimThreshold is the cosine needed to merge a seed into a suit.
	DefaultSimThreshold = 0.27

	// DefaultMaxSuits caps the number of suits created.
	DefaultMaxSuits = 8

	// labelTokens is the number of centroid tokens used for a label.
	labelTokens = 4
)

// Options configure the seeder.
type Options struct {
	SeedPSignalMin float64
	MinQuality     float64
	SeedMaxItems   int
	SimThreshold   float64
	MaxSuits       int
	Logger         *zap.Logger
}

// DefaultOptions returns the stock seeder configuration.
func DefaultOptions() Options {
	return Options{
		SeedPSignalMin: DefaultSeedPSignalMin,
		MinQuality:     0.25,
		SeedMaxItems:   DefaultSeedMaxItems,
		SimThreshold:   DefaultSimThreshold,
		MaxSuits:       DefaultMaxSuits,
	}
}

// seed is a scored candidate.
type seed struct {
	idx   int
	score float64
}

// building tracks a suit under construction.
type building struct {
	suit    *Suit
	members []int
}

// Discover grows suits greedily from the highest-scoring seeds. Seeds are
// visited in (score desc, id asc) order; each joins the most similar suit if
// the cosine reaches SimThreshold and otherwise opens a new suit, unless
// MaxSuits is already reached, in which case it is dropped.
func Discover(cat *Catalog, comms *community.Result, opts Options) []*Suit {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	seeds := scoreSeeds(cat, opts)
	if opts.SeedMaxItems > 0 && len(seeds) > opts.SeedMaxItems {
		seeds = seeds[:opts.SeedMaxItems]
	}

	var built []*building
	dropped := 0
	for _, sd := range seeds {
		vec := cat.Vectors[sd.idx]

		best, bestSim := -1, -1.0
		for i, b := range built {
			sim := text.Cosine(vec, b.suit.Centroid)
			if sim > bestSim {
				best, bestSim = i, sim
			}
		}

		if best >= 0 && bestSim >= opts.SimThreshold {
			b := built[best]
			n := float64(len(b.members))
			b.suit.Centroid.Scale(n / (n + 1))
			b.suit.Centroid.AddScaled(vec, 1/(n+1))
			b.members = append(b.members, sd.idx)
			continue
		}

		if len(built) >= opts.MaxSuits {
			dropped++
			continue
		}
		built = append(built, &building{
			suit:    &Suit{Centroid: vec.Clone()},
			members: []int{sd.idx},
		})
	}

	out := make([]*Suit, 0, len(built))
	for _, b := range built {
		s := b.suit
		for _, idx := range b.members {
			s.Members = append(s.Members, cat.Items[idx].ID)
			s.Mass += cat.Items[idx].Mass
		}
		s.Label = labelFor(s.Centroid, labelTokens)
		s.CommunityID = majorityCommunity(s.Members, comms)
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Mass > out[j].Mass })
	for i, s := range out {
		s.ID = i + 1
	}

	logger.Debug("suits discovered",
		zap.Int("seeds", len(seeds)),
		zap.Int("suits", len(out)),
		zap.Int("dropped_seeds", dropped))
	return out
}

// scoreSeeds ranks eligible queries by psignal * (persistence + mass) / 2.
func scoreSeeds(cat *Catalog, opts Options) []seed {
	var eligible []int
	maxDF, maxMass := 0, 0.0
	for i, it := range cat.Items {
		if it.Kind != graph.KindQuery || it.PSignal < opts.SeedPSignalMin || it.Quality < opts.MinQuality {
			continue
		}
		if len(cat.Vectors[i]) == 0 {
			continue
		}
		eligible = append(eligible, i)
		if it.SessionDF > maxDF {
			maxDF = it.SessionDF
		}
		maxMass = math.Max(maxMass, it.Mass)
	}

	seeds := make([]seed, 0, len(eligible))
	for _, i := range eligible {
		it := cat.Items[i]
		persistence, mass := 0.0, 0.0
		if maxDF > 0 {
			persistence = float64(it.SessionDF) / float64(maxDF)
		}
		if maxMass > 0 {
			mass = it.Mass / maxMass
		}
		seeds = append(seeds, seed{idx: i, score: it.PSignal * 0.5 * (persistence + mass)})
	}

	sort.SliceStable(seeds, func(a, b int) bool {
		if seeds[a].score != seeds[b].score {
			return seeds[a].score > seeds[b].score
		}
		return cat.Items[seeds[a].idx].ID < cat.Items[seeds[b].idx].ID
	})
	return seeds
}

// majorityCommunity returns the most common community among members, ties
// resolving to the smaller id, or community.Unassigned.
func majorityCommunity(members []graph.NodeID, comms *community.Result) int {
	counts := make(map[int]int)
	for _, id := range members {
		if c := comms.CommunityOf(id); c != community.Unassigned {
			counts[c]++
		}
	}
	best, bestCount := community.Unassigned, 0
	for c, n := range counts {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best
}

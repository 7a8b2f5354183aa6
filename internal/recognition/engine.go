// Package recognition implements the gallery matching engine: a full scan
// of every stored gallery image, pairwise verification through the face
// service, per-identity aggregation and similarity ranking.
package recognition

import (
	"context"
	"os"
	"sort"

	log "github.com/sirupsen/logrus"

	"face-roster-go/internal/apperrors"
	"face-roster-go/internal/imaging"
	"face-roster-go/internal/integrations/faceservice"
	"face-roster-go/internal/store"
)

// Policy selects how multiple gallery images of one identity are reduced
// during a scan.
type Policy string

const (
	// PolicyFirstMatch stops comparing an identity's remaining gallery
	// images once one of them verifies.
	PolicyFirstMatch Policy = "first_match"

	// PolicyBestMatch compares every gallery image and keeps the highest
	// similarity per identity.
	PolicyBestMatch Policy = "best_match"
)

// ParsePolicy maps a config string onto a Policy, defaulting to first-match.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyBestMatch {
		return PolicyBestMatch
	}
	return PolicyFirstMatch
}

// MatchCandidate is one ranked recognition result. Similarity is 1 minus
// the verification distance, in [0, 1].
type MatchCandidate struct {
	IdentityID string  `json:"id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	ImagePath  string  `json:"image_path"`
}

// Engine scans all known galleries for a query image. The linear scan is
// fine at small identity counts; the interface is shaped so an indexed
// nearest-neighbor structure can replace it without changing callers.
type Engine struct {
	store    *store.IdentityStore
	provider faceservice.Provider
	policy   Policy
}

// NewEngine creates a matching engine with the given reduction policy.
func NewEngine(st *store.IdentityStore, provider faceservice.Provider, policy Policy) *Engine {
	return &Engine{
		store:    st,
		provider: provider,
		policy:   policy,
	}
}

// Recognize compares the query image against every stored gallery entry
// and returns one candidate per verified identity, most similar first.
// Per-pair verification errors are skipped; only an undecodable query or
// an unreachable embedding service fails the whole call.
func (e *Engine) Recognize(ctx context.Context, query []byte) ([]MatchCandidate, error) {
	if _, err := imaging.Decode(query); err != nil {
		return nil, err
	}

	// One extraction for the query, shared across all comparisons. It
	// doubles as the reachability check for the embedding service.
	if _, err := e.provider.Represent(ctx, query); err != nil {
		return nil, apperrors.ErrExtractionUnavailable.WithError(err)
	}

	entries, err := e.store.GalleryEntries()
	if err != nil {
		return nil, err
	}

	best := make(map[string]*MatchCandidate)
	for _, entry := range entries {
		if e.policy == PolicyFirstMatch {
			if _, accepted := best[entry.IdentityID]; accepted {
				continue
			}
		}

		galleryData, err := os.ReadFile(entry.Path)
		if err != nil {
			log.WithError(err).Debugf("Skipping unreadable gallery image %s", entry.Path)
			continue
		}

		verification, err := e.provider.Verify(ctx, query, galleryData)
		if err != nil {
			log.WithError(err).Debugf("Skipping failed comparison against %s", entry.Path)
			continue
		}
		if !verification.Verified {
			continue
		}

		similarity := 1 - verification.Distance
		current, ok := best[entry.IdentityID]
		if !ok || similarity > current.Similarity {
			best[entry.IdentityID] = &MatchCandidate{
				IdentityID: entry.IdentityID,
				Name:       entry.Name,
				Similarity: similarity,
				ImagePath:  entry.Path,
			}
		}
	}

	candidates := make([]MatchCandidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, *c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// TopMatches is the caller-side reduction: keep the maximum-similarity
// candidate per identity, re-sort descending and truncate to k.
func TopMatches(candidates []MatchCandidate, k int) []MatchCandidate {
	best := make(map[string]MatchCandidate)
	for _, c := range candidates {
		if current, ok := best[c.IdentityID]; !ok || c.Similarity > current.Similarity {
			best[c.IdentityID] = c
		}
	}

	top := make([]MatchCandidate, 0, len(best))
	for _, c := range best {
		top = append(top, c)
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].Similarity > top[j].Similarity
	})
	if k > 0 && len(top) > k {
		top = top[:k]
	}
	return top
}

package catalog

import (
	"cmp"
	"context"
	"path/filepath"
	"slices"
	"strings"

	"inpaint/internal/textutil"
)

// Match is one search hit.
type Match struct {
	Kind   string  `json:"kind"`
	Name   string  `json:"name"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score"`
}

// Match kinds.
const (
	MatchSource = "source"
	MatchTarget = "target"
)

type document struct {
	match       Match
	fingerprint *textutil.Fingerprint
}

// Search ranks assigned records by how well their name, description, and
// tags match query. Results are ordered by descending score, then name.
// A limit of zero or less returns every hit.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	needle := textutil.NewFingerprint(query)
	if needle == nil {
		return nil, nil
	}

	sources, err := s.repo.ReadSources(ctx)
	if err != nil {
		return nil, err
	}
	var docs []document
	corpus := textutil.NewCorpus()
	add := func(m Match, parts ...string) {
		fp := textutil.NewFingerprint(parts...)
		corpus.Add(fp)
		docs = append(docs, document{match: m, fingerprint: fp})
	}
	for _, src := range sources {
		add(Match{Kind: MatchSource, Name: src.Name}, searchName(src.Name), src.Description, strings.Join(src.Tags, " "))
		targets, err := s.repo.ReadTargets(ctx, src)
		if err != nil {
			return nil, err
		}
		for _, tgt := range targets {
			add(Match{Kind: MatchTarget, Name: tgt.Name, Source: src.Name}, searchName(tgt.Name), tgt.Description)
		}
	}

	idf := corpus.IDF()
	weighted := needle.Weighted(idf)
	var matches []Match
	for _, doc := range docs {
		score := textutil.Cosine(weighted, doc.fingerprint.Weighted(idf))
		if score <= 0 {
			continue
		}
		m := doc.match
		m.Score = score
		matches = append(matches, m)
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// searchName drops directories and the extension from image paths.
func searchName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

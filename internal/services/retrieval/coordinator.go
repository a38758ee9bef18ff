// Package retrieval gathers supporting guide excerpts for a loan scenario
// by fanning out semantic queries to the embedding and vector-search
// collaborators.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sage-engine/internal/models"
	"sage-engine/internal/services/vectorstore"
	"sage-engine/internal/utils"
)

// ErrNoGuideContext signals that no guide excerpts were retrieved. The
// caller decides its own fallback; the coordinator does not retry.
var ErrNoGuideContext = errors.New("no guide context retrieved")

// Embedder generates an embedding vector for a text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// Searcher queries a vector index with a metadata filter.
type Searcher interface {
	Query(ctx context.Context, vector []float64, topK int, filter map[string]any) ([]vectorstore.Match, error)
}

// Retrieval is one retrieved guide excerpt with its originating query.
type Retrieval struct {
	Category       string
	Query          string
	SectionID      string
	SectionTitle   string
	GSE            models.GSE
	RelevanceScore float64
	Snippet        string
	SourceURL      string
}

// Citation converts the retrieval into a guide citation.
func (r Retrieval) Citation() models.GuideCitation {
	score := r.RelevanceScore
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	snippet := r.Snippet
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	return models.GuideCitation{
		SectionID:      r.SectionID,
		GSE:            r.GSE,
		Snippet:        snippet,
		RelevanceScore: score,
	}
}

// eligibilityQueries maps each rule category to one query template per
// product. {property_type} is interpolated from the scenario.
var eligibilityQueries = map[string][]string{
	"credit_score": {
		"HomeReady minimum credit score requirements eligibility",
		"Home Possible minimum credit score requirements eligibility",
	},
	"ltv": {
		"HomeReady maximum LTV loan-to-value ratio requirements {property_type}",
		"Home Possible maximum LTV loan-to-value ratio requirements {property_type}",
	},
	"dti": {
		"HomeReady maximum DTI debt-to-income ratio requirements",
		"Home Possible maximum DTI debt-to-income ratio requirements",
	},
	"occupancy": {
		"HomeReady occupancy requirements primary residence",
		"Home Possible occupancy requirements primary residence",
	},
	"property_type": {
		"HomeReady eligible property types {property_type}",
		"Home Possible eligible property types {property_type}",
	},
	"income_limit": {
		"HomeReady income limits area median income AMI",
		"Home Possible income limits area median income AMI",
	},
}

const (
	topKPerQuery  = 3
	maxRetrievals = 12
)

// Coordinator fans out guide queries, deduplicates, ranks, and caps the
// merged result set. Individual query failures are tolerated; they never
// abort the batch.
type Coordinator struct {
	embedder Embedder
	searcher Searcher
}

// NewCoordinator creates a retrieval coordinator.
func NewCoordinator(embedder Embedder, searcher Searcher) *Coordinator {
	return &Coordinator{embedder: embedder, searcher: searcher}
}

// RetrieveEligibilityContext runs the full catalog of rule-category
// queries concurrently for the scenario and returns the merged excerpts,
// sorted descending by relevance and capped. Returns ErrNoGuideContext
// when every query came back empty.
func (c *Coordinator) RetrieveEligibilityContext(ctx context.Context, scenario *models.LoanScenario) ([]Retrieval, error) {
	propertyLabel := strings.ReplaceAll(string(scenario.PropertyType), "_", " ")

	type querySpec struct {
		category  string
		query     string
		gseFilter models.GSE
	}

	var specs []querySpec
	for category, templates := range eligibilityQueries {
		for _, template := range templates {
			gse := models.GSEFreddieMac
			if strings.Contains(template, "HomeReady") {
				gse = models.GSEFannieMae
			}
			specs = append(specs, querySpec{
				category:  category,
				query:     strings.ReplaceAll(template, "{property_type}", propertyLabel),
				gseFilter: gse,
			})
		}
	}

	var mu sync.Mutex
	var all []Retrieval

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			results, err := c.Search(gctx, spec.query, spec.gseFilter, topKPerQuery)
			if err != nil {
				// Degraded retrieval beats an aborted batch.
				utils.GetLogger().Warn("guide query failed",
					zap.String("category", spec.category),
					zap.String("gse", string(spec.gseFilter)),
					zap.Error(err),
				)
				return nil
			}
			for i := range results {
				results[i].Category = spec.category
			}
			mu.Lock()
			all = append(all, results...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	merged := Merge(all, maxRetrievals)
	if len(merged) == 0 {
		return nil, ErrNoGuideContext
	}
	return merged, nil
}

// Search embeds a single query and runs it against the index, filtered by
// GSE. An empty gse runs unfiltered.
func (c *Coordinator) Search(ctx context.Context, query string, gse models.GSE, topK int) ([]Retrieval, error) {
	vector, err := c.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	var filter map[string]any
	if gse != "" {
		filter = vectorstore.EqualityFilter("gse", string(gse))
	}

	matches, err := c.searcher.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, err
	}

	results := make([]Retrieval, 0, len(matches))
	for _, m := range matches {
		section := m.Metadata["section"]
		if section == "" {
			section = m.ID
		}
		matchGSE := models.GSE(m.Metadata["gse"])
		if matchGSE == "" {
			matchGSE = gse
		}
		results = append(results, Retrieval{
			Query:          query,
			SectionID:      section,
			SectionTitle:   m.Metadata["title"],
			GSE:            matchGSE,
			RelevanceScore: m.Score,
			Snippet:        m.Metadata["text"],
			SourceURL:      m.Metadata["url"],
		})
	}
	return results, nil
}

// Merge deduplicates retrievals by section identity (first occurrence
// wins), sorts descending by relevance score, and truncates to cap.
func Merge(retrievals []Retrieval, cap int) []Retrieval {
	seen := make(map[string]bool)
	merged := make([]Retrieval, 0, len(retrievals))

	for _, r := range retrievals {
		key := string(r.GSE) + ":" + r.SectionID
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})

	if cap > 0 && len(merged) > cap {
		merged = merged[:cap]
	}
	return merged
}

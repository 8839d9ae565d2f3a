package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/habitsim/internal/models"
)

const defaultNameBoost = 2.0

type habitDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BleveIndex implements HabitIndex using an in-memory Bleve index.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates an empty in-memory index.
func NewBleveIndex() (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, so "run" does not match "running".
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	im.AddDocumentMapping("habit", docMapping)
	im.DefaultType = "habit"
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func toDoc(h models.Habit) habitDoc {
	return habitDoc{ID: h.ID, Name: models.Deref(h.Name), Description: models.Deref(h.Description)}
}

// Index adds or replaces a habit.
func (b *BleveIndex) Index(ctx context.Context, h models.Habit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.index.Index(h.ID, toDoc(h))
}

// Rebuild replaces the index contents with habits in one batch.
func (b *BleveIndex) Rebuild(ctx context.Context, habits []models.Habit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	batch := b.index.NewBatch()
	ids, err := b.allIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		batch.Delete(id)
	}
	for _, h := range habits {
		if err := batch.Index(h.ID, toDoc(h)); err != nil {
			return fmt.Errorf("failed to batch habit %s: %w", h.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to rebuild Bleve index: %w", err)
	}
	return nil
}

func (b *BleveIndex) allIDs() ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil || count == 0 {
		return nil, err
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Search runs a match query over name and description and returns up to limit hits.
// Name matches are boosted by opts.NameBoost (default 2).
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return []Hit{}, nil
	}

	nameBoost := defaultNameBoost
	fuzzy := false
	fuzziness := 1
	if opts != nil {
		if opts.NameBoost > 0 {
			nameBoost = opts.NameBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var q blevequery.Query
	if fuzzy {
		q = bleve.NewDisjunctionQuery(
			fuzzyQuery(terms, fuzziness, "name", nameBoost),
			fuzzyQuery(terms, fuzziness, "description", 1),
		)
	} else {
		nq := bleve.NewMatchQuery(query)
		nq.SetField("name")
		nq.SetBoost(nameBoost)
		dq := bleve.NewMatchQuery(query)
		dq.SetField("description")
		q = bleve.NewDisjunctionQuery(nq, dq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = Hit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

func fuzzyQuery(terms []string, fuzziness int, field string, boost float64) blevequery.Query {
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// Delete removes a habit from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed habits.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

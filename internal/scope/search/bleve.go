package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/dsjohal14/tourstack/internal/scope/record"
)

const (
	titleBoost = 5.0
	textBoost  = 1.0

	// defaultBleveLimit bounds searches that ask for no limit
	defaultBleveLimit = 1000
)

// bleveDocument is what gets indexed for each record
type bleveDocument struct {
	Kind  string
	Title string
	Text  string
}

// BleveEngine is a full-text engine with typo-tolerant matching.
// Searchable text is extracted with Text, so field rules match Matches.
type BleveEngine struct {
	index bleve.Index
	mu    sync.RWMutex
	docs  map[string]record.Value
}

// NewBleveEngine opens or creates an index at path; an empty path keeps the
// index in memory.
func NewBleveEngine(path string) (*BleveEngine, error) {
	var (
		idx bleve.Index
		err error
	)

	switch {
	case path == "":
		idx, err = bleve.NewMemOnly(buildMapping())
	case exists(path):
		idx, err = bleve.Open(path)
	default:
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	return &BleveEngine{
		index: idx,
		docs:  make(map[string]record.Value),
	}, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func buildMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	kindField := bleve.NewKeywordFieldMapping()
	kindField.Store = false
	docMapping.AddFieldMappingsAt("Kind", kindField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = false
	docMapping.AddFieldMappingsAt("Title", titleField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt("Text", textField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces a record
func (e *BleveEngine) Index(docID string, rec record.Value) error {
	doc := bleveDocument{
		Kind:  rec.GetString("kind"),
		Title: TitleOf(rec),
		Text:  strings.Join(Text(rec), "\n"),
	}
	if err := e.index.Index(docID, doc); err != nil {
		return fmt.Errorf("failed to index %s: %w", docID, err)
	}

	e.mu.Lock()
	e.docs[docID] = rec
	e.mu.Unlock()
	return nil
}

// IndexBatch indexes many records in one index batch
func (e *BleveEngine) IndexBatch(recs map[string]record.Value) error {
	batch := e.index.NewBatch()
	for docID, rec := range recs {
		doc := bleveDocument{
			Kind:  rec.GetString("kind"),
			Title: TitleOf(rec),
			Text:  strings.Join(Text(rec), "\n"),
		}
		if err := batch.Index(docID, doc); err != nil {
			return fmt.Errorf("failed to add %s to batch: %w", docID, err)
		}
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}

	e.mu.Lock()
	for docID, rec := range recs {
		e.docs[docID] = rec
	}
	e.mu.Unlock()
	return nil
}

// Remove drops a record from the index
func (e *BleveEngine) Remove(docID string) error {
	if err := e.index.Delete(docID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", docID, err)
	}
	e.mu.Lock()
	delete(e.docs, docID)
	e.mu.Unlock()
	return nil
}

// Search runs a fuzzy + prefix query over titles (boosted) and text
func (e *BleveEngine) Search(ctx context.Context, text string, q Query) ([]record.Value, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return nil, nil
	}

	var root query.Query = bleve.NewDisjunctionQuery(
		fieldQuery(tokens, "Title", titleBoost),
		fieldQuery(tokens, "Text", textBoost),
	)
	if q.Kind != "" {
		kindQ := bleve.NewTermQuery(q.Kind)
		kindQ.SetField("Kind")
		root = bleve.NewConjunctionQuery(root, kindQ)
	}

	size := q.Limit
	if size <= 0 {
		size = defaultBleveLimit
	}
	req := bleve.NewSearchRequestOptions(root, size, 0, false)

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	results := make([]record.Value, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if rec, ok := e.docs[hit.ID]; ok {
			results = append(results, rec)
		}
	}
	return results, nil
}

// fieldQuery requires every token to match field, each by fuzzy or prefix match
func fieldQuery(tokens []string, field string, boost float64) query.Query {
	perToken := make([]query.Query, 0, len(tokens))
	for _, token := range tokens {
		matchQ := bleve.NewMatchQuery(token)
		matchQ.SetField(field)
		matchQ.SetFuzziness(1)

		prefixQ := bleve.NewPrefixQuery(token)
		prefixQ.SetField(field)

		perToken = append(perToken, bleve.NewDisjunctionQuery(matchQ, prefixQ))
	}

	if len(perToken) == 1 {
		dq := perToken[0].(*query.DisjunctionQuery)
		dq.SetBoost(boost)
		return dq
	}
	cq := bleve.NewConjunctionQuery(perToken...)
	cq.SetBoost(boost)
	return cq
}

// Count returns the number of indexed records
func (e *BleveEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Close closes the underlying index
func (e *BleveEngine) Close() error {
	return e.index.Close()
}

// Package search indexes extracted log messages for full-text lookup.
package search

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/mvp-joe/logsift/internal/batch"
	"github.com/mvp-joe/logsift/internal/extractor"
)

const (
	defaultLimit = 20
	maxLimit     = 500
	batchSize    = 1000
)

// Options narrows a search. Zero fields match everything.
type Options struct {
	Severity extractor.Severity
	// FilePath is a wildcard pattern, e.g. "*/handlers/*".
	FilePath string
	Limit    int
}

// Hit is one matching log record.
type Hit struct {
	FilePath   string             `json:"file_path"`
	Line       int                `json:"line_number"`
	Severity   extractor.Severity `json:"log_level"`
	Message    string             `json:"log_message"`
	Score      float64            `json:"score"`
	Highlights []string           `json:"highlights,omitempty"`
}

// Index is an in-memory bleve index over log records. It is safe for
// concurrent use.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
	// ids maps a file path to the document ids indexed for it.
	ids map[string][]string
}

// NewIndex creates an empty index.
func NewIndex() (*Index, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Index{index: index, ids: make(map[string][]string)}, nil
}

// buildMapping creates the index mapping for record documents.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	messageMapping := bleve.NewTextFieldMapping()
	messageMapping.Analyzer = "standard"
	messageMapping.Store = true
	messageMapping.Index = true
	messageMapping.IncludeTermVectors = true

	// Keyword analyzer for exact severity filtering.
	severityMapping := bleve.NewTextFieldMapping()
	severityMapping.Analyzer = "keyword"
	severityMapping.Store = true
	severityMapping.Index = true

	pathMapping := bleve.NewTextFieldMapping()
	pathMapping.Analyzer = "keyword"
	pathMapping.Store = true
	pathMapping.Index = true

	lineMapping := bleve.NewNumericFieldMapping()
	lineMapping.Store = true
	lineMapping.Index = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("message", messageMapping)
	docMapping.AddFieldMappingsAt("severity", severityMapping)
	docMapping.AddFieldMappingsAt("file_path", pathMapping)
	docMapping.AddFieldMappingsAt("line", lineMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func docID(path string, i int) string {
	return path + "#" + strconv.Itoa(i)
}

// IndexResults replaces the documents of every file in results. Failed
// files lose their documents.
func (x *Index) IndexResults(ctx context.Context, results []batch.FileResult) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	b := x.index.NewBatch()
	flush := func() error {
		if b.Size() == 0 {
			return nil
		}
		if err := x.index.Batch(b); err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
		b = x.index.NewBatch()
		return nil
	}

	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, id := range x.ids[res.Path] {
			b.Delete(id)
		}
		delete(x.ids, res.Path)
		if res.Err != nil {
			continue
		}

		ids := make([]string, 0, len(res.Records))
		for i, rec := range res.Records {
			id := docID(res.Path, i)
			doc := map[string]interface{}{
				"message":   rec.Message,
				"severity":  string(rec.Severity),
				"file_path": res.Path,
				"line":      rec.Line,
			}
			if err := b.Index(id, doc); err != nil {
				return fmt.Errorf("failed to add %s to batch: %w", id, err)
			}
			ids = append(ids, id)
			if b.Size() >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if len(ids) > 0 {
			x.ids[res.Path] = ids
		}
	}
	return flush()
}

// RemoveFile drops the documents of one file.
func (x *Index) RemoveFile(path string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	b := x.index.NewBatch()
	for _, id := range x.ids[path] {
		b.Delete(id)
	}
	delete(x.ids, path)
	if err := x.index.Batch(b); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Count returns the number of indexed records.
func (x *Index) Count() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.index.DocCount()
}

// Search runs a query-string query over messages. An empty query matches
// every record.
func (x *Index) Search(ctx context.Context, queryStr string, opts Options) ([]Hit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	var queries []query.Query
	if queryStr == "" {
		queries = append(queries, bleve.NewMatchAllQuery())
	} else {
		queries = append(queries, bleve.NewQueryStringQuery(queryStr))
	}
	if opts.Severity != "" {
		q := bleve.NewTermQuery(string(opts.Severity))
		q.SetField("severity")
		queries = append(queries, q)
	}
	if opts.FilePath != "" {
		q := bleve.NewWildcardQuery(opts.FilePath)
		q.SetField("file_path")
		queries = append(queries, q)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	req.Fields = []string{"message", "severity", "file_path", "line"}
	if queryStr != "" {
		style := "html"
		req.Highlight = bleve.NewHighlight()
		req.Highlight.Style = &style
		req.Highlight.Fields = []string{"message"}
	} else {
		req.SortBy([]string{"file_path", "line"})
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Score: h.Score}
		hit.Message, _ = h.Fields["message"].(string)
		hit.FilePath, _ = h.Fields["file_path"].(string)
		if sev, ok := h.Fields["severity"].(string); ok {
			hit.Severity = extractor.Severity(sev)
		}
		if line, ok := h.Fields["line"].(float64); ok {
			hit.Line = int(line)
		}
		for _, snippets := range h.Fragments {
			hit.Highlights = append(hit.Highlights, snippets...)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.index.Close()
}

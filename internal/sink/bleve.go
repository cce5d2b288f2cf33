package sink

import (
	"context"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

// bleveDoc is the indexed form of a record.
type bleveDoc struct {
	Path       string `json:"path"`
	Language   string `json:"language"`
	Content    string `json:"content"`
	Breadcrumb string `json:"breadcrumb"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
}

// BleveSink maintains a full-text index of chunk contents.
type BleveSink struct {
	index bleve.Index
}

// SearchHit is one full-text match.
type SearchHit struct {
	ID        string  `json:"id"`
	Score     float64 `json:"score"`
	Path      string  `json:"path"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
}

// bleveMapping keeps path, language and breadcrumb as exact keywords so
// DeletePath can match them with a term query.
func bleveMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("language", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("breadcrumb", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("content", bleve.NewTextFieldMapping())
	doc.AddFieldMappingsAt("start_line", bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt("end_line", bleve.NewNumericFieldMapping())
	im.DefaultMapping = doc

	return im
}

// OpenBleve opens the index at path, creating it if needed.
func OpenBleve(path string) (*BleveSink, error) {
	var (
		index bleve.Index
		err   error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		index, err = bleve.Open(path)
	} else {
		index, err = bleve.New(path, bleveMapping())
	}
	if err != nil {
		return nil, errors.SinkError("failed to open bleve index", err)
	}
	return &BleveSink{index: index}, nil
}

// Write indexes the batch.
func (s *BleveSink) Write(ctx context.Context, records []Record) error {
	batch := s.index.NewBatch()
	for i := range records {
		r := &records[i]
		if err := batch.Index(r.ID, bleveDoc{
			Path:       r.Path,
			Language:   r.Language,
			Content:    r.Content,
			Breadcrumb: strings.Join(r.Breadcrumb(), " > "),
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
		}); err != nil {
			return errors.SinkError("failed to add record to batch", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.index.Batch(batch); err != nil {
		return errors.SinkError("failed to index batch", err)
	}
	return nil
}

// DeletePath removes every document of path.
func (s *BleveSink) DeletePath(ctx context.Context, path string) error {
	q := bleve.NewTermQuery(path)
	q.SetField("path")

	for {
		res, err := s.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, 1000, 0, false))
		if err != nil {
			return errors.SinkError("failed to find documents", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return errors.SinkError("failed to delete documents", err)
		}
	}
}

// Search runs a match query over chunk contents.
func (s *BleveSink) Search(ctx context.Context, query string, size int) ([]SearchHit, error) {
	if size <= 0 {
		size = 10
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), size, 0, false)
	req.Fields = []string{"path", "start_line", "end_line"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.SinkError("search failed", err)
	}

	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := SearchHit{ID: h.ID, Score: h.Score}
		if p, ok := h.Fields["path"].(string); ok {
			hit.Path = p
		}
		if v, ok := h.Fields["start_line"].(float64); ok {
			hit.StartLine = int(v)
		}
		if v, ok := h.Fields["end_line"].(float64); ok {
			hit.EndLine = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (s *BleveSink) Count() (uint64, error) {
	return s.index.DocCount()
}

// Close closes the index.
func (s *BleveSink) Close() error {
	return s.index.Close()
}

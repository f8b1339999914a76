package server

import (
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/opencivic/alignator/models"
)

// SearchIndex is an in-memory bleve index over the documents of the most
// recent scoring run, backing the dashboard's keyword search.
type SearchIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

type indexedDocument struct {
	Sponsor string   `json:"sponsor"`
	Text    string   `json:"text"`
	Topics  []string `json:"topics,omitempty"`
}

// NewSearchIndex creates an empty index.
func NewSearchIndex() (*SearchIndex, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &SearchIndex{index: idx}, nil
}

// Rebuild replaces the index contents with the given documents.
func (s *SearchIndex) Rebuild(docs []models.Document) error {
	fresh, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return err
	}
	for _, d := range docs {
		err := fresh.Index(d.ID, indexedDocument{
			Sponsor: d.Sponsor,
			Text:    d.Text,
			Topics:  d.Topics,
		})
		if err != nil {
			return err
		}
	}
	s.mu.Lock()
	old := s.index
	s.index = fresh
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// SearchHit is one matched document.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// Search runs a query-string search and returns up to size hits.
func (s *SearchIndex) Search(q string, size int) ([]SearchHit, error) {
	if size <= 0 {
		size = 20
	}
	s.mu.RLock()
	idx := s.index
	s.mu.RUnlock()

	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, size, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, SearchHit{DocumentID: h.ID, Score: h.Score})
	}
	return hits, nil
}

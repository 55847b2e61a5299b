package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"
)

// SearchService indexes entity documents and runs full-text lookups on them.
type SearchService struct {
	ES             *elasticsearch.Client
	UsersIndex     string
	AddressesIndex string
	Logger         *logrus.Logger
}

func NewSearchService(es *elasticsearch.Client, usersIndex, addressesIndex string, logger *logrus.Logger) *SearchService {
	return &SearchService{ES: es, UsersIndex: usersIndex, AddressesIndex: addressesIndex, Logger: logger}
}

var searchFields = map[string][]string{
	userKind:    {"firstName^2", "lastName^2", "email", "phone"},
	addressKind: {"streetName^2", "city^2", "state", "zipCode", "name"},
}

func (s *SearchService) index(kind string) string {
	switch kind {
	case userKind:
		return s.UsersIndex
	case addressKind:
		return s.AddressesIndex
	}
	return ""
}

// Index stores doc under id in the index of kind.
func (s *SearchService) Index(ctx context.Context, kind string, id int, doc json.RawMessage) error {
	idx := s.index(kind)
	if s.ES == nil || idx == "" {
		return nil
	}
	req := esapi.IndexRequest{Index: idx, DocumentID: strconv.Itoa(id), Body: strings.NewReader(string(doc)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es index %s/%d: %w", idx, id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s/%d: %s", idx, id, res.Status())
	}
	return nil
}

// Remove deletes the document of kind with id. A missing document is not an error.
func (s *SearchService) Remove(ctx context.Context, kind string, id int) error {
	idx := s.index(kind)
	if s.ES == nil || idx == "" {
		return nil
	}
	req := esapi.DeleteRequest{Index: idx, DocumentID: strconv.Itoa(id)}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es delete %s/%d: %w", idx, id, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("es delete %s/%d: %s", idx, id, res.Status())
	}
	return nil
}

// Search performs a multi_match query over the indexed documents of kind.
func (s *SearchService) Search(ctx context.Context, kind, q string, size int) ([]map[string]any, error) {
	idx := s.index(kind)
	if s.ES == nil || idx == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": searchFields[kind],
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(idx), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("es search %s: %s", idx, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// Apply routes an entity change to Index or Remove.
func (s *SearchService) Apply(ctx context.Context, kind, op string, id int, doc json.RawMessage) error {
	if op == "delete" {
		return s.Remove(ctx, kind, id)
	}
	return s.Index(ctx, kind, id, doc)
}

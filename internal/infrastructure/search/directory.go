package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/reach-identity/internal/domain/entity"
)

// Directory indexes verified identities into Elasticsearch. Credentials and
// verification codes never leave the service.
type Directory struct {
	ES        *elasticsearch.Client
	IndexName string
	Timeout   time.Duration
}

func NewDirectory(es *elasticsearch.Client, index string) *Directory {
	return &Directory{ES: es, IndexName: index, Timeout: 3 * time.Second}
}

func document(u *entity.Identity) map[string]any {
	return map[string]any{
		"handle":     u.Handle,
		"kind":       u.Kind.String(),
		"username":   u.Username,
		"name":       u.DisplayName(),
		"email":      u.Email,
		"verified":   u.Verified,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
	}
}

// Index upserts u under its handle.
func (d *Directory) Index(ctx context.Context, u *entity.Identity) error {
	b, err := json.Marshal(document(u))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: d.IndexName, DocumentID: u.Handle, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	res, err := req.Do(c, d.ES)
	if err != nil {
		return fmt.Errorf("es index %s: %w", u.Handle, err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", u.Handle, res.Status())
	}
	return nil
}

// Search runs a multi_match over username, name and email. size is clamped to 1..50.
func (d *Directory) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "name", "email"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	res, err := d.ES.Search(d.ES.Search.WithContext(c), d.ES.Search.WithIndex(d.IndexName), d.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
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

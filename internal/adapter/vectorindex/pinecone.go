package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"kbchat/internal/port"
)

const defaultControlURL = "https://api.pinecone.io"

// PineconeIndex implements VectorIndex against the Pinecone REST API.
//
// The remote index is provisioned lazily: the first call checks whether the
// index exists and creates it if not. Initialization is guarded by a mutex
// so concurrent first callers share one attempt, and a failed attempt is
// retried on the next call rather than cached.
type PineconeIndex struct {
	apiKey     string
	indexName  string
	cloud      string
	region     string
	dimension  int
	controlURL string
	client     *http.Client

	mu    sync.Mutex
	host  string
	ready bool
}

// NewPineconeIndex creates a Pinecone-backed vector index. The API key is
// read from the named environment variable. No network calls happen here;
// the index is provisioned on first use.
func NewPineconeIndex(apiKeyEnv, indexName, cloud, region string, dimension int) (*PineconeIndex, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if indexName == "" {
		return nil, fmt.Errorf("pinecone index name is required")
	}

	return &PineconeIndex{
		apiKey:     apiKey,
		indexName:  indexName,
		cloud:      cloud,
		region:     region,
		dimension:  dimension,
		controlURL: defaultControlURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type indexDescription struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Status struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

// ensureReady provisions the remote index on first use (create-if-absent)
// and memoizes the data-plane host.
func (p *PineconeIndex) ensureReady(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}

	desc, status, err := p.describeIndex(ctx)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		if err := p.createIndex(ctx); err != nil {
			return err
		}
		desc, status, err = p.describeIndex(ctx)
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("describe index %s: unexpected status %d", p.indexName, status)
	}

	// A freshly created index may take a moment to become queryable.
	for !desc.Status.Ready {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
		desc, status, err = p.describeIndex(ctx)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("describe index %s: unexpected status %d", p.indexName, status)
		}
	}

	p.host = desc.Host
	p.ready = true
	return nil
}

func (p *PineconeIndex) describeIndex(ctx context.Context) (*indexDescription, int, error) {
	url := fmt.Sprintf("%s/indexes/%s", p.controlURL, p.indexName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("describe index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var desc indexDescription
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse index description: %w", err)
	}
	return &desc, resp.StatusCode, nil
}

func (p *PineconeIndex) createIndex(ctx context.Context) error {
	body := map[string]any{
		"name":      p.indexName,
		"dimension": p.dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{
				"cloud":  p.cloud,
				"region": p.region,
			},
		},
	}
	// 409 means another caller created it first; that is fine.
	return p.doJSON(ctx, http.MethodPost, p.controlURL+"/indexes", body, nil, http.StatusConflict)
}

// Upsert writes entries to the index in one batch call, replacing any
// existing entries with the same ids.
func (p *PineconeIndex) Upsert(ctx context.Context, entries []port.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := p.ensureReady(ctx); err != nil {
		return fmt.Errorf("pinecone init: %w", err)
	}

	vectors := make([]map[string]any, len(entries))
	for i, e := range entries {
		vectors[i] = map[string]any{
			"id":       e.ID,
			"values":   e.Vector,
			"metadata": e.Metadata,
		}
	}
	url := fmt.Sprintf("https://%s/vectors/upsert", p.host)
	if err := p.doJSON(ctx, http.MethodPost, url, map[string]any{"vectors": vectors}, nil); err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

// DeleteByFilter removes entries matching the metadata filter. Pinecone does
// not report how many vectors a filter delete removed, so the count is 0.
func (p *PineconeIndex) DeleteByFilter(ctx context.Context, f port.Filter) (int, error) {
	if err := p.ensureReady(ctx); err != nil {
		return 0, fmt.Errorf("pinecone init: %w", err)
	}

	url := fmt.Sprintf("https://%s/vectors/delete", p.host)
	body := map[string]any{"filter": metadataFilter(f)}
	if err := p.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return 0, fmt.Errorf("pinecone delete: %w", err)
	}
	return 0, nil
}

// Query runs an approximate nearest-neighbor search with an optional
// metadata filter.
func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int, f *port.Filter) ([]port.Match, error) {
	if err := p.ensureReady(ctx); err != nil {
		return nil, fmt.Errorf("pinecone init: %w", err)
	}
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	if f != nil && !f.IsZero() {
		body["filter"] = metadataFilter(*f)
	}

	var resp struct {
		Matches []struct {
			ID       string             `json:"id"`
			Score    float64            `json:"score"`
			Metadata port.EntryMetadata `json:"metadata"`
		} `json:"matches"`
	}
	url := fmt.Sprintf("https://%s/query", p.host)
	if err := p.doJSON(ctx, http.MethodPost, url, body, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]port.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, port.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: m.Metadata,
		})
	}
	return matches, nil
}

// metadataFilter translates a Filter into Pinecone's $eq filter syntax.
func metadataFilter(f port.Filter) map[string]any {
	out := map[string]any{}
	if f.DocumentID != "" {
		out["documentId"] = map[string]any{"$eq": f.DocumentID}
	}
	if f.SectionTitle != "" {
		out["sectionTitle"] = map[string]any{"$eq": f.SectionTitle}
	}
	if f.Language != "" {
		out["language"] = map[string]any{"$eq": f.Language}
	}
	return out
}

func (p *PineconeIndex) doJSON(ctx context.Context, method, url string, body, out any, okStatuses ...int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, s := range okStatuses {
		if resp.StatusCode == s {
			ok = true
		}
	}
	respBody, _ := io.ReadAll(resp.Body)
	if !ok {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return fmt.Errorf("%s %s returned status %d: %s", method, url, resp.StatusCode, preview)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient is a thin HTTP client for the index and search subcommands,
// which talk to a running kodit server.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// document mirrors the server's JSON:API envelope loosely enough for CLI
// output.
type document struct {
	Data   json.RawMessage `json:"data"`
	Errors []documentError `json:"errors"`
}

type documentError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

func (c *apiClient) post(ctx context.Context, path string, body any) (document, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return document{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return document{}, err
	}
	req.Header.Set("Content-Type", "application/vnd.api+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return document{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return document{}, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return document{}, fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if len(doc.Errors) > 0 {
			return document{}, fmt.Errorf("%s: %s", doc.Errors[0].Title, doc.Errors[0].Detail)
		}
		return document{}, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return doc, nil
}

func (doc document) single() (resource, error) {
	var r resource
	if err := json.Unmarshal(doc.Data, &r); err != nil {
		return resource{}, fmt.Errorf("decode resource: %w", err)
	}
	return r, nil
}

func (doc document) list() ([]resource, error) {
	var rs []resource
	if err := json.Unmarshal(doc.Data, &rs); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return rs, nil
}

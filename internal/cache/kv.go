package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/docmerge/internal/generator"
)

// KV stores entries in an HTTP key/value service speaking
// PUT/GET/DELETE /kv/{key} with bearer auth.
type KV struct {
	baseURL    string
	apiKey     string
	prefix     string
	ttl        time.Duration
	httpClient *http.Client
	now        func() time.Time
}

func NewKV(baseURL, apiKey, prefix string, ttl time.Duration) *KV {
	return &KV{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prefix:  strings.Trim(prefix, "/"),
		ttl:     ttl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// kvNode is the body for PUT /kv/{key}.
type kvNode struct {
	Value     json.RawMessage `json:"value"`
	Source    string          `json:"source,omitempty"`
	ExpiresAt string          `json:"expires_at,omitempty"`
}

// kvNodeResponse is the response from GET /kv/{key}.
type kvNodeResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

func (c *KV) url(key string) string {
	if c.prefix == "" {
		return c.baseURL + "/kv/" + key
	}
	return c.baseURL + "/kv/" + c.prefix + "/" + key
}

func (c *KV) Put(ctx context.Context, key string, artifacts []generator.Artifact) error {
	now := c.now()
	value, err := encodeEntry(key, artifacts, c.ttl, now)
	if err != nil {
		return &Error{Backend: "kv", Op: "put", Key: key, Err: err}
	}
	node := kvNode{Value: value, Source: "docmerge"}
	if c.ttl > 0 {
		node.ExpiresAt = now.Add(c.ttl).UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(node)
	if err != nil {
		return &Error{Backend: "kv", Op: "put", Key: key, Err: fmt.Errorf("marshal node: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(key), bytes.NewReader(body))
	if err != nil {
		return &Error{Backend: "kv", Op: "put", Key: key, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Backend: "kv", Op: "put", Key: key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &Error{Backend: "kv", Op: "put", Key: key, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}
	return nil
}

func (c *KV) Get(ctx context.Context, key string) ([]generator.Artifact, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
	if err != nil {
		return nil, false, &Error{Backend: "kv", Op: "get", Key: key, Err: fmt.Errorf("create request: %w", err)}
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, &Error{Backend: "kv", Op: "get", Key: key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, &Error{Backend: "kv", Op: "get", Key: key, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}

	var node kvNodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, false, &Error{Backend: "kv", Op: "get", Key: key, Err: fmt.Errorf("decode node: %w", err)}
	}
	artifacts, ok, err := decodeEntry(key, node.Value, c.now())
	if err != nil {
		return nil, false, &Error{Backend: "kv", Op: "get", Key: key, Err: err}
	}
	return artifacts, ok, nil
}

// Delete removes a fingerprint from the store.
func (c *KV) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url(key), nil)
	if err != nil {
		return &Error{Backend: "kv", Op: "delete", Key: key, Err: fmt.Errorf("create request: %w", err)}
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Backend: "kv", Op: "delete", Key: key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &Error{Backend: "kv", Op: "delete", Key: key, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))}
	}
	return nil
}

func (c *KV) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// Close releases idle connections.
func (c *KV) Close() {
	c.httpClient.CloseIdleConnections()
}

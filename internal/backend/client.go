/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the catalog API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new catalog client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Play is a minimal projection for listing.
type Play struct {
	ID        int64     `json:"id"`
	StableID  string    `json:"stable_id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// ListPlays returns the catalog contents (read-only).
func (c *Client) ListPlays(ctx context.Context) ([]Play, error) {
	var list []Play
	if err := c.doJSON(ctx, http.MethodGet, "/api/plays", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DocumentEnvelope matches the server response for the latest document of a play.
type DocumentEnvelope struct {
	PlayID    int64           `json:"play_id"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"created_at"`
	Document  json.RawMessage `json:"document"`
}

// GetDocument fetches the latest interchange document for a play.
func (c *Client) GetDocument(ctx context.Context, playID int64) (*DocumentEnvelope, error) {
	var env DocumentEnvelope
	path := fmt.Sprintf("/api/plays/%d/document", playID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// PublishResult is the server acknowledgement for a published play.
type PublishResult struct {
	PlayID  int64 `json:"play_id"`
	Version int64 `json:"version"`
}

// PublishPlay uploads an interchange document under the given title.
func (c *Client) PublishPlay(ctx context.Context, title string, document json.RawMessage) (*PublishResult, error) {
	var res PublishResult
	body := map[string]any{"title": title, "document": document}
	if err := c.doJSON(ctx, http.MethodPost, "/api/plays", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

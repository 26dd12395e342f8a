// Copyright (C) 2025 Logan Ross
//
// This file is part of Redirector.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/loganrossus/redirector/pkg/api"
)

// APIClient is the client for admin API communication.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient creates a new API client.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Get performs a GET request to the API and decodes the JSON body into result.
func (c *APIClient) Get(path string, result any) error {
	_, err := c.GetAccepting(path, result)
	return err
}

// GetAccepting is like Get but also decodes bodies for the extra status
// codes in accept. It returns the response status code.
func (c *APIClient) GetAccepting(path string, result any, accept ...int) (int, error) {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && !slices.Contains(accept, resp.StatusCode) {
		return resp.StatusCode, c.handleErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode API response: %w", err)
	}
	return resp.StatusCode, nil
}

// handleErrorResponse parses error responses from the API.
func (c *APIClient) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
	}

	if len(body) > 0 {
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return fmt.Errorf("API error: %s", resp.Status)
}

// URLEncode URL-encodes a string for path use.
func URLEncode(s string) string {
	return url.PathEscape(s)
}

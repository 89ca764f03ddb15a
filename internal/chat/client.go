package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memcardhq/memcard/pkg/logger"
)

// Client talks to the document chat service: one endpoint that takes a
// query and returns a generated meta-document over the user's uploaded
// material.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
		log: log,
	}
}

type metadocumentRequest struct {
	Query string `json:"query"`
}

type metadocumentResponse struct {
	Message      string `json:"message"`
	Metadocument string `json:"metadocument"`
}

type serviceError struct {
	Detail string `json:"detail"`
}

// GenerateMetadocument sends the query and returns the generated text.
// Service errors are surfaced with the remote message verbatim.
func (c *Client) GenerateMetadocument(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query must not be empty")
	}

	body, err := json.Marshal(metadocumentRequest{Query: query})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-metadocument", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("Requesting metadocument for query of %d chars", len(query))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var svcErr serviceError
		if err := json.Unmarshal(data, &svcErr); err == nil && svcErr.Detail != "" {
			return "", fmt.Errorf("chat service: %s", svcErr.Detail)
		}
		return "", fmt.Errorf("chat service returned status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var out metadocumentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	return out.Metadocument, nil
}

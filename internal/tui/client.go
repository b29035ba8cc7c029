package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"medrag/internal/domain"
)

// APIClient talks to the RAG service HTTP endpoints. The TUI consumes
// the same operations the service exposes to other callers.
type APIClient struct {
	baseURL string
	client  *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &APIClient{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Health reports whether the service has its index loaded.
func (c *APIClient) Health() (bool, error) {
	resp, err := c.client.Get(c.baseURL + "/health")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	var out struct {
		IndexLoaded bool `json:"index_loaded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK && out.IndexLoaded, nil
}

// Retrieve returns the top-k chunks for a query.
func (c *APIClient) Retrieve(query string, k int) ([]domain.RetrievedChunk, error) {
	var out []domain.RetrievedChunk
	if err := c.post("/retrieve", map[string]any{"query": query, "k": k}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Query returns a grounded answer for a question.
func (c *APIClient) Query(question string) (domain.AnswerWithCitations, error) {
	var out domain.AnswerWithCitations
	if err := c.post("/query", map[string]any{"question": question}, &out); err != nil {
		return domain.AnswerWithCitations{}, err
	}
	return out, nil
}

func (c *APIClient) post(path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(payload, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("service error: %s", apiErr.Error)
		}
		return fmt.Errorf("service error: %s", resp.Status)
	}
	return json.Unmarshal(payload, out)
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPEncoder calls an OpenAI-compatible /embeddings endpoint.
type HTTPEncoder struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

func (e HTTPEncoder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	if strings.TrimSpace(e.BaseURL) == "" {
		return nil, errors.New("EMBED_URL is not set")
	}
	if strings.TrimSpace(e.Model) == "" {
		return nil, errors.New("EMBED_MODEL is not set")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	payload := struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}{Model: e.Model, Input: texts}
	b, _ := json.Marshal(payload)

	url := strings.TrimRight(e.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(e.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding http error: %s", resp.Status)
	}

	var res struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if len(res.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(res.Data))
	}

	out := make([][]float64, len(res.Data))
	for i, d := range res.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

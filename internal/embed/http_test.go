package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPEncoder_Encode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-embed" {
			t.Errorf("unexpected model %q", req.Model)
		}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float64{float64(i), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	enc := HTTPEncoder{BaseURL: srv.URL, Model: "test-embed"}
	vecs, err := enc.Encode(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[1][0] != 1 {
		t.Fatalf("unexpected vector: %v", vecs[1])
	}
}

func TestHTTPEncoder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{}})
	}))
	defer srv.Close()

	enc := HTTPEncoder{BaseURL: srv.URL, Model: "test-embed"}
	if _, err := enc.Encode(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected count mismatch error")
	}
}

func TestHTTPEncoder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	enc := HTTPEncoder{BaseURL: srv.URL, Model: "test-embed"}
	if _, err := enc.Encode(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected http error")
	}
}

func TestHTTPEncoder_MissingConfig(t *testing.T) {
	if _, err := (HTTPEncoder{}).Encode(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected error without base url")
	}
}

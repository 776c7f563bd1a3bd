package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"ok\":true}  "}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "test-model"})
	out, err := c.Complete(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "test-model", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, []openAIMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "usr"}}, got.Messages)
}

func TestOpenAIClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 2})
	out, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAIClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL, MaxRetries: 3})
	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.EqualValues(t, 1, calls.Load())
}

func TestOpenAIClientAPIErrorAndEmptyChoices(t *testing.T) {
	apiErr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer apiErr.Close()
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()

	_, err := NewOpenAIClient(OpenAIConfig{BaseURL: apiErr.URL}).Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "model not found")

	_, err = NewOpenAIClient(OpenAIConfig{BaseURL: empty.URL}).Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "no completion returned")
}

func TestOpenAIClientWithService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"Start":"2025-01-06T09:00:00","End":"2025-01-10T18:00:00","Duration_mins":"45"}`
		resp := map[string]any{"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	svc := NewService(NewOpenAIClient(OpenAIConfig{BaseURL: srv.URL}), 0, nil)
	dr, err := svc.ExtractDateRange(context.Background(), DateRangeRequest{EmailContent: "this week"})
	require.NoError(t, err)
	assert.Equal(t, 45, dr.Minutes())
}

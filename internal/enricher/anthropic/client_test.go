package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComplete_SendsMessageRequest(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotVersion string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"title\":\"T\"}"}]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "ak-test", Model: "claude-3-5-haiku-20241022", Temperature: 0.3, BaseURL: srv.URL})
	text, err := client.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	require.Equal(t, `{"title":"T"}`, text)

	require.Equal(t, "/messages", gotPath)
	require.Equal(t, "ak-test", gotKey)
	require.Equal(t, "2023-06-01", gotVersion)
	require.Equal(t, "claude-3-5-haiku-20241022", gotBody["model"])
	require.Equal(t, "system prompt", gotBody["system"])
	require.EqualValues(t, 1024, gotBody["max_tokens"])

	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first := messages[0].(map[string]any)
	require.Equal(t, "user", first["role"])
	require.Equal(t, "user prompt", first["content"])
}

func TestComplete_ErrorStatusIncludesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "ak-test", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid model")
}

func TestComplete_NonTextContentRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use","text":""}]}`))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "ak-test", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	t.Parallel()

	client := New(Config{})
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/domain"
)

func TestClientGeneratesFromProxyEnvelope(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gemini", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req promptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPrompt = req.Prompt
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "```json\n" + validSet + "\n```"})
	}))
	defer srv.Close()

	set, err := NewClient(srv.URL+"/").Generate(context.Background(), "Science", domain.Hard)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, gotPrompt, "topic of Science at a Hard level")
	assert.Contains(t, gotPrompt, "Generate 5 unique")
}

func TestClientAcceptsBareArrayBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(validSet))
	}))
	defer srv.Close()

	set, err := NewClient(srv.URL).Generate(context.Background(), "Science", domain.Easy)
	require.NoError(t, err)
	assert.Len(t, set, 2)
}

func TestClientFailuresAreGenerationErrors(t *testing.T) {
	statusSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Error generating content"}`))
	}))
	defer statusSrv.Close()

	emptySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "[]"})
	}))
	defer emptySrv.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	for name, url := range map[string]string{"status": statusSrv.URL, "empty": emptySrv.URL, "transport": closedURL} {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(url).Generate(context.Background(), "Science", domain.Easy)
			assert.ErrorIs(t, err, domain.ErrGeneration)
		})
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

type fixedPredictor struct {
	difficulty string
	err        error
}

func (p fixedPredictor) Predict(context.Context, domain.PerformanceSample) (string, error) {
	return p.difficulty, p.err
}

func newAPIServer(t *testing.T, predictor app.DifficultyPredictor) *httptest.Server {
	t.Helper()
	stats := app.NewStatsService(memory.NewStatsRepository(), predictor, nil)
	ws := NewWSHandler(memory.NewSessionStore(), memory.NewSlotStore(), staticGenerator{set: sampleSet()}, nil)
	srv := httptest.NewServer(NewRouter(ws, NewStatsHandler(stats, nil), nil))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestStatsSubmitRatchetsOnRepeat(t *testing.T) {
	srv := newAPIServer(t, fixedPredictor{difficulty: "easy"})
	body := `{"username":"user123","topic":"Science","correct":3,"avgTime":20,"retries":0}`

	resp, out := postJSON(t, srv.URL+"/quiz/submit", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Quiz updated!", out["message"])
	assert.Equal(t, "easy", out["difficulty"])

	resp, out = postJSON(t, srv.URL+"/quiz/submit", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "medium", out["difficulty"])

	get, err := http.Get(srv.URL + "/quiz/user123")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	var stats []domain.TopicStats
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "medium", stats[0].Difficulty)
}

func TestStatsSubmitPredictorDown(t *testing.T) {
	srv := newAPIServer(t, fixedPredictor{err: fmt.Errorf("%w: connection refused", domain.ErrPrediction)})

	resp, out := postJSON(t, srv.URL+"/quiz/submit", `{"username":"u","topic":"Math","correct":1,"avgTime":5,"retries":2}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Prediction service failed", out["error"])
}

func TestStatsSubmitValidation(t *testing.T) {
	srv := newAPIServer(t, fixedPredictor{difficulty: "easy"})

	resp, _ := postJSON(t, srv.URL+"/quiz/submit", `{"topic":"Math"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/quiz/submit", `{"username":"u","topic":"Math","correct":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/quiz/submit", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsUnknownUser(t *testing.T) {
	srv := newAPIServer(t, fixedPredictor{difficulty: "easy"})

	resp, err := http.Get(srv.URL + "/quiz/nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv := newAPIServer(t, fixedPredictor{difficulty: "easy"})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	api := newAPIServer(t, fixedPredictor{difficulty: "easy"})
	proxy := httptest.NewServer(NewProxyRouter(echoGenerator{}, nil))
	defer proxy.Close()

	for _, url := range []string{api.URL + "/quiz/submit", proxy.URL + "/gemini"} {
		req, err := http.NewRequest(http.MethodOptions, url, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Less(t, resp.StatusCode, 300, url)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), url)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost, url)
		assert.Contains(t, strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers")), "content-type", url)
	}
}

type echoGenerator struct {
	err error
}

func (g echoGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "echo: " + prompt, nil
}

func TestProxyRelaysPrompt(t *testing.T) {
	srv := httptest.NewServer(NewProxyRouter(echoGenerator{}, nil))
	defer srv.Close()

	resp, out := postJSON(t, srv.URL+"/gemini", `{"prompt":"five questions about Science"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "echo: five questions about Science", out["response"])

	root, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer root.Body.Close()
	text, _ := io.ReadAll(root.Body)
	assert.Equal(t, "Gemini api server running", string(text))
}

func TestProxyFailures(t *testing.T) {
	srv := httptest.NewServer(NewProxyRouter(echoGenerator{err: errors.New("quota")}, nil))
	defer srv.Close()

	resp, out := postJSON(t, srv.URL+"/gemini", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error generating content", out["error"])

	resp, _ = postJSON(t, srv.URL+"/gemini", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

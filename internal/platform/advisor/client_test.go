package advisor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/betbot/internal/domain"
)

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-5.2",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecommendDecodesStructuredAnswer(t *testing.T) {
	var gotAuth, gotPath string
	var gotPayload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)

		answer := `{"recommendations":[{"pick":{"event_name":"A v B","market_name":"Match Odds","option_name":"A"},"market_id":"1.100","selection_id":101,"stake":10,"odds":2.0,"side":"BACK","reasoning":"form"}],"overall_reasoning":"one solid pick"}`
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completionResponse(answer))
	})

	resp, err := client.Recommend(context.Background(), AnalysisInput{
		Events:      []domain.Event{{Name: "A v B"}},
		TargetDate:  "2026-08-30",
		TotalBudget: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-5.2", gotPayload["model"])

	require.Len(t, resp.Recommendations, 1)
	pick := resp.Recommendations[0]
	assert.Equal(t, "A v B", pick.Pick.EventName)
	assert.Equal(t, int64(101), pick.SelectionID)
	assert.Equal(t, 10.0, pick.Stake)
	assert.Equal(t, domain.SideBack, pick.Side)
	assert.Equal(t, "one solid pick", resp.OverallReasoning)
}

func TestRecommendRejectsMalformedContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionResponse("sorry, plain prose instead of JSON"))
	})

	_, err := client.Recommend(context.Background(), AnalysisInput{
		Events: []domain.Event{{Name: "A v B"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode recommendations")
}

func TestRecommendSurfacesHTTPErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := client.Recommend(context.Background(), AnalysisInput{
		Events: []domain.Event{{Name: "A v B"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestRecommendNoChoicesIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[]}`)
	})

	_, err := client.Recommend(context.Background(), AnalysisInput{
		Events: []domain.Event{{Name: "A v B"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestRewriteLearningsReturnsReplacementText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionResponse(`{"learnings":"trust the home side in cup ties"}`))
	})

	out, err := client.RewriteLearnings(context.Background(), "old memo", []string{"2026-08-28: WON +10"})
	require.NoError(t, err)
	assert.Equal(t, "trust the home side in cup ties", out)
}

func TestRewriteLearningsRejectsEmptyRewrite(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionResponse(`{"learnings":"   "}`))
	})

	_, err := client.RewriteLearnings(context.Background(), "old memo", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty learnings")
}

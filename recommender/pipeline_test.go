package recommender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/gemini"
)

// Full pipeline against a stub generateContent endpoint: repository fetch,
// prompt build, oracle call, contract parse.
func TestPipelineWithGeminiClient(t *testing.T) {
	output := `[{"title": "AI Workshop", "reason": "Strong AI match", "date": "2025-03-01", "department": "Computer Science", "club": "GDG", "tags": ["technology", "AI"], "score": 95}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": output}}}},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client := gemini.NewClient(zap.NewNop(), gemini.Config{APIKey: "test-key", BaseURL: srv.URL})
	repo := &stubRepo{events: corpus()}
	r := New(repo, client, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "I like AI and machine learning")

	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "AI Workshop", recs[0].Title)
	assert.Equal(t, "Strong AI match", recs[0].Reason)
	assert.Equal(t, 95, recs[0].Score)
	assert.Equal(t, 1, repo.calls)
}

// The oracle breaking its contract must never surface as an error to the
// pipeline's caller.
func TestPipelineAbsorbsContractViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": "Sorry, I cannot help with that."}}}},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	client := gemini.NewClient(zap.NewNop(), gemini.Config{APIKey: "test-key", BaseURL: srv.URL})
	r := New(&stubRepo{events: corpus()}, client, zap.NewNop())

	recs, err := r.RequestRecommendations(context.Background(), "ui-1", "anything")

	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

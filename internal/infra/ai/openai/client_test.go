package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

func newTestServer(t *testing.T, reply string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req openai.ChatCompletionRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o-mini", req.Model)
			if status != http.StatusOK {
				w.WriteHeader(status)
				w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
				return
			}
			resp := openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{
					Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
				}},
			}
			json.NewEncoder(w).Encode(resp)
		case strings.Contains(r.URL.Path, "/models/"):
			json.NewEncoder(w).Encode(openai.Model{ID: "gpt-4o-mini", OwnedBy: "openai"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

var req = &domain.Request{ID: 1, FileName: "a.png", MediaType: "image/png", Size: 4, Data: []byte("\x89PNG")}

func TestPredict(t *testing.T) {
	srv := newTestServer(t, "```json\n{\"prediction\":\"Malignant\",\"confidence\":0.82,\"explanations\":[{\"title\":\"t\",\"description\":\"d\"}]}\n```", http.StatusOK)
	c := NewClient("test-key", srv.URL+"/v1", "")

	res, err := c.Predict(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.DiagnosisMalignant, res.Diagnosis())
	assert.Equal(t, 0.82, res.Confidence())
}

func TestPredictWithoutJSON(t *testing.T) {
	srv := newTestServer(t, "Sorry, I can't help with that.", http.StatusOK)
	_, err := NewClient("test-key", srv.URL+"/v1", "").Predict(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAnalysisFailed)
	assert.Equal(t, domain.DefaultFailureMessage, err.Error())
}

func TestPredictQuota(t *testing.T) {
	srv := newTestServer(t, "", http.StatusTooManyRequests)
	_, err := NewClient("test-key", srv.URL+"/v1", "").Predict(context.Background(), req)

	var afe *domain.AnalysisFailedError
	require.ErrorAs(t, err, &afe)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, http.StatusTooManyRequests, afe.StatusCode)
}

func TestHealthAndModelInfo(t *testing.T) {
	srv := newTestServer(t, "", http.StatusOK)
	c := NewClient("test-key", srv.URL+"/v1", "")

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status)

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(info, &m))
	assert.Equal(t, "gpt-4o-mini", m["model"])
	assert.Equal(t, true, m["model_loaded"])
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4o-mini"))
}

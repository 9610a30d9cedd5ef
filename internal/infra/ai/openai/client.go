package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
	"github.com/bryanwahyu/metaselect/internal/infra/ai/prompt"
	"github.com/bryanwahyu/metaselect/internal/infra/classifier"
)

const (
	maxTokens    = 1024
	defaultModel = "gpt-4o-mini"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// Client is a Classifier backed by a vision-capable chat model.
type Client struct {
	*openai.Client
	Model string
}

func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Health reports "healthy" when the configured model is reachable.
func (c *Client) Health(ctx context.Context) (string, error) {
	if _, err := c.GetModel(ctx, c.Model); err != nil {
		return "", fmt.Errorf("get model %s: %w", c.Model, err)
	}
	return "healthy", nil
}

func (c *Client) ModelInfo(ctx context.Context) (json.RawMessage, error) {
	m, err := c.GetModel(ctx, c.Model)
	if err != nil {
		return nil, mapError(err)
	}
	b, err := json.Marshal(map[string]any{
		"model_loaded": true,
		"model_type":   "Vision language model",
		"model":        m.ID,
		"owned_by":     m.OwnedBy,
		"created":      m.CreatedAt,
	})
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	return b, nil
}

func (c *Client) Predict(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.MediaType, base64.StdEncoding.EncodeToString(req.Data))
	chat := openai.ChatCompletionRequest{
		Model: c.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt(req.FileName)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailHigh,
					}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(c.Model) {
		chat.MaxCompletionTokens = maxTokens
	} else {
		chat.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, chat)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.NewAnalysisFailed("", errors.New("chat completion returned no choices"))
	}

	raw := prompt.ExtractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, domain.NewAnalysisFailed("", errors.New("model reply contained no JSON object"))
	}
	res, err := classifier.DecodePrediction([]byte(raw))
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	return res, nil
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func mapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		f := domain.NewAnalysisFailed("Classification quota exceeded, try again later", fmt.Errorf("%w: %v", ErrQuotaExceeded, err))
		f.StatusCode = status
		return f
	}
	f := domain.NewAnalysisFailed("", fmt.Errorf("failed to create chat completion: %w", err))
	f.StatusCode = status
	return f
}

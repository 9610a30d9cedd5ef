package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	domain "github.com/bryanwahyu/metaselect/internal/domain/analysis"
)

const maxResponseBytes = 1 << 20

// Client talks to the Classification Service over HTTP.
// The timeout set here is the only one applied to a prediction.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health implementasi Classifier: GET /health
func (c *Client) Health(ctx context.Context) (string, error) {
	body, code, err := c.do(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return "", err
	}
	if code < 200 || code > 299 {
		return "", fmt.Errorf("health: HTTP %d", code)
	}
	var h struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return "", fmt.Errorf("health: decode: %w", err)
	}
	return h.Status, nil
}

// ModelInfo implementasi Classifier: GET /model-info, body returned as-is.
func (c *Client) ModelInfo(ctx context.Context) (json.RawMessage, error) {
	body, code, err := c.do(ctx, http.MethodGet, "/model-info", nil, "")
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	if code < 200 || code > 299 {
		f := domain.NewAnalysisFailed(errorDetail(body), fmt.Errorf("model-info: HTTP %d", code))
		f.StatusCode = code
		return nil, f
	}
	if !json.Valid(body) {
		return nil, domain.NewAnalysisFailed("", errors.New("model-info: invalid JSON"))
	}
	return json.RawMessage(body), nil
}

// Predict implementasi Classifier: POST /predict with multipart field "file".
func (c *Client) Predict(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(req.FileName)))
	h.Set("Content-Type", req.MediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	if err := mw.Close(); err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}

	body, code, err := c.do(ctx, http.MethodPost, "/predict", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	if code < 200 || code > 299 {
		f := domain.NewAnalysisFailed(errorDetail(body), fmt.Errorf("predict: HTTP %d", code))
		f.StatusCode = code
		return nil, f
	}

	res, err := DecodePrediction(body)
	if err != nil {
		return nil, domain.NewAnalysisFailed("", err)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return b, resp.StatusCode, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	model "github.com/astrachat/astra/internal/model/responder"
)

const maxBodySize = 1 << 20

// Client posts prompts to a responder's /process endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// New returns a client for baseURL. timeout bounds each round trip.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Process sends req and decodes the reply. The body is decoded whatever the
// HTTP status, because error replies carry their message in the same schema.
// An error is returned only when no usable response was obtained.
func (c *Client) Process(ctx context.Context, req model.ProcessRequest) (model.ProcessResponse, error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return model.ProcessResponse{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process", bytes.NewReader(buf))
	if err != nil {
		return model.ProcessResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.ProcessResponse{}, fmt.Errorf("post /process: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return model.ProcessResponse{}, fmt.Errorf("read response: %w", err)
	}

	var out model.ProcessResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return model.ProcessResponse{}, fmt.Errorf("%w: status=%d: %v", model.ErrMalformedResponse, resp.StatusCode, err)
	}
	if err := out.Validate(); err != nil {
		return model.ProcessResponse{}, fmt.Errorf("%w: status=%d", err, resp.StatusCode)
	}

	c.log.Debug("responder replied",
		zap.String("mode", string(req.Mode)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("error", out.HasError()))
	return out, nil
}

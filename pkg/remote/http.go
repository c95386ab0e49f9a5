package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agrione/offline-sync/pkg/telemetry"
)

const defaultTimeout = 20 * time.Second

// HTTPSender sends JSON requests to the REST API
type HTTPSender struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSender creates a sender for baseURL (e.g. http://localhost:8000/api/v1).
// token, when set, is sent as a Bearer Authorization header.
func NewHTTPSender(baseURL, token string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSender) Send(ctx context.Context, req Request) (*Response, error) {
	url := s.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("creating http request for %s: %w", req, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ActionID)
	if s.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.token)
	}

	logger := telemetry.LoggerFromContext(ctx)
	logger.Debug().Str("method", req.Method).Str("url", url).Msg("HTTP request")

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", req, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response %s: %w", req, err)
	}
	logger.Debug().Int("status", httpResp.StatusCode).Msg("HTTP resp")

	return &Response{Status: httpResp.StatusCode, Body: body}, nil
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rmitchellscott/pdfgateway/internal/config"
)

// GatewayResponse is an unmodified 2xx reply from RobotPDF.
type GatewayResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client performs the single outbound call for a request.
type Client struct {
	http        *http.Client
	baseURL     string
	timeout     time.Duration
	longTimeout time.Duration
}

// NewClient builds a client from the upstream settings. httpClient may be nil.
func NewClient(cfg config.Upstream, httpClient *http.Client) *Client {
	if httpClient == nil {
		// Deadlines come from the per-call context.
		httpClient = &http.Client{Timeout: 0}
	}
	return &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     cfg.Timeout,
		longTimeout: cfg.LongTimeout,
	}
}

// TimeoutFor returns the deadline applied to an operation's call.
func (c *Client) TimeoutFor(spec OperationSpec) time.Duration {
	if spec.LongTimeout {
		return c.longTimeout
	}
	return c.timeout
}

// Do sends payload once. The inbound request's cancellation does not reach
// the outbound call; only the operation timeout does. Non-2xx replies come
// back as *UpstreamError, network failures as *TransportError.
func (c *Client) Do(ctx context.Context, spec OperationSpec, payload *Payload) (*GatewayResponse, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.TimeoutFor(spec))
	defer cancel()

	url := c.baseURL + spec.UpstreamPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range payload.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", payload.ContentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err, Timeout: isTimeout(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err, Timeout: isTimeout(err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(body)}
	}

	return &GatewayResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// upstreamMessage pulls a human readable message out of a JSON error body.
// Non-JSON bodies yield nothing so HTML error pages never reach the caller.
func upstreamMessage(body []byte) string {
	var top map[string]any
	if err := json.Unmarshal(body, &top); err != nil {
		return ""
	}
	if msg := messageFrom(top); msg != "" {
		return msg
	}
	if data, ok := top["data"].(map[string]any); ok {
		return messageFrom(data)
	}
	return ""
}

func messageFrom(m map[string]any) string {
	for _, key := range []string{"message", "error", "detail"} {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

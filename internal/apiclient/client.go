// Package apiclient talks to the Special Academy REST API on behalf of a
// signed-in admin. Authenticated calls carry the session's bearer token and
// are retried once after a successful token refresh when the API answers 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-admin/internal/models"
	appErrors "github.com/noah-isme/academy-admin/pkg/errors"
	"github.com/noah-isme/academy-admin/pkg/middleware/requestid"
)

// maxAttempts bounds how many times one logical request reaches the API.
const maxAttempts = 2

// Credentials exposes the token pair of one console session.
type Credentials interface {
	Tokens(ctx context.Context) (models.Tokens, error)
	RotateAccessToken(ctx context.Context, token string) error
	Invalidate(ctx context.Context) error
}

// Observer receives per-call telemetry. MetricsService implements it.
type Observer interface {
	ObserveUpstreamCall(method, resource string, status int, duration time.Duration)
	RecordTokenRefresh(success bool)
}

// Config configures the REST client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a thin JSON client for the upstream API.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	observer Observer
}

// New constructs a client. A nil logger or observer is allowed.
func New(cfg Config, logger *zap.Logger, observer Observer) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     httpClient,
		logger:   logger.With(zap.String("component", "apiclient")),
		observer: observer,
	}
}

// call describes one logical request. The encoded body is kept so a retry can resend it.
type call struct {
	method      string
	path        string
	resource    string
	body        []byte
	contentType string
}

// Do issues an authenticated request and decodes the response into out (which may be nil).
func (c *Client) Do(ctx context.Context, creds Credentials, method, path string, payload Payload, out interface{}) error {
	body, contentType, err := encodePayload(payload)
	if err != nil {
		return err
	}
	req := call{method: method, path: path, resource: resourceLabel(path), body: body, contentType: contentType}
	return c.send(ctx, creds, req, 0, out)
}

// send performs attempt number attempt of req. Only attempt 0 may trigger a refresh.
func (c *Client) send(ctx context.Context, creds Credentials, req call, attempt int, out interface{}) error {
	var tokens models.Tokens
	if creds != nil {
		var err error
		if tokens, err = creds.Tokens(ctx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read session")
		}
	}

	status, raw, err := c.roundTrip(ctx, req, tokens.AccessToken)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && creds != nil {
		if attempt+1 >= maxAttempts {
			c.logger.Warn("unauthorized after token refresh", zap.String("path", req.path))
			return c.expire(ctx, creds, nil)
		}
		if err := c.refresh(ctx, creds, tokens.RefreshToken); err != nil {
			return c.expire(ctx, creds, err)
		}
		return c.send(ctx, creds, req, attempt+1, out)
	}

	if status < 200 || status >= 300 {
		return upstreamError(status, raw)
	}
	return decodeBody(raw, out)
}

func (c *Client) refresh(ctx context.Context, creds Credentials, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("no refresh token")
	}
	token, err := c.RefreshToken(ctx, refreshToken)
	if err != nil {
		c.record(false)
		return err
	}
	if err := creds.RotateAccessToken(ctx, token); err != nil {
		c.record(false)
		return err
	}
	c.record(true)
	c.logger.Info("access token refreshed")
	return nil
}

func (c *Client) expire(ctx context.Context, creds Credentials, cause error) error {
	if err := creds.Invalidate(ctx); err != nil {
		c.logger.Error("failed to clear expired session", zap.Error(err))
	}
	if cause != nil {
		c.logger.Warn("token refresh failed", zap.Error(cause))
		return appErrors.Wrap(cause, appErrors.ErrSessionExpired.Code, appErrors.ErrSessionExpired.Status, appErrors.ErrSessionExpired.Message)
	}
	return appErrors.Clone(appErrors.ErrSessionExpired, "")
}

func (c *Client) record(success bool) {
	if c.observer != nil {
		c.observer.RecordTokenRefresh(success)
	}
}

// roundTrip sends req once and returns the status and body.
func (c *Client) roundTrip(ctx context.Context, req call, accessToken string) (int, []byte, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upstream request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if id := requestid.FromContext(ctx); id != "" {
		httpReq.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		c.logger.Warn("upstream request failed", zap.String("method", req.method), zap.String("path", req.path), zap.Error(err))
		return 0, nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.observe(req, resp.StatusCode, start)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "")
	}
	c.logger.Debug("upstream request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, raw, nil
}

func (c *Client) observe(req call, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstreamCall(req.method, req.resource, status, time.Since(start))
	}
}

// upstreamError maps a non-2xx response to a typed error carrying the server message.
func upstreamError(status int, raw []byte) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if message == "" {
		message = body.Error
	}

	code := appErrors.ErrUpstream.Code
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = appErrors.ErrValidation.Code
	case http.StatusUnauthorized:
		code = appErrors.ErrUnauthorized.Code
	case http.StatusForbidden:
		code = appErrors.ErrForbidden.Code
	case http.StatusNotFound:
		code = appErrors.ErrNotFound.Code
	}

	httpStatus := status
	if status >= 500 {
		httpStatus = http.StatusBadGateway
	}
	return &appErrors.Error{Code: code, Status: httpStatus, Message: message}
}

// decodeBody accepts either a bare document or one wrapped in {"data": ...}.
func decodeBody(raw []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	err := json.Unmarshal(raw, out)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if envErr := json.Unmarshal(raw, &envelope); envErr == nil && len(envelope.Data) > 0 {
			if dataErr := json.Unmarshal(envelope.Data, out); dataErr == nil {
				return nil
			}
		}
	}
	return appErrors.Wrap(fmt.Errorf("decode upstream response: %w", err), appErrors.ErrUpstream.Code, http.StatusBadGateway, "")
}

func resourceLabel(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		if strings.HasPrefix(trimmed, "auth/") {
			return trimmed
		}
		return trimmed[:i]
	}
	return trimmed
}

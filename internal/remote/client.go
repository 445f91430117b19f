// Package remote talks to the story API over HTTP.
//
// The client is rate limited per host and maps transport failures and API
// rejections onto the domain error taxonomy, so callers can distinguish "the
// network is down" from "the API said no" without inspecting HTTP details.
package remote

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/ratelimit"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 2.0
	defaultBurst   = 5

	userAgent = "CeritaSekitarmu/1.0"
)

// TokenSource supplies the bearer token for authenticated requests.
// An empty token with a nil error means no session is active.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource holding a fixed token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) { return string(s), nil }

// Config carries the tunables for a Client.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client is a rate-limited story API client.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a client for the story API. Zero config fields fall back to
// sensible defaults.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// FetchStories lists stories from the API. Without an active session it
// returns an empty list rather than an error, so a cold start with no
// credentials still renders.
func (c *Client) FetchStories(ctx context.Context, opts FetchOptions) ([]domain.StoryRecord, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Size > 0 {
		query.Set("size", strconv.Itoa(opts.Size))
	}
	if opts.WithLocation {
		query.Set("location", "1")
	}

	body, err := c.doJSON(ctx, http.MethodGet, "/stories", query, nil, token)
	if err != nil {
		return nil, err
	}

	var resp storiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domainerrors.Internal("decode stories response").WithCause(err)
	}
	if resp.Error {
		return nil, domainerrors.RemoteRejected(resp.Message)
	}

	records := make([]domain.StoryRecord, 0, len(resp.ListStory))
	for i := range resp.ListStory {
		records = append(records, resp.ListStory[i].toRecord())
	}
	return records, nil
}

// FetchStory retrieves a single story by id.
func (c *Client) FetchStory(ctx context.Context, id string) (domain.StoryRecord, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return domain.StoryRecord{}, err
	}

	body, err := c.doJSON(ctx, http.MethodGet, "/stories/"+url.PathEscape(id), nil, nil, token)
	if err != nil {
		return domain.StoryRecord{}, err
	}

	var resp storyDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.StoryRecord{}, domainerrors.Internal("decode story response").WithCause(err)
	}
	if resp.Error {
		return domain.StoryRecord{}, domainerrors.RemoteRejected(resp.Message)
	}
	return resp.Story.toRecord(), nil
}

// PostStory publishes a story as multipart form data. With no active session
// the guest endpoint is used.
func (c *Client) PostStory(ctx context.Context, sub StorySubmission) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("description", sub.Description); err != nil {
		return domainerrors.Internal("build story form").WithCause(err)
	}
	if sub.Lat != nil && sub.Lon != nil {
		if err := form.WriteField("lat", strconv.FormatFloat(*sub.Lat, 'f', -1, 64)); err != nil {
			return domainerrors.Internal("build story form").WithCause(err)
		}
		if err := form.WriteField("lon", strconv.FormatFloat(*sub.Lon, 'f', -1, 64)); err != nil {
			return domainerrors.Internal("build story form").WithCause(err)
		}
	}
	photoName := sub.PhotoName
	if photoName == "" {
		photoName = "photo.jpg"
	}
	part, err := form.CreateFormFile("photo", photoName)
	if err != nil {
		return domainerrors.Internal("build story form").WithCause(err)
	}
	if _, err := part.Write(sub.Photo); err != nil {
		return domainerrors.Internal("build story form").WithCause(err)
	}
	if err := form.Close(); err != nil {
		return domainerrors.Internal("build story form").WithCause(err)
	}

	path := "/stories"
	if token == "" {
		path = "/stories/guest"
	}

	req := request{
		method:      http.MethodPost,
		path:        path,
		body:        &buf,
		contentType: form.FormDataContentType(),
		token:       token,
	}
	if sub.IdempotencyKey != "" {
		req.idempotencyKey = sub.IdempotencyKey
	}

	body, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainerrors.Internal("decode publish response").WithCause(err)
	}
	if resp.Error {
		return domainerrors.RemoteRejected(resp.Message)
	}
	return nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return Credentials{}, domainerrors.Internal("encode login request").WithCause(err)
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/login", nil, bytes.NewReader(payload), "")
	if err != nil {
		return Credentials{}, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Credentials{}, domainerrors.Internal("decode login response").WithCause(err)
	}
	if resp.Error {
		return Credentials{}, domainerrors.Unauthorized(resp.Message)
	}
	return Credentials{
		UserID: resp.LoginResult.UserID,
		Name:   resp.LoginResult.Name,
		Token:  resp.LoginResult.Token,
	}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	payload, err := json.Marshal(map[string]string{"name": name, "email": email, "password": password})
	if err != nil {
		return domainerrors.Internal("encode register request").WithCause(err)
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/register", nil, bytes.NewReader(payload), "")
	if err != nil {
		return err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainerrors.Internal("decode register response").WithCause(err)
	}
	if resp.Error {
		return domainerrors.RemoteRejected(resp.Message)
	}
	return nil
}

// SubscribePush registers a web push subscription with the API.
func (c *Client) SubscribePush(ctx context.Context, sub PushSubscription) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		return domainerrors.Internal("encode subscription").WithCause(err)
	}

	body, err := c.doJSON(ctx, http.MethodPost, "/notifications/subscribe", nil, bytes.NewReader(payload), token)
	if err != nil {
		return err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainerrors.Internal("decode subscribe response").WithCause(err)
	}
	if resp.Error {
		return domainerrors.RemoteRejected(resp.Message)
	}
	return nil
}

// UnsubscribePush removes a web push subscription by endpoint.
func (c *Client) UnsubscribePush(ctx context.Context, endpoint string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"endpoint": endpoint})
	if err != nil {
		return domainerrors.Internal("encode unsubscribe request").WithCause(err)
	}

	body, err := c.doJSON(ctx, http.MethodDelete, "/notifications/subscribe", nil, bytes.NewReader(payload), token)
	if err != nil {
		return err
	}

	var resp envelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainerrors.Internal("decode unsubscribe response").WithCause(err)
	}
	if resp.Error {
		return domainerrors.RemoteRejected(resp.Message)
	}
	return nil
}

// request describes one call against the API.
type request struct {
	method         string
	path           string
	query          url.Values
	body           io.Reader
	contentType    string
	token          string
	idempotencyKey string
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body io.Reader, token string) ([]byte, error) {
	return c.doRequest(ctx, request{
		method:      method,
		path:        path,
		query:       query,
		body:        body,
		contentType: "application/json",
		token:       token,
	})
}

// doRequest executes one rate-limited request and returns the raw body for
// 2xx responses. Transport failures map to NETWORK_UNREACHABLE, 401 to
// UNAUTHORIZED, everything else non-2xx to REMOTE_REJECTED.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	target, err := url.Parse(c.baseURL + r.path)
	if err != nil {
		return nil, domainerrors.Internal("build request url").WithCause(err)
	}
	if r.query != nil {
		target.RawQuery = r.query.Encode()
	}

	if err := c.limiter.Wait(ctx, target.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), r.body)
	if err != nil {
		return nil, domainerrors.Internal("create request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if r.body != nil {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}

	c.logger.Debug("api request", "method", r.method, "path", r.path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domainerrors.NetworkUnreachable("story API unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.NetworkUnreachable("read response").WithCause(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domainerrors.Unauthorized(apiMessage(raw, "session expired"))
	default:
		return nil, domainerrors.RemoteRejected(
			apiMessage(raw, fmt.Sprintf("unexpected status %d", resp.StatusCode)))
	}
}

// apiMessage pulls the envelope message out of an error body, falling back
// when the body is not the usual shape.
func apiMessage(raw []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return fallback
}

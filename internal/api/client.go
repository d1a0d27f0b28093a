package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ghaggin/wallet/internal/config"
	"github.com/ghaggin/wallet/internal/model"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	// ErrUnauthorized is returned when the service rejects the credential.
	ErrUnauthorized = errors.New("unauthorized")
	ErrEmptyData    = errors.New("response has no data")
)

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Method string
	Path   string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Client talks to the wallet service.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
}

type Params struct {
	fx.In

	Config *config.Config
	Log    *zap.Logger
}

func New(p Params) (*Client, error) {
	return NewClient(p.Config.BaseURL(), &http.Client{Timeout: p.Config.API.Timeout}, p.Log)
}

func NewClient(baseURL string, hc *http.Client, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{base: base, http: hc, log: log}, nil
}

type envelope[T any] struct {
	Data *T `json:"data"`
}

// Login exchanges the wallet password for a bearer token.
func (c *Client) Login(ctx context.Context, password string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/wallet/login/"+url.PathEscape(password), nil, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrEmptyData
	}
	return token, nil
}

// Dashboard fetches the snapshot for a YYYYMM month.
func (c *Client) Dashboard(ctx context.Context, token, month string) (*model.Snapshot, error) {
	q := url.Values{"date": {month}}
	resp, err := c.do(ctx, http.MethodGet, "/api/wallet/dashboard", q, token, nil)
	if err != nil {
		return nil, err
	}
	return decode[model.Snapshot](resp)
}

// Create stores a new transaction and returns the id the service assigned.
func (c *Client) Create(ctx context.Context, token string, tx model.Transaction) (int, error) {
	return c.write(ctx, http.MethodPost, "/api/wallet/create", token, &tx)
}

// Update rewrites a transaction. The service answers model.NewID when no
// record has that id.
func (c *Client) Update(ctx context.Context, token string, tx model.Transaction) (int, error) {
	return c.write(ctx, http.MethodPost, "/api/wallet/update", token, &tx)
}

// Delete removes a transaction. The service answers model.NewID when no
// record has that id.
func (c *Client) Delete(ctx context.Context, token string, id int) (int, error) {
	return c.write(ctx, http.MethodGet, "/api/wallet/delete/"+strconv.Itoa(id), token, nil)
}

func (c *Client) write(ctx context.Context, method, path, token string, tx *model.Transaction) (int, error) {
	var body io.Reader
	if tx != nil {
		b, err := json.Marshal(tx)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}

	resp, err := c.do(ctx, method, path, nil, token, body)
	if err != nil {
		return 0, err
	}
	id, err := decode[int](resp)
	if err != nil {
		return 0, err
	}
	return *id, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, token string, body io.Reader) (*http.Response, error) {
	u := c.base.JoinPath(path)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	reqID := uuid.NewString()
	req.Header.Set("X-Request-Id", reqID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With(zap.String("request_id", reqID), zap.String("method", method), zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return nil, err
	}
	log.Debug("response", zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode}
}

func decode[T any](resp *http.Response) (*T, error) {
	defer resp.Body.Close()

	var env envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		return nil, ErrEmptyData
	}
	return env.Data, nil
}

// Package apiclient предоставляет HTTP-клиент удалённого бэкенда ресторана.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// IdempotencyHeader содержит имя заголовка ключа идемпотентности.
const IdempotencyHeader = "Idempotency-Key"

// Request описывает запрос к бэкенду относительно корня ресторана.
type Request struct {
	Method      string
	Path        string
	Body        any
	Headers     map[string]string
	Idempotency bool
}

// Options задаёт параметры клиента.
type Options struct {
	Timeout     time.Duration
	ReadRetries int
	Logger      *zap.Logger
}

// Client инкапсулирует HTTP-взаимодействие с бэкендом ресторана.
// Чтения повторяются транспортом при сетевых сбоях и 5xx, изменения не повторяются никогда.
type Client struct {
	baseURL string
	write   *http.Client
	read    *retryablehttp.Client
	newKey  func() string
}

// NewClient создаёт клиент для бэкенда baseURL и ресторана restaurantID.
func NewClient(baseURL, restaurantID string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	write := cleanhttp.DefaultPooledClient()
	write.Timeout = opts.Timeout

	read := retryablehttp.NewClient()
	read.HTTPClient = cleanhttp.DefaultPooledClient()
	read.HTTPClient.Timeout = opts.Timeout
	read.RetryMax = opts.ReadRetries
	read.RetryWaitMin = 200 * time.Millisecond
	read.RetryWaitMax = 2 * time.Second
	read.ErrorHandler = retryablehttp.PassthroughErrorHandler
	read.Logger = leveledLogger{opts.Logger.Sugar()}

	return &Client{
		baseURL: fmt.Sprintf("%s/api/%s", base, restaurantID),
		write:   write,
		read:    read,
		newKey:  func() string { return uuid.NewString() },
	}
}

// BaseURL возвращает корень API ресторана.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do выполняет запрос и возвращает тело ответа как JSON.
// Не-2xx ответы возвращаются как *APIError.
func (c *Client) Do(ctx context.Context, sess *Session, r Request) (json.RawMessage, error) {
	if r.Method == "" {
		r.Method = http.MethodGet
	}

	var body []byte
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = b
	}

	url := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")

	var resp *http.Response
	if r.Method == http.MethodGet {
		req, err := retryablehttp.NewRequestWithContext(ctx, r.Method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.decorate(req.Header, sess, r, false)

		resp, err = c.read.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
	} else {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, r.Method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.decorate(req.Header, sess, r, body != nil)

		resp, err = c.write.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("decode response: invalid JSON from %s %s", r.Method, r.Path)
	}

	return json.RawMessage(data), nil
}

func (c *Client) decorate(h http.Header, sess *Session, r Request, hasBody bool) {
	h.Set("Accept", "application/json")
	if hasBody {
		h.Set("Content-Type", "application/json")
	}
	if sess != nil && sess.Token != "" {
		h.Set("Authorization", "Bearer "+sess.Token)
	}
	if r.Idempotency {
		h.Set(IdempotencyHeader, c.newKey())
	}
	for k, v := range r.Headers {
		h.Set(k, v)
	}
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }

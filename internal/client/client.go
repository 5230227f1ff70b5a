package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/valory-xyz/propel-client-go/internal/common"
	"github.com/valory-xyz/propel-client-go/internal/models"
)

const (
	DefaultAuthScheme = "Token"
	DefaultTimeout    = 120 * time.Second

	maxErrorMessageLength = 512
)

// SessionStore is the part of the session manager the client relies on.
type SessionStore interface {
	Save(session models.Session) error
	Load() (*models.Session, bool)
	Clear() error
}

type Options struct {
	BaseURL    string
	AuthScheme string
	Timeout    time.Duration
	Insecure   bool
}

// Client executes requests against the service. It reads the session from
// the store on every call and never retries on its own.
type Client struct {
	http       *resty.Client
	baseURL    string
	authScheme string
	sessions   SessionStore
}

func New(opts Options, sessions SessionStore) (*Client, error) {
	baseURL, err := common.ValidateBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	if len(opts.AuthScheme) == 0 {
		opts.AuthScheme = DefaultAuthScheme
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", common.GetUserAgent()).
		SetHeader("Accept", "application/json")

	if opts.Insecure {
		logrus.Warnln("TLS certificate verification is disabled")
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec
	}

	return &Client{
		http:       httpClient,
		baseURL:    baseURL,
		authScheme: opts.AuthScheme,
		sessions:   sessions,
	}, nil
}

func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// GetSession returns the stored session, if any.
func (c *Client) GetSession() (*models.Session, bool) {
	if c.sessions == nil {
		return nil, false
	}
	return c.sessions.Load()
}

// Request performs an authenticated call. body is sent as JSON when non-nil
// and a successful response is decoded into out when out is non-nil.
func (c *Client) Request(ctx context.Context, method string, path string, body any, out any) error {
	session, ok := c.GetSession()
	if !ok {
		return &APIError{
			Kind:    KindUnauthenticated,
			Method:  method,
			Path:    path,
			Message: "no credentials found, please login first",
		}
	}

	if session.IsExpired() {
		return &APIError{
			Kind:    KindUnauthenticated,
			Method:  method,
			Path:    path,
			Message: "session expired, please login again",
		}
	}

	req := c.newRequest(ctx).
		SetAuthScheme(c.authScheme).
		SetAuthToken(session.Token)

	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	res, err := c.execute(req, method, path)
	if err != nil {
		return err
	}

	return decodeResponse(res, method, path, out)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Request(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Request(ctx, http.MethodPost, path, body, out)
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", common.NewRequestID())
}

// execute sends the request and maps every failure onto an APIError.
func (c *Client) execute(req *resty.Request, method string, path string) (*resty.Response, error) {

	logrus.WithFields(logrus.Fields{
		"method":    method,
		"path":      path,
		"requestId": req.Header.Get("X-Request-ID"),
	}).Debugln("Sending request")

	res, err := req.Execute(method, path)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Debugln("Request failed")

		return nil, &APIError{
			Kind:    KindTransient,
			Method:  method,
			Path:    path,
			Message: transportMessage(err),
			Err:     err,
		}
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": res.StatusCode(),
		"took":   res.Time(),
	}).Debugln("Received response")

	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &APIError{
			Kind:    classifyStatus(res.StatusCode()),
			Status:  res.StatusCode(),
			Method:  method,
			Path:    path,
			Message: errorMessage(res),
		}
	}

	return res, nil
}

func decodeResponse(res *resty.Response, method string, path string, out any) error {
	if out == nil {
		return nil
	}

	body := res.Body()

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		// A 2xx with a body we cannot read is not something polling fixes
		return &APIError{
			Kind:    KindRejected,
			Status:  res.StatusCode(),
			Method:  method,
			Path:    path,
			Message: fmt.Sprintf("failed to decode response: %v", err),
			Err:     err,
		}
	}

	return nil
}

func errorMessage(res *resty.Response) string {
	body := res.Body()

	var errorResponse models.ErrorResponse
	if err := json.Unmarshal(body, &errorResponse); err == nil && len(errorResponse.Detail) > 0 {
		return errorResponse.Detail
	}

	message := strings.TrimSpace(string(body))
	if len(message) == 0 {
		return res.Status()
	}
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength] + "..."
	}
	return message
}

func transportMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	default:
		return err.Error()
	}
}

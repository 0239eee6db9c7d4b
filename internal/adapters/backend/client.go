// Package backend is the REST client for the municipal backend API. It
// implements every backend port and maps HTTP failures onto the application
// error taxonomy.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	apperrors "github.com/target/municipal-portal/internal/errors"
	"github.com/target/municipal-portal/internal/ports"
)

// TokenCookie is the cookie the backend reads its session token from.
const TokenCookie = "access_token"

// Default API paths.
const (
	DefaultDatasetPath = "/api/estradas-rurais"
	DefaultRowsExpr    = "values"
)

var _ ports.Backend = (*Client)(nil)

// Observer receives one call per backend request. outcome is the error code,
// or "ok".
type Observer func(op, outcome string, elapsed time.Duration)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// DatasetPath is the endpoint serving the rural-road sheet.
	DatasetPath string
	// RowsExpr is a JMESPath expression selecting the row array from the dataset payload.
	RowsExpr   string
	HTTPClient *http.Client
	Observer   Observer
	Logger     *slog.Logger
}

// Client talks to the backend API.
type Client struct {
	base        *url.URL
	http        *http.Client
	datasetPath string
	rowsExpr    string
	observe     Observer
	logger      *slog.Logger
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", raw)
	}

	rowsExpr := strings.TrimSpace(opts.RowsExpr)
	if rowsExpr == "" {
		rowsExpr = DefaultRowsExpr
	}
	if _, err := jmespath.Compile(rowsExpr); err != nil {
		return nil, fmt.Errorf("compile dataset rows expression: %w", err)
	}

	datasetPath := strings.TrimSpace(opts.DatasetPath)
	if datasetPath == "" {
		datasetPath = DefaultDatasetPath
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	observe := opts.Observer
	if observe == nil {
		observe = func(string, string, time.Duration) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:        base,
		http:        hc,
		datasetPath: datasetPath,
		rowsExpr:    rowsExpr,
		observe:     observe,
		logger:      logger.With("component", "backend"),
	}, nil
}

// call describes one backend request.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   any
	// out receives the decoded JSON body on success. Nil discards it.
	out any
	// client overrides the default HTTP client (login uses a cookie jar).
	client *http.Client
}

func (c *Client) endpoint(path string, query url.Values) *url.URL {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

// do executes cl and returns the raw response with its body already read.
func (c *Client) do(ctx context.Context, cl call) (*http.Response, []byte, error) {
	start := time.Now()
	resp, body, err := c.roundTrip(ctx, cl)
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.GetCode(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	c.observe(cl.op, outcome, time.Since(start))
	return resp, body, err
}

func (c *Client) roundTrip(ctx context.Context, cl call) (*http.Response, []byte, error) {
	var reader io.Reader
	if cl.body != nil {
		buf, err := json.Marshal(cl.body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s request: %w", cl.op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query).String(), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: cl.token})
	}

	hc := cl.client
	if hc == nil {
		hc = c.http
	}
	resp, err := hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, apperrors.NetworkFailure(ctxErr)
		}
		return nil, nil, apperrors.NetworkFailure(err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, nil, apperrors.NetworkFailure(fmt.Errorf("read %s response: %w", cl.op, readErr))
	}
	if closeErr != nil {
		c.logger.DebugContext(ctx, "close response body", "op", cl.op, "error", closeErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, body, statusError(resp.StatusCode, body)
	}
	if cl.out != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, cl.out); err != nil {
			return resp, body, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode %s response", cl.op)
		}
	}
	return resp, body, nil
}

func (c *Client) send(ctx context.Context, cl call) error {
	_, _, err := c.do(ctx, cl)
	return err
}

// statusError maps a non-2xx response onto the error taxonomy.
func statusError(status int, body []byte) error {
	msg := detailMessage(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case status == http.StatusNotFound:
		return apperrors.NotFound(msg)
	case status == http.StatusConflict:
		return apperrors.Conflict(msg)
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return apperrors.NetworkFailure(fmt.Errorf("backend status %d: %s", status, msg))
	case status >= 500:
		return apperrors.Internal(msg)
	default:
		return apperrors.Validation(msg)
	}
}

// detailMessage extracts the human-readable message from an error body. The
// backend reports "detail" as a string, an object with "error", or a list of
// field errors with "msg".
func detailMessage(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Detail) > 0 {
		var s string
		if json.Unmarshal(envelope.Detail, &s) == nil {
			return strings.TrimSpace(s)
		}
		var obj struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Detail, &obj) == nil {
			return firstNonEmpty(obj.Error, obj.Message)
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(envelope.Detail, &list) == nil {
			msgs := make([]string, 0, len(list))
			for _, item := range list {
				if m := strings.TrimSpace(item.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return firstNonEmpty(envelope.Error, envelope.Message)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

package submit

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tendant/idm-forms/pkg/errors"
)

// Fallback messages used when nothing better is available.
const (
	MsgRequestFailed = "request failed"
	MsgNetworkError  = "network error"
)

// Result is the outcome of one submission: either a decoded payload or an
// error whose message is ready for display.
type Result struct {
	// Status is the HTTP status code, 0 when no response arrived.
	Status int
	// Payload is the decoded response body. It is set on success only.
	Payload any
	// Err is nil on success, otherwise a *errors.Error coded
	// ErrCodeRequestFailed or ErrCodeTransportFailed.
	Err error
}

// OK reports whether the submission succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Message returns the human-readable failure message, or "" on success.
func (r Result) Message() string {
	return errors.GetMessage(r.Err)
}

// Submitter posts JSON bodies to an endpoint and interprets the response.
type Submitter struct {
	httpClient *http.Client
	baseURL    *url.URL
	headers    http.Header
	logger     *slog.Logger
}

type Option func(*Submitter)

// WithHTTPClient replaces the default client. Tests use it to install a stub transport.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		s.httpClient = c
	}
}

// WithBaseURL resolves relative endpoints such as "/api/signup" against base.
// An unparsable base is ignored.
func WithBaseURL(base string) Option {
	return func(s *Submitter) {
		if base == "" {
			return
		}
		u, err := url.Parse(base)
		if err != nil {
			slog.Warn("Ignoring invalid base URL", "base", base, "err", err)
			return
		}
		s.baseURL = u
	}
}

// WithTimeout sets a client timeout. Zero leaves the transport default in place.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			c := *s.httpClient
			c.Timeout = d
			s.httpClient = &c
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(s *Submitter) {
		s.headers.Add(key, value)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = l
	}
}

// New creates a Submitter. Options are applied in order.
func New(opts ...Option) *Submitter {
	s := &Submitter{
		httpClient: &http.Client{},
		headers:    make(http.Header),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends body as JSON to endpoint with POST and waits for the answer.
// It never returns a Go error or panics: every failure ends up in Result.Err.
func (s *Submitter) Submit(ctx context.Context, endpoint string, body any) Result {
	target := s.resolve(endpoint)

	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to encode request body", "endpoint", target, "err", err)
		return Result{Err: errors.TransportFailed(err, transportMessage(err))}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("Failed to build request", "endpoint", target, "err", err)
		return Result{Err: errors.TransportFailed(err, transportMessage(err))}
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("Request did not complete", "endpoint", target, "err", err)
		return Result{Err: errors.TransportFailed(err, transportMessage(err))}
	}
	defer resp.Body.Close()

	data := decodeBody(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := failureMessage(resp.StatusCode, data)
		s.logger.Info("Request rejected", "endpoint", target, "status", resp.StatusCode, "message", msg)
		return Result{Status: resp.StatusCode, Err: errors.RequestFailed(resp.StatusCode, msg)}
	}

	s.logger.Debug("Request succeeded", "endpoint", target, "status", resp.StatusCode)
	return Result{Status: resp.StatusCode, Payload: data}
}

func (s *Submitter) resolve(endpoint string) string {
	if s.baseURL == nil {
		return endpoint
	}
	ref, err := url.Parse(endpoint)
	if err != nil || ref.IsAbs() {
		return endpoint
	}
	base := *s.baseURL
	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	base.RawQuery = ref.RawQuery
	return base.String()
}

// decodeBody reads a JSON document. An unreadable, empty or malformed body
// decodes to an empty object.
func decodeBody(r io.Reader) any {
	raw, err := io.ReadAll(r)
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}
	}
	return v
}

// failureMessage picks message, then error, then the status text, then MsgRequestFailed.
func failureMessage(status int, data any) string {
	if obj, ok := data.(map[string]any); ok {
		for _, key := range []string{"message", "error"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return MsgRequestFailed
}

func transportMessage(err error) string {
	var uerr *url.Error
	if stderrors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}
	if err == nil || err.Error() == "" {
		return MsgNetworkError
	}
	return err.Error()
}

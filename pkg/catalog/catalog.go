package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/idm-forms/pkg/errors"
)

// DefaultBaseURL is where the listing service runs in development.
const DefaultBaseURL = "http://localhost:3000"

const defaultConcurrency = 4

// ID is a laptop identifier. The service sends numbers or strings; both decode.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("laptop id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integer ids as numbers so records round-trip
// unchanged. Anything else, "007" or "+5" included, is quoted.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Laptop is one listing record.
type Laptop struct {
	ID    ID      `json:"id"`
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
}

// Client reads laptops from the listing service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	concurrency int
	logger      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithConcurrency bounds how many detail requests GetMany runs at once.
func WithConcurrency(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{},
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List returns every laptop.
func (c *Client) List(ctx context.Context) ([]Laptop, error) {
	var laptops []Laptop
	if err := c.get(ctx, c.baseURL+"/laptops", "laptops", &laptops); err != nil {
		return nil, err
	}
	if laptops == nil {
		laptops = []Laptop{}
	}
	return laptops, nil
}

// Get returns one laptop. A missing laptop is an ErrCodeNotFound error.
func (c *Client) Get(ctx context.Context, id ID) (Laptop, error) {
	var laptop Laptop
	err := c.get(ctx, c.baseURL+"/laptops/"+url.PathEscape(string(id)), "laptop "+string(id), &laptop)
	return laptop, err
}

// GetMany fetches several laptops concurrently and returns them in the order
// of ids. The first failure cancels the remaining requests.
func (c *Client) GetMany(ctx context.Context, ids []ID) ([]Laptop, error) {
	out := make([]Laptop, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)
	for i, id := range ids {
		eg.Go(func() error {
			laptop, err := c.Get(egCtx, id)
			if err != nil {
				return err
			}
			out[i] = laptop
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, target, what string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch", "url", target, "err", err)
		return errors.TransportFailed(err, fmt.Sprintf("failed to fetch %s", what))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Newf(errors.ErrCodeNotFound, "%s not found", what)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Unexpected status", "url", target, "status", resp.StatusCode)
		return errors.RequestFailed(resp.StatusCode, fmt.Sprintf("failed to fetch %s: %s", what, http.StatusText(resp.StatusCode)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeRequestFailed, fmt.Sprintf("failed to decode %s", what))
	}
	return nil
}

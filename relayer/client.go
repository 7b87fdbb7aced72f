// Package relayer holds the HTTP clients for the services a registration
// or voting flow posts to: the SOD verification relayer and the
// transaction relayers that broadcast prepared call data.
package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client posts to one relayer service. Every call is a single attempt:
// a non-2xx response is fatal for the flow and carries the response body;
// retrying is the caller's decision.
type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
		log:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// envelope is the json-api style wrapper relayer endpoints speak.
type envelope struct {
	Data resource `json:"data"`
}

type resource struct {
	ID         string          `json:"id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

func (c *Client) post(ctx context.Context, path, resourceType string,
	attributes interface{}) (*resource, error) {

	rawAttrs, err := json.Marshal(attributes)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request attributes")
	}

	reqBody, err := json.Marshal(envelope{Data: resource{
		Type:       resourceType,
		Attributes: rawAttrs,
	}})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling request body")
	}

	u := c.base + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u,
		bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("posting to relayer", "url", u, "type", resourceType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "posting to %s", u)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("relayer rejected request",
			"url", u, "status", resp.StatusCode)
		return nil, errors.Errorf("relayer responded %d: %s",
			resp.StatusCode, respBody)
	}

	var out envelope
	if err = json.Unmarshal(respBody, &out); err != nil {
		return nil, errors.Wrap(err, "decoding response body")
	}

	return &out.Data, nil
}

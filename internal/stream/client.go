// Package stream implements the client side of the scraper backend's
// per-provider live event streams (Server-Sent Events).
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/hackhub/hackhub/internal/domain"
	hublog "github.com/hackhub/hackhub/internal/log"
	"github.com/hackhub/hackhub/internal/metrics"
)

// Handler receives each decoded record from one provider connection.
type Handler func(domain.Event)

// Client opens live event streams against the scraper backend.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithConnectRate paces connection opens so a full roster fan-out does not
// burst-dial the backend.
func WithConnectRate(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New creates a stream client for the given backend base URL. No overall
// request timeout is set: the connections are long-lived and are torn down
// via context cancellation or server close.
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// streamURL builds the provider stream endpoint with the criteria encoded as
// query parameters, mirroring the backend contract.
func (c *Client) streamURL(provider string, criteria domain.Criteria) string {
	params := url.Values{}
	params.Set("domain", criteria.Domain)
	params.Set("location", criteria.Location)
	params.Set("count", strconv.Itoa(criteria.Count))
	params.Set("scrapeType", string(criteria.ScrapeType))
	return c.base + "/api/scraper/stream/" + url.PathEscape(provider) + "?" + params.Encode()
}

// Stream opens one live connection for the provider and invokes fn for every
// decoded record until the server closes the stream or ctx is cancelled.
// A clean end-of-stream returns nil; transport failures return an error.
// Malformed frames are logged and skipped without closing the connection.
func (c *Client) Stream(ctx context.Context, provider string, criteria domain.Criteria, fn Handler) error {
	logger := hublog.WithComponentFromContext(ctx, "stream")

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("connect pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(provider, criteria), nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer func() {
		if cerr := res.Body.Close(); cerr != nil {
			logger.Debug().Err(cerr).Str(hublog.FieldProvider, provider).Msg("close stream body")
		}
	}()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("stream %s: unexpected status %d", provider, res.StatusCode)
	}

	logger.Info().
		Str(hublog.FieldEvent, "stream.open").
		Str(hublog.FieldProvider, provider).
		Msg("provider stream opened")

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	dispatch := func() {
		if data.Len() == 0 {
			return
		}
		payload := data.String()
		data.Reset()

		var rec domain.Event
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			metrics.IncRecord(provider, metrics.OutcomeMalformed)
			logger.Warn().
				Err(err).
				Str(hublog.FieldEvent, "stream.malformed").
				Str(hublog.FieldProvider, provider).
				Msg("dropping unparseable frame")
			return
		}
		if rec.Provider == "" {
			rec.Provider = provider
		}
		fn(rec)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates one SSE message.
			dispatch()
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// Comment / keep-alive.
		default:
			// event:/id:/retry: fields carry no payload we consume.
		}
	}

	// Flush a final frame the server did not terminate with a blank line.
	dispatch()

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("stream %s: %w", provider, ctx.Err())
		}
		return fmt.Errorf("read stream %s: %w", provider, err)
	}
	return nil
}

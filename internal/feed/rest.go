package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Yusufzhafir/tradeview/internal/metrics"
	"github.com/Yusufzhafir/tradeview/pkg/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	maxResponseBody    = int64(4 << 20) // 4 MiB
)

type RESTSourceOpts struct {
	BaseURL       string
	Limit         int
	RatePerSecond float64
	HTTPClient    *http.Client
	Logger        *logrus.Logger
}

// RESTSource polls GET {BaseURL}/orderbook?symbol=SYM&limit=N. The body is
// either a JSON array of entries or an object with an "entries" array.
type RESTSource struct {
	baseURL string
	limit   int
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewRESTSource(opts RESTSourceOpts) (*RESTSource, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("rest source: base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("rest source: invalid base url: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RESTSource{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		limit:   opts.Limit,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}, nil
}

func (s *RESTSource) Name() string { return "rest" }

func (s *RESTSource) Fetch(ctx context.Context, symbol string) ([]model.OrderBookEntry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	if s.limit > 0 {
		q.Set("limit", strconv.Itoa(s.limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/orderbook?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("fetching order book for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.FeedFetchesTotal.WithLabelValues(s.Name(), strconv.Itoa(resp.StatusCode)).Inc()
		return nil, fmt.Errorf("fetching order book for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "error").Inc()
		return nil, fmt.Errorf("reading order book for %s: %w", symbol, err)
	}

	raw, err := DecodeEntries(body)
	if err != nil {
		metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "decode_error").Inc()
		return nil, fmt.Errorf("decoding order book for %s: %w", symbol, err)
	}
	metrics.FeedFetchesTotal.WithLabelValues(s.Name(), "ok").Inc()

	return Validate(symbol, raw, s.logger), nil
}

// DecodeEntries accepts either a bare JSON array or {"entries":[...]}.
func DecodeEntries(body []byte) ([]RawEntry, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if body[0] == '[' {
		var raw []RawEntry
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	var wrapped struct {
		Entries []RawEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Entries, nil
}

// Package httpclient is the standalone HTTP client: requests that bypass
// the browser entirely. It backs the version lookups, driver downloads and
// ad-hoc fetches, and returns results as response.Response values.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/admitted/internal/infrastructure/logging"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/admitted/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/admitted/internal/response"
)

// Options configures a Client. Zero values get defaults from New.
type Options struct {
	Name      string // breaker name, shows up in logs
	Timeout   time.Duration
	Retries   int // retries on connection errors and 5xx; 0 disables
	RetryWait time.Duration
	RateLimit float64 // requests per second; <= 0 is unlimited
	UserAgent string
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Client wraps resty with rate limiting, circuit breaker and retries.
// Retries happen in the retryablehttp transport, below resty, so every
// logical request counts once against the breaker.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker
	Mu      sync.RWMutex

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// StatusError is returned by Get and Download for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, e.Reason)
}

// New creates a production-ready client.
func New(opts Options) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "http-external"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	logger := logging.OrNop(opts.Logger).Named("http")

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = opts.RetryWait
	retryClient.RetryWaitMax = 30 * opts.RetryWait
	retryClient.Logger = logging.NewLeveled(logger)
	// hand the final response back instead of a "giving up" error so the
	// caller still sees the status
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	std := retryClient.StandardClient()
	std.Jar = jar

	restyClient := resty.NewWithClient(std).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetLogger(logger.Sugar())
	if opts.UserAgent != "" {
		restyClient.SetHeader("User-Agent", opts.UserAgent)
	}

	breaker := resilience.New(opts.Name, resilience.Settings{
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			// external hosts vary in reliability; only trip on a clear streak
			// or a sustained failure rate
			return counts.ConsecutiveFailures >= 10 ||
				(counts.Requests >= 20 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.7)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	c := &Client{
		Resty:   restyClient,
		Breaker: breaker,
		logger:  logger,
		metrics: opts.Metrics,
	}
	c.SetRateLimit(opts.RateLimit)
	return c, nil
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.Mu.Lock()
	defer c.Mu.Unlock()
	if rps <= 0 {
		c.Limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	c.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Request creates a new request after the breaker and limiter admit it.
func (c *Client) Request(ctx context.Context) (*resty.Request, error) {
	if c.Breaker.State() == resilience.StateOpen {
		return nil, resilience.ErrCircuitOpen
	}

	c.Mu.RLock()
	limiter := c.Limiter
	c.Mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Resty.R().SetContext(ctx), nil
}

// RequestOptions describes one standalone request.
type RequestOptions struct {
	Headers map[string]string
	Query   map[string]string
	// Body is JSON encoded unless it is a string, []byte or io.Reader.
	Body   any
	Stream bool
}

// Do sends the request and wraps the result without reading the body.
// Transport failures are returned as errors; any HTTP status, including
// 4xx and 5xx, is a Response.
func (c *Client) Do(ctx context.Context, method, url string, opts RequestOptions) (*response.Response, error) {
	req, err := c.Request(ctx)
	if err != nil {
		return nil, err
	}
	req.SetDoNotParseResponse(true).
		SetHeaders(opts.Headers).
		SetQueryParams(opts.Query)
	if opts.Body != nil {
		req.SetBody(opts.Body)
	}

	done, err := c.Breaker.Allow()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Execute(method, url)
	if err != nil {
		done(false)
		c.metrics.RecordFetch(response.SourceClient.String(), 0)
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	raw := res.RawResponse
	done(raw.StatusCode < http.StatusInternalServerError)
	c.metrics.RecordFetch(response.SourceClient.String(), raw.StatusCode)

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", raw.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var ropts []response.ClientOption
	if opts.Stream {
		ropts = append(ropts, response.Streaming())
	}
	return response.FromClient(raw, ropts...), nil
}

// Get fetches url and returns the body, treating non-2xx as an error.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, RequestOptions{})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		_ = resp.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Reason: resp.Reason}
	}
	return resp.Content()
}

// Download streams url into w.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, RequestOptions{Stream: true})
	if err != nil {
		return 0, err
	}
	if !resp.OK {
		_ = resp.Close()
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Reason: resp.Reason}
	}
	n, err := resp.WriteStream(w)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}
	return n, nil
}

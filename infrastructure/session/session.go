// Package session provides a retrying HTTP session for SharePoint Online.
//
// RobustSession wraps a Transport, retries throttled responses with a linear
// backoff that yields to Retry-After, resets the whole connection once on 403,
// and reconnects after transport failures.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"spconnect/logging"
)

// Transport sends a single HTTP request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// ConnectFunc builds a fresh authenticated transport.
type ConnectFunc func(ctx context.Context) (Transport, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is below 400.
func (r *Response) OK() bool {
	return r.StatusCode < 400
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response (status %d): %w", r.StatusCode, err)
	}
	return nil
}

// RetryError is returned when every attempt failed at the transport level.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("error on attempt #%d: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// ErrNotConnected is returned when a request is made before a transport exists.
var ErrNotConnected = errors.New("session is not connected")

// RobustSession is safe for concurrent use.
type RobustSession struct {
	mu        sync.RWMutex
	transport Transport
	connect   ConnectFunc

	cfg     Config
	limiter *rate.Limiter
	sleep   SleepFunc
	metrics *Metrics
	logger  *logging.Logger
}

// Option customises a RobustSession.
type Option func(*RobustSession)

// WithSleep replaces the wait function (tests use an instant one).
func WithSleep(fn SleepFunc) Option {
	return func(s *RobustSession) { s.sleep = fn }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *RobustSession) { s.metrics = m }
}

// WithLogger sets the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *RobustSession) { s.logger = l.WithComponent("robust_session") }
}

// New validates cfg and connects through the retry path.
func New(ctx context.Context, cfg Config, connect ConnectFunc, opts ...Option) (*RobustSession, error) {
	if connect == nil {
		return nil, errors.New("connect function is required")
	}
	if err := cfg.ValidateAndSetDefaults(DefaultConstraints()); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	s := &RobustSession{
		connect: connect,
		cfg:     cfg,
		sleep:   sleepContext,
		logger:  logging.Default().WithComponent("robust_session"),
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Info("Init RobustSession",
		"max_retries", cfg.MaxRetries,
		"base_retry_timer", cfg.BaseRetryTimer.String(),
		"status_codes_to_retry", cfg.StatusCodesToRetry)

	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Connect (re)establishes the transport, retrying with linear backoff.
func (s *RobustSession) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries+1; attempt++ {
		t, err := s.connect(ctx)
		if err == nil {
			s.mu.Lock()
			s.transport = t
			s.mu.Unlock()
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt > s.cfg.MaxRetries {
			break
		}
		wait := linearBackoff(s.cfg.BaseRetryTimer, attempt)
		s.logger.Warn("Connection failed", "attempt", attempt, "error", err.Error(), "wait", wait.String())
		if err := s.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return &RetryError{Attempts: s.cfg.MaxRetries + 1, Err: fmt.Errorf("connect: %w", lastErr)}
}

// Close releases idle connections held by the current transport.
// In-flight requests from other goroutines keep the transport until Connect swaps it.
func (s *RobustSession) Close() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// Get issues a retried GET.
func (s *RobustSession) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return s.Do(ctx, http.MethodGet, url, header, nil)
}

// Post issues a retried POST.
func (s *RobustSession) Post(ctx context.Context, url string, header http.Header, body []byte) (*Response, error) {
	return s.Do(ctx, http.MethodPost, url, header, body)
}

// DoOnce sends a single attempt without any retry or reset.
func (s *RobustSession) DoOnce(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.send(ctx, method, url, header, body)
}

// Do sends the request, retrying per the session policy.
// Retryable statuses that persist past MaxRetries are returned as a Response.
func (s *RobustSession) Do(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	forbiddenReset := false
	for attempt := 1; ; attempt++ {
		s.logger.Session("RobustSession attempt", "attempt", attempt, "method", method, "url", url)
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		resp, err := s.send(ctx, method, url, header, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt > s.cfg.MaxRetries {
				return nil, &RetryError{Attempts: attempt, Err: err}
			}
			wait := linearBackoff(s.cfg.BaseRetryTimer, attempt)
			s.logger.Warn("Request failed", "attempt", attempt, "error", err.Error(), "wait", wait.String())
			s.metrics.recordRetry("transport", wait.Seconds())
			if err := s.reset(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.OK():
			return resp, nil

		case s.cfg.shouldRetryStatus(resp.StatusCode) && attempt <= s.cfg.MaxRetries:
			wait := linearBackoff(s.cfg.BaseRetryTimer, attempt)
			if d, ok := retryAfterDelay(resp.Header.Get("Retry-After"), time.Now(), s.cfg.DefaultRetryAfter, s.cfg.MaxRetryAfter); ok {
				wait = d
			}
			s.logger.Warn("Throttled by SharePoint", "status", resp.StatusCode, "attempt", attempt, "wait", wait.String())
			s.metrics.recordRetry(fmt.Sprintf("status_%d", resp.StatusCode), wait.Seconds())
			if err := s.sleep(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusForbidden && s.cfg.ResetOnForbidden && !forbiddenReset:
			forbiddenReset = true
			s.logger.Warn("Forbidden response, resetting session once", "url", url, "wait", s.cfg.ForbiddenResetDelay.String())
			s.metrics.recordRetry("forbidden", s.cfg.ForbiddenResetDelay.Seconds())
			if err := s.reset(ctx, s.cfg.ForbiddenResetDelay); err != nil {
				return nil, err
			}

		default:
			return resp, nil
		}
	}
}

// reset closes the transport, waits, then reconnects.
func (s *RobustSession) reset(ctx context.Context, wait time.Duration) error {
	s.metrics.recordReset()
	s.Close()
	if err := s.sleep(ctx, wait); err != nil {
		return err
	}
	return s.Connect(ctx)
}

func (s *RobustSession) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *RobustSession) send(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error) {
	s.mu.RLock()
	t := s.transport
	s.mu.RUnlock()
	if t == nil {
		return nil, ErrNotConnected
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	res, err := t.Do(req)
	if err != nil {
		s.metrics.recordAttempt(method, 0)
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		s.metrics.recordAttempt(method, 0)
		return nil, fmt.Errorf("read response body: %w", err)
	}
	s.metrics.recordAttempt(method, res.StatusCode)

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

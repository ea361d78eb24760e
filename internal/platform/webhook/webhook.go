// Package webhook delivers encounter lifecycle events to external HTTP
// subscribers. Each delivery is a signed JSON POST retried with backoff. Every
// endpoint has its own queue and worker, so publishing never waits on a
// subscriber and a failing endpoint only delays its own deliveries.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Publish when the delivery queue is saturated.
var ErrQueueFull = errors.New("webhook queue full")

// Endpoint is a subscriber. Events holds patterns such as "encounter.signed",
// "encounter.*" or "*.signed"; an empty list subscribes to everything.
type Endpoint struct {
	URL    string
	Secret string
	Events []string
}

// Payload is the body POSTed to subscribers.
type Payload struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type job struct {
	eventID string
	typ     string
	body    []byte
}

// outbox is the pending deliveries of one endpoint.
type outbox struct {
	endpoint Endpoint
	jobs     chan job
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithRetryDelays sets the waits between attempts. The number of delays is
// the number of retries after the first attempt.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(d *Dispatcher) { d.retryDelays = delays }
}

// WithQueueSize sets how many deliveries each endpoint may have pending.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) { d.queueSize = n }
}

type Dispatcher struct {
	outboxes    []*outbox
	client      *http.Client
	retryDelays []time.Duration
	queueSize   int
	logger      zerolog.Logger
}

func NewDispatcher(endpoints []Endpoint, logger zerolog.Logger, opts ...Option) (*Dispatcher, error) {
	for _, ep := range endpoints {
		if err := validateURL(ep.URL); err != nil {
			return nil, err
		}
		if ep.Secret == "" {
			return nil, fmt.Errorf("webhook %s: secret is required", ep.URL)
		}
	}
	d := &Dispatcher{
		client:      &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{time.Second, 30 * time.Second, 5 * time.Minute},
		queueSize:   256,
		logger:      logger.With().Str("component", "webhook").Logger(),
	}
	for _, o := range opts {
		o(d)
	}
	for _, ep := range endpoints {
		d.outboxes = append(d.outboxes, &outbox{endpoint: ep, jobs: make(chan job, d.queueSize)})
	}
	return d, nil
}

// ParseEndpoints builds one endpoint per URL sharing secret and patterns.
func ParseEndpoints(urls []string, secret string, patterns []string) []Endpoint {
	var out []Endpoint
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, Endpoint{URL: u, Secret: secret, Events: patterns})
	}
	return out
}

// Publish queues the event for every matching endpoint.
func (d *Dispatcher) Publish(_ context.Context, eventType string, data any) error {
	p := Payload{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	var errs []error
	for _, o := range d.outboxes {
		if !matchesAny(o.endpoint.Events, eventType) {
			continue
		}
		select {
		case o.jobs <- job{eventID: p.ID, typ: eventType, body: body}:
		default:
			errs = append(errs, fmt.Errorf("%s to %s: %w", eventType, o.endpoint.URL, ErrQueueFull))
		}
	}
	return errors.Join(errs...)
}

// Run starts one worker per endpoint and blocks until ctx is cancelled and
// the workers have stopped.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, o := range d.outboxes {
		wg.Add(1)
		go func(o *outbox) {
			defer wg.Done()
			d.drain(ctx, o)
		}(o)
	}
	wg.Wait()
}

func (d *Dispatcher) drain(ctx context.Context, o *outbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-o.jobs:
			if err := d.deliver(ctx, o.endpoint, j); err != nil {
				d.logger.Error().Err(err).
					Str("event", j.typ).
					Str("event_id", j.eventID).
					Str("url", o.endpoint.URL).
					Msg("webhook delivery abandoned")
			}
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ep Endpoint, j job) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = d.post(ctx, ep, j)
		if err == nil {
			return nil
		}
		if attempt >= len(d.retryDelays) {
			return err
		}
		d.logger.Warn().Err(err).Int("attempt", attempt+1).Str("url", ep.URL).Msg("webhook delivery failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.retryDelays[attempt]):
		}
	}
}

func (d *Dispatcher) post(ctx context.Context, ep Endpoint, j job) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(j.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+SignPayload(j.body, ep.Secret))
	req.Header.Set("X-Webhook-Event", j.typ)
	req.Header.Set("X-Webhook-ID", j.eventID)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2xx response: %d", resp.StatusCode)
	}
	return nil
}

// SignPayload returns the hex HMAC-SHA256 of payload under secret.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature accepts the signature with or without its "sha256=" prefix.
func VerifySignature(payload []byte, secret, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(SignPayload(payload, secret)), []byte(signature))
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("webhook url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook url %q: missing host", raw)
	}
	return nil
}

func matchesAny(patterns []string, eventType string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if eventMatches(p, eventType) {
			return true
		}
	}
	return false
}

func eventMatches(pattern, eventType string) bool {
	switch {
	case pattern == "*" || pattern == eventType:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(eventType, pattern[1:])
	case strings.HasSuffix(pattern, ".*"):
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

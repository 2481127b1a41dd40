package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	slogctx "github.com/veqryn/slog-context"
)

const (
	// DefaultPollInterval is the cadence of fetch-callback cycles per ticket.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultTimeout is how long a ticket polls before expiring silently.
	DefaultTimeout = 5 * time.Minute
)

// Config configures a Registrar. The zero value of every field falls back to
// a default, except Endpoint which is required.
type Config struct {
	// Endpoint is the base URL of the broker, e.g. "https://broker.example.com".
	Endpoint string
	// PollInterval is the delay between fetch-callback cycles of one ticket.
	PollInterval time.Duration
	// Timeout bounds the total lifetime of a ticket's poll sequence.
	Timeout time.Duration
	// StopOnDecodeError ends a ticket's poll sequence when the broker returns
	// a payload that cannot be decoded. When false the cycle is dropped and
	// polling continues until the timeout.
	StopOnDecodeError bool
}

// Registrar creates pending-callback tickets and polls the broker for their
// payloads. Each ticket polls independently; delivered payloads are multicast
// to every subscriber registered via OnCallback.
type Registrar struct {
	endpoint *url.URL
	client   *http.Client

	pollInterval      time.Duration
	timeout           time.Duration
	stopOnDecodeError bool

	// newRequestID is replaceable for deterministic tests.
	newRequestID func() string

	mu          sync.Mutex
	nextSubID   int
	subscribers []subscriber
}

type subscriber struct {
	id int
	fn func(URIComponents)
}

// NewRegistrar creates a Registrar polling the given broker endpoint.
// A nil httpClient falls back to http.DefaultClient.
func NewRegistrar(cfg *Config, httpClient *http.Client) (*Registrar, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New("broker endpoint is required")
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing broker endpoint: %w", err)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Registrar{
		endpoint:          endpoint,
		client:            httpClient,
		pollInterval:      pollInterval,
		timeout:           timeout,
		stopOnDecodeError: cfg.StopOnDecodeError,
		newRequestID:      uuid.NewString,
	}, nil
}

// OnCallback subscribes to delivered payloads. Every delivered payload is
// passed to all subscribers synchronously, in subscription order, before the
// producing poll sequence exits. The returned function cancels the
// subscription.
func (r *Registrar) OnCallback(fn func(URIComponents)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subscribers = append(r.subscribers, subscriber{id: id, fn: fn})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		for i, s := range r.subscribers {
			if s.id == id {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Create generates a fresh ticket and returns its redirect URI. The URI points
// at the broker's callback endpoint and carries the request id plus one
// namespaced query parameter per non-empty field of opts.
//
// Polling for the ticket starts immediately and is not awaited by the caller.
// Cancelling ctx ends the ticket's poll sequence early; otherwise it
// terminates on delivery or after the configured timeout.
func (r *Registrar) Create(ctx context.Context, opts *URIComponents) (*url.URL, error) {
	requestID := r.newRequestID()

	q := url.Values{}
	q.Set(ParamRequestID, requestID)
	if opts != nil {
		for param, value := range map[string]string{
			ParamScheme:    opts.Scheme,
			ParamAuthority: opts.Authority,
			ParamPath:      opts.Path,
			ParamQuery:     opts.Query,
			ParamFragment:  opts.Fragment,
		} {
			if value != "" {
				q.Set(param, value)
			}
		}
	}

	redirect := r.endpoint.JoinPath(CallbackPath)
	redirect.RawQuery = q.Encode()

	go r.poll(ctx, requestID)

	return redirect, nil
}

// poll runs one ticket's fetch-callback sequence until the payload arrives,
// the timeout elapses, or ctx is cancelled. Each ticket's startTime and
// requestID are confined to this goroutine; the subscriber list is the only
// shared state.
func (r *Registrar) poll(ctx context.Context, requestID string) {
	startTime := time.Now()

	fetchURL := r.endpoint.JoinPath(FetchCallbackPath)
	q := url.Values{}
	q.Set(FetchParamRequestID, requestID)
	fetchURL.RawQuery = q.Encode()

	ctx = slogctx.With(ctx, "request_id", requestID)

	for {
		body, err := r.fetchOnce(ctx, fetchURL.String())
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			// A failed cycle is dropped; the next one runs after the
			// standard interval, still bounded by the overall timeout.
			slogctx.Warn(ctx, "Callback poll cycle failed", "error", err)
		case len(body) > 0:
			var components URIComponents
			if err := json.Unmarshal(body, &components); err != nil {
				slogctx.Error(ctx, "Failed to decode callback payload", "error", err)
				if r.stopOnDecodeError {
					return
				}
			} else {
				r.emit(components)
				return
			}
		}

		if time.Since(startTime) >= r.timeout {
			slogctx.Debug(ctx, "Callback ticket expired without a payload")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.pollInterval):
		}
	}
}

func (r *Registrar) fetchOnce(ctx context.Context, fetchURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating fetch-callback request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing fetch-callback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch-callback returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading fetch-callback response: %w", err)
	}

	return body, nil
}

func (r *Registrar) emit(components URIComponents) {
	r.mu.Lock()
	subscribers := make([]subscriber, len(r.subscribers))
	copy(subscribers, r.subscribers)
	r.mu.Unlock()

	for _, s := range subscribers {
		s.fn(components)
	}
}

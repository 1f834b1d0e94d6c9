// Package vapi is a client for the Vapi telephony API, covering the call,
// chat, and phone-number lookups the resolution pipeline depends on.
package vapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.vapi.ai"

// DefaultTimeout bounds each lookup; pipeline strategies treat a timeout as
// a soft failure, not an error.
const DefaultTimeout = 5 * time.Second

// Client resolves Vapi call, chat, and phone-number identifiers.
type Client interface {
	// GetCall fetches call metadata by call id.
	GetCall(ctx context.Context, id string) (*CallInfo, error)
	// GetChat fetches chat metadata by chat id.
	GetChat(ctx context.Context, id string) (*CallInfo, error)
	// GetPhoneNumber resolves a phone-number id to its number.
	GetPhoneNumber(ctx context.Context, id string) (string, error)
}

// CallInfo is the subset of call/chat metadata the pipeline consumes. At
// least one of PhoneNumber or PhoneNumberID is populated on a useful
// response; both may be empty.
type CallInfo struct {
	PhoneNumber   string
	PhoneNumberID string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithRetryAttempts sets the total number of attempts per lookup, including
// the first. The default is 1: failed lookups are not retried, so the
// resolution cascade moves on immediately.
func WithRetryAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.retry.attempts = n
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   retryConfig
}

// NewClient creates a Vapi API client. The API key is required: resolution
// strategies that need the client are disabled without one, so a missing key
// is a configuration error at startup rather than per request.
func NewClient(apiKey string, opts ...Option) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("vapi: missing API key")
	}
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		retry:   defaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// callResponse accepts both camelCase and snake_case field naming; the API
// has shipped both.
type callResponse struct {
	PhoneNumber       string `json:"phoneNumber"`
	PhoneNumberSnake  string `json:"phone_number"`
	PhoneNumberID     string `json:"phoneNumberId"`
	PhoneNumberIDSnek string `json:"phone_number_id"`
}

func (r callResponse) info() *CallInfo {
	info := &CallInfo{PhoneNumber: r.PhoneNumber, PhoneNumberID: r.PhoneNumberID}
	if info.PhoneNumber == "" {
		info.PhoneNumber = r.PhoneNumberSnake
	}
	if info.PhoneNumberID == "" {
		info.PhoneNumberID = r.PhoneNumberIDSnek
	}
	return info
}

// GetCall fetches call metadata by call id.
func (c *httpClient) GetCall(ctx context.Context, id string) (*CallInfo, error) {
	var resp callResponse
	if err := c.get(ctx, "/call/"+id, &resp); err != nil {
		return nil, err
	}
	return resp.info(), nil
}

// GetChat fetches chat metadata by chat id.
func (c *httpClient) GetChat(ctx context.Context, id string) (*CallInfo, error) {
	var resp callResponse
	if err := c.get(ctx, "/chat/"+id, &resp); err != nil {
		return nil, err
	}
	return resp.info(), nil
}

// GetPhoneNumber resolves a phone-number id to its number.
func (c *httpClient) GetPhoneNumber(ctx context.Context, id string) (string, error) {
	var resp struct {
		Number string `json:"number"`
	}
	if err := c.get(ctx, "/phone-number/"+id, &resp); err != nil {
		return "", err
	}
	return resp.Number, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	return withRetries(ctx, c.retry, path, func(ctx context.Context) error {
		return c.getOnce(ctx, path, out)
	})
}

func (c *httpClient) getOnce(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "vapi: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "vapi: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err: eris.Wrap(err, "vapi: send request")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: eris.Wrap(err, "vapi: read response")}
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("vapi: unexpected status %d for %s", resp.StatusCode, path)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &transientError{err: statusErr}
		}
		return statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "vapi: unmarshal response")
	}
	return nil
}

package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/angelmondragon/marketplace-payments/pkg/config"
)

const (
	sandboxEnv = "sandbox"
	liveEnv    = "live"

	headerRequestID          = "PayPal-Request-Id"
	headerAuthAssertion      = "PayPal-Auth-Assertion"
	headerPartnerAttribution = "PayPal-Partner-Attribution-Id"
)

var baseURLs = map[string]string{
	sandboxEnv: "https://api-m.sandbox.paypal.com",
	liveEnv:    "https://api-m.paypal.com",
}

var (
	errClientIDRequired     = errors.New("paypal client id is required")
	errClientSecretRequired = errors.New("paypal client secret is required")
)

// Request is a single PayPal REST call. Body is JSON-encoded when non-nil.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
}

// SetHeader sets a request header, allocating the map on first use.
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[key] = value
}

// Response is the raw result of a successful (2xx) call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v. Empty bodies are a no-op.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}
	return nil
}

// Executor sends requests to PayPal. Non-2xx responses come back as *APIError.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// APIError is a non-2xx PayPal response.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	DebugID    string
	Details    []ErrorDetail
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("paypal %d %s: %s", e.StatusCode, e.Name, e.Message)
	if len(e.Details) > 0 {
		issues := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			issues = append(issues, d.Issue)
		}
		msg += " (" + strings.Join(issues, ", ") + ")"
	}
	return msg
}

func (e *APIError) Processor() string { return "paypal" }

func (e *APIError) ProcessorStatus() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// ProcessorReference is the debug id PayPal support asks for.
func (e *APIError) ProcessorReference() string {
	if e == nil {
		return ""
	}
	return e.DebugID
}

// Issue returns the first detail issue code, e.g. INSTRUMENT_DECLINED.
func (e *APIError) Issue() string {
	if e == nil || len(e.Details) == 0 {
		return ""
	}
	return e.Details[0].Issue
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Name = parsed.Name
		apiErr.Message = parsed.Message
		apiErr.DebugID = parsed.DebugID
		apiErr.Details = parsed.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Name == "" {
		apiErr.Name = http.StatusText(status)
	}
	return apiErr
}

// HTTPExecutor talks to the PayPal REST API using OAuth2 client credentials.
type HTTPExecutor struct {
	baseURL              string
	client               *http.Client
	partnerAttributionID string
}

// NewHTTPExecutor builds an executor for the configured environment. ctx
// scopes token refreshes and should live as long as the executor.
func NewHTTPExecutor(ctx context.Context, cfg config.PayPalConfig, timeout time.Duration) (*HTTPExecutor, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errClientIDRequired
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errClientSecretRequired
	}
	baseURL, ok := baseURLs[cfg.Environment()]
	if !ok {
		return nil, fmt.Errorf("paypal environment must be %q or %q", sandboxEnv, liveEnv)
	}

	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	httpClient := creds.Client(ctx)
	httpClient.Timeout = timeout

	return NewHTTPExecutorWithClient(baseURL, httpClient, cfg.PartnerAttributionID), nil
}

// NewHTTPExecutorWithClient uses a preconfigured client that already injects credentials.
func NewHTTPExecutorWithClient(baseURL string, client *http.Client, partnerAttributionID string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL:              strings.TrimRight(baseURL, "/"),
		client:               client,
		partnerAttributionID: partnerAttributionID,
	}
}

func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("paypal request is required")
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode paypal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, e.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build paypal request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Prefer", "return=representation")
	if e.partnerAttributionID != "" {
		httpReq.Header.Set(headerPartnerAttribution, e.partnerAttributionID)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paypal %s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read paypal response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

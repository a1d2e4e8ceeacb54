// Package gateway implements the flow driver's network collaborators over
// HTTP: it requests payment sessions and performs initiation round-trips
// against a checkout gateway, returning the raw payload for decoding.
package gateway

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	checkoutcontext "github.com/yourorg/checkout-sdk/internal/context"
	"github.com/yourorg/checkout-sdk/internal/flow"
	"github.com/yourorg/checkout-sdk/internal/gateway/circuitbreaker"
)

// Endpoint keys, also used as circuit breaker keys.
const (
	EndpointSession  = "session"
	EndpointPayments = "payments"
)

const (
	sessionPath  = "/paymentSession"
	paymentsPath = "/payments/initiate"

	defaultTimeout = 10 * time.Second
)

// ErrCodeNetworkUnavailable marks errors raised without a network round-trip
// because the endpoint's circuit is open.
const ErrCodeNetworkUnavailable = "NETWORK_UNAVAILABLE"

// UnavailableError is returned when an endpoint's circuit is open and the
// request fails fast instead of reaching the gateway.
type UnavailableError struct {
	Endpoint string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("gateway: %s: endpoint %s circuit open", ErrCodeNetworkUnavailable, e.Endpoint)
}

// Config wires a Gateway.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client                   // optional, a 10s-timeout client is the default
	Checkout   checkoutcontext.CheckoutConfig // merchant-level settings sent with every call
	Breaker    *circuitbreaker.CircuitBreaker // optional
}

// Gateway is an HTTP implementation of flow.SessionProvider and
// flow.SubmissionTransport.
type Gateway struct {
	httpClient *http.Client
	baseURL    string
	checkout   checkoutcontext.CheckoutConfig
	breaker    *circuitbreaker.CircuitBreaker
}

// New creates a Gateway.
func New(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		panic("gateway base URL cannot be empty")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Gateway{
		httpClient: client,
		baseURL:    cfg.BaseURL,
		checkout:   cfg.Checkout,
		breaker:    cfg.Breaker,
	}
}

// RequestSession starts a payment session and returns the raw session
// payload (method list).
func (g *Gateway) RequestSession(ctx stdcontext.Context, sessionToken string) ([]byte, error) {
	body := map[string]any{
		"sessionToken":    sessionToken,
		"merchantAccount": g.checkout.MerchantAccount,
		"countryCode":     g.checkout.CountryCode,
		"shopperLocale":   g.checkout.ShopperLocale,
		"shopperRef":      g.checkout.ShopperRef,
		"amount": map[string]any{
			"value":    g.checkout.Amount,
			"currency": g.checkout.Currency,
		},
	}
	return g.post(ctx, EndpointSession, sessionPath, body)
}

// Submit performs one payment-initiation round-trip and returns the raw
// response payload.
func (g *Gateway) Submit(ctx stdcontext.Context, sub flow.Submission) ([]byte, error) {
	body := map[string]any{
		"merchantAccount": g.checkout.MerchantAccount,
		"paymentMethod":   map[string]any{"type": sub.MethodType},
	}
	if len(sub.Details) > 0 {
		body["details"] = sub.Details
	}
	if sub.ContinuationToken != "" {
		body["paymentMethodReturnData"] = sub.ContinuationToken
	}
	if len(sub.RedirectParameters) > 0 {
		body["redirectData"] = sub.RedirectParameters
	}
	return g.post(ctx, EndpointPayments, paymentsPath, body)
}

func (g *Gateway) post(ctx stdcontext.Context, endpoint, path string, body map[string]any) ([]byte, error) {
	if g.breaker != nil && !g.breaker.IsHealthy(endpoint) {
		return nil, &UnavailableError{Endpoint: endpoint}
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Client-Key", g.checkout.ClientKey)
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.recordFailure(endpoint)
		return nil, fmt.Errorf("gateway: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		g.recordFailure(endpoint)
		return nil, fmt.Errorf("gateway: failed to read %s response: %w", endpoint, err)
	}

	// 5xx and 429 count against endpoint health. Other non-2xx responses
	// may still carry a decodable error variant, so they are handed to the
	// decoder as-is.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		g.recordFailure(endpoint)
		return nil, fmt.Errorf("gateway: %s request failed with HTTP %d: %s", endpoint, resp.StatusCode, string(payload))
	}

	g.recordSuccess(endpoint)
	return payload, nil
}

func (g *Gateway) recordFailure(endpoint string) {
	if g.breaker != nil {
		g.breaker.RecordFailure(endpoint)
	}
}

func (g *Gateway) recordSuccess(endpoint string) {
	if g.breaker != nil {
		g.breaker.RecordSuccess(endpoint)
	}
}

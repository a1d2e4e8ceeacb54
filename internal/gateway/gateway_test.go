package gateway

import (
	stdcontext "context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkoutcontext "github.com/yourorg/checkout-sdk/internal/context"
	"github.com/yourorg/checkout-sdk/internal/flow"
	"github.com/yourorg/checkout-sdk/internal/gateway/circuitbreaker"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Checkout: checkoutcontext.CheckoutConfig{
			MerchantAccount: "TestMerchant",
			ClientKey:       "test_client_key",
			CountryCode:     "NL",
			ShopperLocale:   "nl-NL",
			ShopperRef:      "shopper-1",
			Amount:          1000,
			Currency:        "EUR",
		},
	}
}

func TestNewPanicsOnEmptyBaseURL(t *testing.T) {
	assert.PanicsWithValue(t, "gateway base URL cannot be empty", func() {
		New(Config{})
	})
}

func TestRequestSessionSendsCheckoutConfig(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"paymentMethods":[{"type":"ideal","name":"iDEAL"}]}`))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	payload, err := g.RequestSession(stdcontext.Background(), "tok-123")
	require.NoError(t, err)
	assert.Contains(t, string(payload), "paymentMethods")

	assert.Equal(t, "/paymentSession", gotPath)
	assert.Equal(t, "tok-123", gotBody["sessionToken"])
	assert.Equal(t, "TestMerchant", gotBody["merchantAccount"])
	assert.Equal(t, "NL", gotBody["countryCode"])
	amount, ok := gotBody["amount"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EUR", amount["currency"])

	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "test_client_key", gotHeaders.Get("X-Client-Key"))
	assert.NotEmpty(t, gotHeaders.Get("Idempotency-Key"))
}

func TestSubmitBodyShape(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/initiate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"type":"complete","resultCode":"authorised"}`))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	_, err := g.Submit(stdcontext.Background(), flow.Submission{
		MethodType:         "scheme",
		Details:            map[string]string{"encryptedCardNumber": "card-blob"},
		ContinuationToken:  "cont-1",
		RedirectParameters: map[string]string{"MD": "md-1"},
	})
	require.NoError(t, err)

	method, ok := gotBody["paymentMethod"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "scheme", method["type"])
	assert.Equal(t, map[string]any{"encryptedCardNumber": "card-blob"}, gotBody["details"])
	assert.Equal(t, "cont-1", gotBody["paymentMethodReturnData"])
	assert.Equal(t, map[string]any{"MD": "md-1"}, gotBody["redirectData"])
}

func TestSubmitOmitsEmptyOptionalFields(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"type":"redirect","url":"https://pay.example.com/x"}`))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	_, err := g.Submit(stdcontext.Background(), flow.Submission{MethodType: "ideal"})
	require.NoError(t, err)

	assert.NotContains(t, gotBody, "details")
	assert.NotContains(t, gotBody, "paymentMethodReturnData")
	assert.NotContains(t, gotBody, "redirectData")
}

func TestClientErrorPayloadIsReturnedForDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"type":"validation","errorCode":"AMOUNT_INVALID","errorMessage":"bad amount"}`))
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	payload, err := g.Submit(stdcontext.Background(), flow.Submission{MethodType: "scheme"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "AMOUNT_INVALID")
}

func TestServerErrorsTripTheBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		FailureThreshold: 2,
		OpenStateTimeout: time.Minute,
	})
	cfg := testConfig(server.URL)
	cfg.Breaker = breaker
	g := New(cfg)

	for i := 0; i < 2; i++ {
		_, err := g.Submit(stdcontext.Background(), flow.Submission{MethodType: "scheme"})
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.Open, breaker.GetState(EndpointPayments))

	// Circuit is open, call fails fast without reaching the server.
	_, err := g.Submit(stdcontext.Background(), flow.Submission{MethodType: "scheme"})
	require.Error(t, err)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, EndpointPayments, unavailable.Endpoint)
	assert.Contains(t, err.Error(), ErrCodeNetworkUnavailable)

	// The session endpoint is tracked independently.
	assert.True(t, breaker.IsHealthy(EndpointSession))
}

func TestSuccessRecordsBreakerSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"complete","resultCode":"authorised"}`))
	}))
	defer server.Close()

	breaker := circuitbreaker.New(circuitbreaker.Settings{FailureThreshold: 3})
	cfg := testConfig(server.URL)
	cfg.Breaker = breaker
	g := New(cfg)

	_, err := g.Submit(stdcontext.Background(), flow.Submission{MethodType: "scheme"})
	require.NoError(t, err)
	assert.Equal(t, circuitbreaker.Closed, breaker.GetState(EndpointPayments))
}

func TestNetworkErrorIsWrapped(t *testing.T) {
	g := New(testConfig("http://127.0.0.1:1"))
	_, err := g.RequestSession(stdcontext.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session request failed")
}

package main

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-sdk/internal/wire"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *app) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := newApp()
	require.NoError(t, err, "Failed to initialize app")
	return setupRouter(a), a
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err, "Failed to marshal payload")
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	require.NoError(t, err, "Failed to create request")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "Failed to unmarshal response body")
	return body
}

func startFlow(t *testing.T, router *gin.Engine, shopperRef string) (string, map[string]any) {
	t.Helper()
	w := postJSON(t, router, "/checkout/start", map[string]any{
		"sessionToken": "demo-session",
		"shopperRef":   shopperRef,
	})
	require.Equal(t, http.StatusCreated, w.Code, "start should succeed: %s", w.Body.String())
	body := decodeBody(t, w)
	flowID, ok := body["flowId"].(string)
	require.True(t, ok, "response should carry a flow id")
	return flowID, body
}

func TestCheckout_CardFlow(t *testing.T) {
	router, _ := setupTestRouter(t)

	flowID, body := startFlow(t, router, "shopper-card")
	assert.Equal(t, "MethodSelectionPending", body["state"])
	assert.NotEmpty(t, body["paymentMethods"], "start should present the method list")

	// Selecting the card method yields a details form.
	w := postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "scheme"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "DetailsPending", body["state"])
	assert.NotEmpty(t, body["requestedDetails"])

	// Submitting the details completes the flow.
	w = postJSON(t, router, "/checkout/"+flowID+"/details", map[string]any{
		"values": map[string]string{"encryptedCardNumber": "card-blob"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "Finished", body["state"])
	outcome, ok := body["outcome"].(map[string]any)
	require.True(t, ok, "finished flow should carry an outcome")
	assert.Equal(t, "success", outcome["Status"])
}

func TestCheckout_RedirectFlow(t *testing.T) {
	router, _ := setupTestRouter(t)

	flowID, _ := startFlow(t, router, "shopper-redirect")

	w := postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "ideal"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Redirecting", body["state"])
	assert.Contains(t, body["redirectUrl"], "https://pay.example.com/ideal")

	w = postJSON(t, router, "/checkout/"+flowID+"/redirect-return", map[string]any{
		"returnQuery": map[string]string{"redirectResult": "result-blob"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "Finished", body["state"])
}

func TestCheckout_CancelFlow(t *testing.T) {
	router, _ := setupTestRouter(t)

	flowID, _ := startFlow(t, router, "shopper-cancel")

	w := postJSON(t, router, "/checkout/"+flowID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Finished", body["state"])
	outcome, ok := body["outcome"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cancelled", outcome["Status"])

	// Cancelling a finished flow is a state conflict.
	w = postJSON(t, router, "/checkout/"+flowID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckout_SelectOutOfOrder(t *testing.T) {
	router, _ := setupTestRouter(t)

	flowID, _ := startFlow(t, router, "shopper-order")

	w := postJSON(t, router, "/checkout/"+flowID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "scheme"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeBody(t, w)
	assert.Contains(t, errBody["error"], "SelectMethod")
}

func TestCheckout_ValidationErrors(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(t, router, "/checkout/start", map[string]any{"sessionToken": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Contains(t, body["error"], "sessionToken is required")

	flowID, _ := startFlow(t, router, "shopper-validation")
	w = postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decodeBody(t, w)
	assert.Contains(t, body["error"], "unknown payment method type")
}

func TestCheckout_UnknownFlow(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := postJSON(t, router, "/checkout/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req, err := http.NewRequest(http.MethodGet, "/checkout/nope", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetrospectiveAggregatesFinishedFlows(t *testing.T) {
	router, a := setupTestRouter(t)

	// One completed card flow and one cancelled flow.
	flowID, _ := startFlow(t, router, "shopper-a")
	w := postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "scheme"})
	require.Equal(t, http.StatusOK, w.Code)
	w = postJSON(t, router, "/checkout/"+flowID+"/details", map[string]any{
		"values": map[string]string{"encryptedCardNumber": "card-blob"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	flowID2, _ := startFlow(t, router, "shopper-b")
	w = postJSON(t, router, "/checkout/"+flowID2+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, a.journal.Entries(), 2)

	req, err := http.NewRequest(http.MethodGet, "/retrospective", nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 2, body["TotalFlows"])
	assert.EqualValues(t, 1, body["SuccessfulFlows"])
	assert.EqualValues(t, 1, body["CancelledFlows"])
	assert.EqualValues(t, 1000, body["TotalAmountProcessed"])
}

func TestPreferredMethodPreselection(t *testing.T) {
	router, a := setupTestRouter(t)

	// First flow: shopper pays by card, which stores the preference.
	flowID, _ := startFlow(t, router, "shopper-repeat")
	w := postJSON(t, router, "/checkout/"+flowID+"/select", map[string]any{"type": "scheme"})
	require.Equal(t, http.StatusOK, w.Code)
	w = postJSON(t, router, "/checkout/"+flowID+"/details", map[string]any{
		"values": map[string]string{"encryptedCardNumber": "card-blob"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, found, err := a.store.ForShopper("shopper-repeat").Load(stdcontext.Background())
	require.NoError(t, err)
	assert.True(t, found, "completed card payment should store the preferred method")

	// Second flow for the same shopper: the stored card method has a
	// details requirement, so preselection is skipped and the method
	// list is shown.
	_, body := startFlow(t, router, "shopper-repeat")
	assert.Equal(t, "MethodSelectionPending", body["state"])
	assert.NotEmpty(t, body["paymentMethods"])

	// A shopper whose stored preference is a detail-free method skips
	// straight past the list. iDEAL redirects, so the flow lands in
	// Redirecting without a select call.
	idealMethod := wire.PaymentMethod{Type: "ideal", Name: "iDEAL"}
	require.NoError(t, a.store.ForShopper("shopper-ideal").Save(stdcontext.Background(), idealMethod))
	_, body = startFlow(t, router, "shopper-ideal")
	assert.Equal(t, "Redirecting", body["state"])
}

// Package mock provides a scripted in-process gateway for tests and for
// running the demo server without a real checkout backend.
package mock

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/yourorg/checkout-sdk/internal/flow"
)

// Gateway is a scripted implementation of flow.SessionProvider and
// flow.SubmissionTransport. Behavior can be overridden per call through the
// Func fields; otherwise it serves a canned card session and approves every
// card submission that carries details.
type Gateway struct {
	RequestSessionFunc func(ctx stdcontext.Context, sessionToken string) ([]byte, error)
	SubmitFunc         func(ctx stdcontext.Context, sub flow.Submission) ([]byte, error)

	mu          sync.Mutex
	submissions []flow.Submission
}

// NewGateway creates a mock Gateway with default scripted behavior.
func NewGateway() *Gateway {
	return &Gateway{}
}

// RequestSession implements flow.SessionProvider.
func (g *Gateway) RequestSession(ctx stdcontext.Context, sessionToken string) ([]byte, error) {
	if g.RequestSessionFunc != nil {
		return g.RequestSessionFunc(ctx, sessionToken)
	}
	session := map[string]any{
		"paymentMethods": []any{
			map[string]any{
				"type": "scheme",
				"name": "Card",
				"details": []any{
					map[string]any{"key": "encryptedCardNumber", "type": "cardToken"},
					map[string]any{"key": "encryptedSecurityCode", "type": "cardToken"},
				},
			},
			map[string]any{"type": "ideal", "name": "iDEAL"},
		},
	}
	return json.Marshal(session)
}

// Submit implements flow.SubmissionTransport. The default script approves
// submissions with details, asks for card details on a bare "scheme"
// selection and redirects everything else.
func (g *Gateway) Submit(ctx stdcontext.Context, sub flow.Submission) ([]byte, error) {
	g.mu.Lock()
	g.submissions = append(g.submissions, sub)
	g.mu.Unlock()

	if g.SubmitFunc != nil {
		return g.SubmitFunc(ctx, sub)
	}

	switch {
	case len(sub.Details) > 0 || sub.ContinuationToken != "":
		return json.Marshal(map[string]any{
			"type":       "complete",
			"resultCode": "authorised",
			"payload":    "MOCK-1",
		})
	case sub.MethodType == "scheme":
		return json.Marshal(map[string]any{
			"type": "details",
			"paymentMethod": map[string]any{
				"type": "scheme",
			},
			"responseDetails": []any{
				map[string]any{"key": "encryptedCardNumber", "type": "cardToken"},
			},
			"redirectData":            map[string]any{},
			"paymentMethodReturnData": "mock-continuation",
		})
	default:
		return json.Marshal(map[string]any{
			"type":                          "redirect",
			"url":                           fmt.Sprintf("https://pay.example.com/%s", sub.MethodType),
			"submitPaymentMethodReturnData": true,
		})
	}
}

// Submissions returns a copy of every submission seen so far.
func (g *Gateway) Submissions() []flow.Submission {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]flow.Submission, len(g.submissions))
	copy(out, g.submissions)
	return out
}

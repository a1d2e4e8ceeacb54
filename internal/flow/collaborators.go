package flow

import (
	stdcontext "context"
	"net/url"

	"github.com/yourorg/checkout-sdk/internal/wire"
)

// SessionProvider starts a payment session. It is awaited exactly once per
// Start call and returns the raw session payload (method list).
type SessionProvider interface {
	RequestSession(ctx stdcontext.Context, sessionToken string) ([]byte, error)
}

// Submission is the request body handed to the SubmissionTransport. The
// first submission of a flow carries the selected method; follow-up
// submissions additionally carry collected detail values and the
// continuation token from the preceding DetailsRequired outcome.
type Submission struct {
	MethodType         string
	Details            map[string]string
	ContinuationToken  string
	RedirectParameters map[string]string
}

// SubmissionTransport performs one payment-initiation round-trip and returns
// the raw response payload for decoding. Retry policy, if any, belongs to
// the transport, never to the driver.
type SubmissionTransport interface {
	Submit(ctx stdcontext.Context, submission Submission) ([]byte, error)
}

// FinalStatus classifies a finished flow.
type FinalStatus string

const (
	FinalSuccess   FinalStatus = "success"
	FinalFailure   FinalStatus = "failure"
	FinalCancelled FinalStatus = "cancelled"
)

// Outcome is the terminal result of a flow as surfaced to the presenter.
// Result is set for successful flows; FailureCode and FailureMessage for
// failed ones.
type Outcome struct {
	Status         FinalStatus
	Result         *wire.PaymentResult
	FailureCode    string
	FailureMessage string
}

// Presenter receives driver-emitted presentation requests and returns user
// actions asynchronously by calling back into the driver. The driver holds
// a non-owning reference to its presenter; the presenter is owned by the
// top-level controller and must outlive the flow. Presenter methods are
// invoked on the driver's control sequence and must not block.
type Presenter interface {
	ShowMethodList(methods []wire.PaymentMethod)
	ShowDetailsForm(fields []wire.DetailField)
	ShowRedirect(u *url.URL)
	ShowProcessing(active bool)
	Finish(outcome Outcome)
}

// PreselectionStore persists the shopper's preferred payment method for
// future preselection. Persistence format is opaque to the driver.
type PreselectionStore interface {
	Save(ctx stdcontext.Context, method wire.PaymentMethod) error
	Load(ctx stdcontext.Context) (wire.PaymentMethod, bool, error)
}

// PreselectionPolicy decides whether a completed payment qualifies its
// method for preselection storage.
type PreselectionPolicy interface {
	ShouldStore(result wire.PaymentResult, methodType string) (bool, error)
}

// PayloadMonitor validates a raw response payload against the wire contract
// before decoding. A violation is handled like a decode failure.
type PayloadMonitor interface {
	Validate(payload []byte) (bool, []string, error)
}

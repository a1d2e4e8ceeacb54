// Package wire decodes payment-initiation responses from the checkout
// gateway into one of four outcome variants, and session payloads into
// payment method lists. Decoding is a pure transform: it never mutates the
// payload and has no side effects. The discriminator field "type" is decoded
// first and fully determines which variant's required fields must be present.
package wire

import "net/url"

// ResultStatus is the terminal status reported with a completed payment.
// Values outside the known set are carried through as-is rather than
// rejected; upstream policy decides what to do with them.
type ResultStatus string

const (
	StatusAuthorised ResultStatus = "authorised"
	StatusReceived   ResultStatus = "received"
	StatusPending    ResultStatus = "pending"
	StatusRefused    ResultStatus = "refused"
	StatusCancelled  ResultStatus = "cancelled"
	StatusError      ResultStatus = "error"
)

// PaymentResult is the nested result carried by a "complete" response.
type PaymentResult struct {
	Status  ResultStatus // from the wire field "resultCode"
	Payload string       // opaque completion payload, may be empty
}

// InitiationOutcome is the decoded form of a payment-initiation response.
// It is a closed set: exactly Complete, RedirectRequired, DetailsRequired
// and Failed implement it, and exactly one variant is produced per payload.
// A decoded outcome is immutable and consumed once by the flow driver.
type InitiationOutcome interface {
	outcomeVariant()
}

// Complete is the terminal successful (or final-status) outcome.
type Complete struct {
	Result PaymentResult
}

// RedirectRequired instructs the caller to navigate away and return with
// a post-redirect payload. ResubmitReturnQuery signals that the return
// query parameters must be resubmitted with the follow-up call.
type RedirectRequired struct {
	URL                 *url.URL
	ResubmitReturnQuery bool
}

// DetailsRequired instructs the caller to collect a value for each of
// RequestedDetails and resubmit together with ContinuationToken.
type DetailsRequired struct {
	MethodType          string
	RequestedDetails    []DetailField
	ResubmitReturnQuery bool
	RedirectParameters  map[string]string
	ContinuationToken   string
}

// Failed is the terminal failure outcome. Message is the user-facing
// description.
type Failed struct {
	Code    string
	Message string
}

func (Complete) outcomeVariant()         {}
func (RedirectRequired) outcomeVariant() {}
func (DetailsRequired) outcomeVariant()  {}
func (Failed) outcomeVariant()           {}

// DetailField describes one piece of information the gateway still needs.
// It is opaque to the flow core beyond being collected as a key/value answer.
type DetailField struct {
	Key      string
	Type     string
	Optional bool
}

// PaymentMethod is one entry of a session's method list. Details lists the
// fields that must be collected before the method can be submitted; an empty
// list means the method is submittable as-is.
type PaymentMethod struct {
	Type    string
	Name    string
	Details []DetailField
}

// SessionMethods is the decoded form of a session-start payload.
type SessionMethods struct {
	Methods   []PaymentMethod
	Preferred *PaymentMethod // previously stored method echoed by the gateway, if any
}

package flow

import (
	stdcontext "context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/yourorg/checkout-sdk/internal/context"
	"github.com/yourorg/checkout-sdk/internal/wire"
)

// Failure codes the driver attaches to terminal outcomes it synthesizes
// itself (as opposed to Failed outcomes decoded from the wire).
const (
	ErrCodeSessionFailed     = "SESSION_REQUEST_FAILED"
	ErrCodeSubmissionFailed  = "SUBMISSION_FAILED"
	ErrCodeContractViolation = "CONTRACT_VIOLATION"
	ErrCodeContractMonitor   = "CONTRACT_MONITOR_ERROR"
)

// Config wires a driver to its collaborators. Session, Transport and
// Presenter are required; Store, Policy, Monitor and Hooks are optional.
type Config struct {
	Session   SessionProvider
	Transport SubmissionTransport
	Presenter Presenter
	Store     PreselectionStore
	Policy    PreselectionPolicy
	Monitor   PayloadMonitor
	Hooks     *HookRegistry
}

// Driver coordinates one checkout flow: it requests a session, submits the
// chosen method and collected details, decodes each initiation response and
// either terminates, requests a redirect, requests more details, or surfaces
// an error. At most one outcome is awaited at a time; a second submission
// against the same instance is rejected with InvalidStateError.
type Driver struct {
	mu    sync.Mutex
	state State

	session   SessionProvider
	transport SubmissionTransport
	presenter Presenter
	store     PreselectionStore
	policy    PreselectionPolicy
	monitor   PayloadMonitor
	hooks     *HookRegistry

	flowID  string
	methods []wire.PaymentMethod
	result  *Outcome

	// Carried between an outcome and the follow-up submission.
	selected            wire.PaymentMethod
	pendingDetails      []wire.DetailField
	continuationToken   string
	redirectParams      map[string]string
	resubmitReturnQuery bool
}

// NewDriver creates a Driver in the Idle state.
func NewDriver(cfg Config) *Driver {
	if cfg.Session == nil {
		panic("SessionProvider cannot be nil")
	}
	if cfg.Transport == nil {
		panic("SubmissionTransport cannot be nil")
	}
	if cfg.Presenter == nil {
		panic("Presenter cannot be nil")
	}
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	return &Driver{
		state:     StateIdle,
		session:   cfg.Session,
		transport: cfg.Transport,
		presenter: cfg.Presenter,
		store:     cfg.Store,
		policy:    cfg.Policy,
		monitor:   cfg.Monitor,
		hooks:     hooks,
		flowID:    uuid.NewString(),
	}
}

// FlowID returns the unique identifier of this flow instance.
func (d *Driver) FlowID() string { return d.flowID }

// State returns the current driver state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Result returns the terminal outcome, or nil while the flow is running.
func (d *Driver) Result() *Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// PendingDetails returns the detail fields awaiting values in the
// DetailsPending state, for callers re-rendering the form.
func (d *Driver) PendingDetails() []wire.DetailField {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateDetailsPending {
		return nil
	}
	return d.pendingDetails
}

// Methods returns the session's method list once Start has decoded it.
func (d *Driver) Methods() []wire.PaymentMethod {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.methods
}

// Start begins the flow: it requests a session, decodes the method list and
// either presents it or, when a stored preferred method is eligible, submits
// that method directly. Valid only in the Idle state.
//
// Flow-level failures (session request, malformed session payload) do not
// return an error; they finish the flow with a Failed-equivalent outcome
// surfaced to the presenter.
func (d *Driver) Start(tc context.TraceContext, sessionToken string) error {
	tracer := otel.Tracer("flow")
	ctx, span := tracer.Start(tc.Context(), "Driver.Start")
	defer span.End()
	tc = context.NewTraceContextWithIDs(ctx, tc.TraceID(), span.SpanContext().SpanID().String())

	d.mu.Lock()
	if d.state != StateIdle {
		state := d.state
		d.mu.Unlock()
		return &InvalidStateError{Op: "Start", State: state}
	}
	d.mustTransition(StateSessionRequested)
	d.mu.Unlock()

	d.hooks.Trigger(HookFlowStarted, Event{FlowID: d.flowID, State: StateSessionRequested})

	payload, err := d.session.RequestSession(tc.Context(), sessionToken)
	if err != nil {
		log.Printf("Driver %s: session request failed: %v", d.flowID, err)
		d.finish(tc, Outcome{Status: FinalFailure, FailureCode: ErrCodeSessionFailed, FailureMessage: err.Error()})
		return nil
	}

	session, err := wire.DecodeMethods(payload)
	if err != nil {
		log.Printf("Driver %s: session payload rejected: %v", d.flowID, err)
		d.finish(tc, Outcome{Status: FinalFailure, FailureCode: decodeFailureCode(err), FailureMessage: err.Error()})
		return nil
	}

	d.mu.Lock()
	if d.state != StateSessionRequested {
		// Cancelled while the session request was in flight.
		state := d.state
		d.mu.Unlock()
		log.Printf("Driver %s: discarding session payload arriving in state %s", d.flowID, state)
		return nil
	}
	d.methods = session.Methods

	if preferred, ok := d.eligiblePreselection(tc.Context(), session); ok {
		d.selected = preferred
		d.mustTransition(StateAwaitingResult)
		d.mu.Unlock()
		log.Printf("Driver %s: submitting preselected method %q", d.flowID, preferred.Type)
		d.hooks.Trigger(HookMethodSelected, Event{FlowID: d.flowID, State: StateAwaitingResult, MethodType: preferred.Type})
		return d.submit(tc, Submission{MethodType: preferred.Type})
	}

	d.mustTransition(StateMethodSelectionPending)
	methods := session.Methods
	d.mu.Unlock()

	d.presenter.ShowMethodList(methods)
	return nil
}

// SelectMethod supplies the user's chosen payment method. A method with
// outstanding detail fields moves the flow to DetailsPending and asks the
// presenter for a details form; a method without them is submitted
// immediately. Valid only in the MethodSelectionPending state.
func (d *Driver) SelectMethod(tc context.TraceContext, method wire.PaymentMethod) error {
	d.mu.Lock()
	if d.state != StateMethodSelectionPending {
		state := d.state
		d.mu.Unlock()
		return &InvalidStateError{Op: "SelectMethod", State: state}
	}
	d.selected = method

	if len(method.Details) > 0 {
		d.mustTransition(StateDetailsPending)
		d.pendingDetails = method.Details
		d.continuationToken = ""
		d.redirectParams = nil
		fields := method.Details
		d.mu.Unlock()

		d.hooks.Trigger(HookMethodSelected, Event{FlowID: d.flowID, State: StateDetailsPending, MethodType: method.Type})
		d.hooks.Trigger(HookDetailsRequested, Event{FlowID: d.flowID, State: StateDetailsPending, MethodType: method.Type})
		d.presenter.ShowDetailsForm(fields)
		return nil
	}

	d.mustTransition(StateAwaitingResult)
	d.mu.Unlock()

	d.hooks.Trigger(HookMethodSelected, Event{FlowID: d.flowID, State: StateAwaitingResult, MethodType: method.Type})
	return d.submit(tc, Submission{MethodType: method.Type})
}

// SubmitDetails supplies collected values for the outstanding detail fields
// and resubmits, together with the continuation token when the fields were
// requested by a DetailsRequired outcome. Valid only in the DetailsPending
// state.
func (d *Driver) SubmitDetails(tc context.TraceContext, values map[string]string) error {
	d.mu.Lock()
	if d.state != StateDetailsPending {
		state := d.state
		d.mu.Unlock()
		return &InvalidStateError{Op: "SubmitDetails", State: state}
	}
	sub := Submission{
		MethodType:         d.selected.Type,
		Details:            values,
		ContinuationToken:  d.continuationToken,
		RedirectParameters: d.redirectParams,
	}
	d.mustTransition(StateAwaitingResult)
	d.mu.Unlock()

	return d.submit(tc, sub)
}

// HandleRedirectReturn resumes the flow after the external collaborator has
// navigated away and back. When the preceding redirect outcome requested it,
// the return query is resubmitted through the transport; otherwise the given
// post-redirect payload is decoded directly. Valid only in the Redirecting
// state.
func (d *Driver) HandleRedirectReturn(tc context.TraceContext, returnQuery map[string]string, payload []byte) error {
	d.mu.Lock()
	if d.state != StateRedirecting {
		state := d.state
		d.mu.Unlock()
		return &InvalidStateError{Op: "HandleRedirectReturn", State: state}
	}
	resubmit := d.resubmitReturnQuery
	sub := Submission{
		MethodType:        d.selected.Type,
		Details:           returnQuery,
		ContinuationToken: d.continuationToken,
	}
	d.mustTransition(StateAwaitingResult)
	d.mu.Unlock()

	if resubmit {
		return d.submit(tc, sub)
	}
	return d.handleResponse(tc, payload)
}

// Cancel terminates the flow immediately. Valid from any non-terminal state.
// An in-flight response arriving after cancellation is discarded.
func (d *Driver) Cancel() error {
	d.mu.Lock()
	if d.state.Terminal() {
		d.mu.Unlock()
		return &InvalidStateError{Op: "Cancel", State: StateFinished}
	}
	log.Printf("Driver %s: cancelled in state %s", d.flowID, d.state)
	d.mustTransition(StateFinished)
	outcome := Outcome{Status: FinalCancelled}
	d.result = &outcome
	method := d.selected
	d.mu.Unlock()

	flowsFinishedTotal.WithLabelValues(string(FinalCancelled)).Inc()
	d.presenter.Finish(outcome)
	d.hooks.Trigger(HookFlowFinished, Event{FlowID: d.flowID, State: StateFinished, MethodType: method.Type, Outcome: &outcome})
	return nil
}

// submit performs one initiation round-trip. The transport call runs outside
// the state lock so Cancel stays responsive while a response is in flight.
func (d *Driver) submit(tc context.TraceContext, sub Submission) error {
	tracer := otel.Tracer("flow")
	ctx, span := tracer.Start(tc.Context(), "Driver.Submit")
	defer span.End()
	tc = context.NewTraceContextWithIDs(ctx, tc.TraceID(), span.SpanContext().SpanID().String())

	d.presenter.ShowProcessing(true)
	defer d.presenter.ShowProcessing(false)

	start := time.Now()
	payload, err := d.transport.Submit(tc.Context(), sub)
	submissionDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Printf("Driver %s: submission failed: %v", d.flowID, err)
		d.finish(tc, Outcome{Status: FinalFailure, FailureCode: ErrCodeSubmissionFailed, FailureMessage: err.Error()})
		return nil
	}
	return d.handleResponse(tc, payload)
}

// handleResponse validates, decodes and applies one initiation response.
// Decode failures are fatal for the current flow and surface as a
// Failed-equivalent outcome; they are never retried here.
func (d *Driver) handleResponse(tc context.TraceContext, payload []byte) error {
	if d.monitor != nil {
		valid, violations, err := d.monitor.Validate(payload)
		if err != nil {
			d.finish(tc, Outcome{Status: FinalFailure, FailureCode: ErrCodeContractMonitor, FailureMessage: err.Error()})
			return nil
		}
		if !valid {
			decodeFailuresTotal.WithLabelValues(ErrCodeContractViolation).Inc()
			d.finish(tc, Outcome{
				Status:         FinalFailure,
				FailureCode:    ErrCodeContractViolation,
				FailureMessage: strings.Join(violations, "; "),
			})
			return nil
		}
	}

	outcome, err := wire.Decode(payload)
	if err != nil {
		code := decodeFailureCode(err)
		decodeFailuresTotal.WithLabelValues(code).Inc()
		log.Printf("Driver %s: response rejected: %v", d.flowID, err)
		d.finish(tc, Outcome{Status: FinalFailure, FailureCode: code, FailureMessage: err.Error()})
		return nil
	}

	outcomesDecodedTotal.WithLabelValues(variantName(outcome)).Inc()
	return d.apply(tc, outcome)
}

// apply interprets a decoded outcome. The current state is re-checked under
// the lock first: a response that arrives after cancellation (or any other
// terminal transition) is discarded without a state change or presenter call.
func (d *Driver) apply(tc context.TraceContext, outcome wire.InitiationOutcome) error {
	d.mu.Lock()
	if d.state != StateAwaitingResult {
		state := d.state
		d.mu.Unlock()
		log.Printf("Driver %s: discarding %s outcome arriving in state %s", d.flowID, variantName(outcome), state)
		return nil
	}

	switch v := outcome.(type) {
	case wire.Complete:
		d.mu.Unlock()
		result := v.Result
		d.finish(tc, Outcome{Status: FinalSuccess, Result: &result})

	case wire.Failed:
		d.mu.Unlock()
		d.finish(tc, Outcome{Status: FinalFailure, FailureCode: v.Code, FailureMessage: v.Message})

	case wire.RedirectRequired:
		d.mustTransition(StateRedirecting)
		d.resubmitReturnQuery = v.ResubmitReturnQuery
		methodType := d.selected.Type
		d.mu.Unlock()

		d.hooks.Trigger(HookRedirectRequested, Event{FlowID: d.flowID, State: StateRedirecting, MethodType: methodType})
		d.presenter.ShowRedirect(v.URL)

	case wire.DetailsRequired:
		d.mustTransition(StateDetailsPending)
		d.pendingDetails = v.RequestedDetails
		d.continuationToken = v.ContinuationToken
		d.redirectParams = v.RedirectParameters
		d.resubmitReturnQuery = v.ResubmitReturnQuery
		if v.MethodType != "" {
			d.selected.Type = v.MethodType
		}
		methodType := d.selected.Type
		fields := v.RequestedDetails
		d.mu.Unlock()

		d.hooks.Trigger(HookDetailsRequested, Event{FlowID: d.flowID, State: StateDetailsPending, MethodType: methodType})
		d.presenter.ShowDetailsForm(fields)
	}
	return nil
}

// finish moves the flow to its terminal state and surfaces the outcome.
// A no-op when the flow is already terminal (e.g. cancelled while a
// response was in flight).
func (d *Driver) finish(tc context.TraceContext, outcome Outcome) {
	d.mu.Lock()
	if d.state.Terminal() {
		d.mu.Unlock()
		log.Printf("Driver %s: discarding %s outcome, flow already finished", d.flowID, outcome.Status)
		return
	}
	d.mustTransition(StateFinished)
	d.result = &outcome
	method := d.selected
	d.mu.Unlock()

	flowsFinishedTotal.WithLabelValues(string(outcome.Status)).Inc()

	if outcome.Status == FinalSuccess && outcome.Result != nil {
		d.maybeStorePreferred(tc.Context(), method, *outcome.Result)
	}

	d.presenter.Finish(outcome)
	d.hooks.Trigger(HookFlowFinished, Event{FlowID: d.flowID, State: StateFinished, MethodType: method.Type, Outcome: &outcome})
}

// maybeStorePreferred persists the method for future preselection when the
// terminal status qualifies. Store failures are logged, never surfaced: the
// payment itself already succeeded.
func (d *Driver) maybeStorePreferred(ctx stdcontext.Context, method wire.PaymentMethod, result wire.PaymentResult) {
	if d.store == nil {
		return
	}
	qualifies := false
	if d.policy != nil {
		ok, err := d.policy.ShouldStore(result, method.Type)
		if err != nil {
			log.Printf("Driver %s: preselection policy error: %v", d.flowID, err)
			return
		}
		qualifies = ok
	} else {
		qualifies = result.Status == wire.StatusAuthorised || result.Status == wire.StatusReceived
	}
	if !qualifies {
		return
	}
	if err := d.store.Save(ctx, method); err != nil {
		log.Printf("Driver %s: failed to store preferred method: %v", d.flowID, err)
	}
}

// eligiblePreselection returns a stored (or gateway-echoed) preferred method
// when it appears in the session's method list and has no outstanding detail
// fields. Caller holds d.mu.
func (d *Driver) eligiblePreselection(ctx stdcontext.Context, session wire.SessionMethods) (wire.PaymentMethod, bool) {
	var preferred *wire.PaymentMethod
	if d.store != nil {
		stored, ok, err := d.store.Load(ctx)
		if err != nil {
			log.Printf("Driver %s: preselection store load failed: %v", d.flowID, err)
		} else if ok {
			preferred = &stored
		}
	}
	if preferred == nil {
		preferred = session.Preferred
	}
	if preferred == nil {
		return wire.PaymentMethod{}, false
	}
	for _, method := range session.Methods {
		if method.Type == preferred.Type && len(method.Details) == 0 {
			return method, true
		}
	}
	return wire.PaymentMethod{}, false
}

// mustTransition applies a transition that the calling operation has already
// established as legal. An illegal transition here is a driver bug, not a
// caller error. Caller holds d.mu.
func (d *Driver) mustTransition(to State) {
	if !validTransition(d.state, to) {
		panic(fmt.Sprintf("flow: illegal transition %s -> %s", d.state, to))
	}
	d.state = to
}

func variantName(outcome wire.InitiationOutcome) string {
	switch outcome.(type) {
	case wire.Complete:
		return "complete"
	case wire.RedirectRequired:
		return "redirect"
	case wire.DetailsRequired:
		return "details"
	case wire.Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func decodeFailureCode(err error) string {
	var wireErr *wire.Error
	if errors.As(err, &wireErr) {
		return string(wireErr.Code)
	}
	return "DECODE_FAILED"
}

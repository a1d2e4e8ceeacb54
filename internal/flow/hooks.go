package flow

import "sync"

// HookEvent represents a named lifecycle event of a checkout flow.
type HookEvent string

// Hook event constants represent the lifecycle events observers can react to.
const (
	HookFlowStarted       HookEvent = "flow:started"
	HookMethodSelected    HookEvent = "method:selected"
	HookDetailsRequested  HookEvent = "details:requested"
	HookRedirectRequested HookEvent = "redirect:requested"
	HookFlowFinished      HookEvent = "flow:finished"
)

// Event carries the flow snapshot handed to hook handlers.
type Event struct {
	FlowID     string
	State      State
	MethodType string
	Outcome    *Outcome // set on HookFlowFinished only
}

// HookRegistry manages lifecycle event handlers for flow state changes.
// Handlers are stored per event and execute sequentially in registration
// order. The registry is safe for concurrent registration and triggering.
type HookRegistry struct {
	mu       sync.RWMutex
	handlers map[HookEvent][]func(Event)
}

// NewHookRegistry creates an empty lifecycle hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{handlers: make(map[HookEvent][]func(Event))}
}

// On registers a handler for a lifecycle event. Handlers should be quick,
// non-blocking operations.
func (r *HookRegistry) On(event HookEvent, handler func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], handler)
}

// Trigger executes all handlers registered for the event in order.
func (r *HookRegistry) Trigger(event HookEvent, e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, handler := range r.handlers[event] {
		handler(e)
	}
}

// Package memory provides an in-memory preferred-method store for tests and
// the demo host.
package memory

import (
	stdcontext "context"
	"sync"

	"github.com/yourorg/checkout-sdk/internal/wire"
)

// PreferredMethodStore keeps preferred payment methods per shopper
// reference. It is safe for concurrent use.
type PreferredMethodStore struct {
	mu      sync.RWMutex
	methods map[string]wire.PaymentMethod
}

// NewPreferredMethodStore creates an empty store.
func NewPreferredMethodStore() *PreferredMethodStore {
	return &PreferredMethodStore{methods: make(map[string]wire.PaymentMethod)}
}

// ForShopper returns a view of the store bound to one shopper reference,
// suitable as a flow driver's PreselectionStore.
func (s *PreferredMethodStore) ForShopper(shopperRef string) *BoundStore {
	return &BoundStore{store: s, shopperRef: shopperRef}
}

func (s *PreferredMethodStore) save(shopperRef string, method wire.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[shopperRef] = method
}

func (s *PreferredMethodStore) load(shopperRef string) (wire.PaymentMethod, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	method, ok := s.methods[shopperRef]
	return method, ok
}

// BoundStore is a PreferredMethodStore scoped to a single shopper.
type BoundStore struct {
	store      *PreferredMethodStore
	shopperRef string
}

// Save persists the method as the shopper's preferred method.
func (b *BoundStore) Save(_ stdcontext.Context, method wire.PaymentMethod) error {
	b.store.save(b.shopperRef, method)
	return nil
}

// Load returns the shopper's preferred method, if one was saved.
func (b *BoundStore) Load(_ stdcontext.Context) (wire.PaymentMethod, bool, error) {
	method, ok := b.store.load(b.shopperRef)
	return method, ok, nil
}

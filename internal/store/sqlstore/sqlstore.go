// Package sqlstore persists preferred payment methods in a SQL database.
// The schema is a single table:
//
//	CREATE TABLE preferred_methods (
//	    shopper_ref  TEXT PRIMARY KEY,
//	    method_type  TEXT NOT NULL,
//	    method_name  TEXT NOT NULL,
//	    updated_at   TIMESTAMPTZ NOT NULL
//	)
package sqlstore

import (
	stdcontext "context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yourorg/checkout-sdk/internal/wire"
)

const (
	upsertQuery = `INSERT INTO preferred_methods (shopper_ref, method_type, method_name, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (shopper_ref) DO UPDATE SET method_type = $2, method_name = $3, updated_at = $4`

	selectQuery = `SELECT method_type, method_name FROM preferred_methods WHERE shopper_ref = $1`
)

// Store persists preferred methods through database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a Store on an open database handle.
func New(db *sql.DB) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Store{db: db, now: time.Now}
}

// ForShopper returns a view of the store bound to one shopper reference,
// suitable as a flow driver's PreselectionStore.
func (s *Store) ForShopper(shopperRef string) *BoundStore {
	return &BoundStore{store: s, shopperRef: shopperRef}
}

// BoundStore is a Store scoped to a single shopper.
type BoundStore struct {
	store      *Store
	shopperRef string
}

// Save upserts the shopper's preferred method.
func (b *BoundStore) Save(ctx stdcontext.Context, method wire.PaymentMethod) error {
	_, err := b.store.db.ExecContext(ctx, upsertQuery,
		b.shopperRef, method.Type, method.Name, b.store.now().UTC())
	if err != nil {
		return fmt.Errorf("sqlstore: saving preferred method for %s: %w", b.shopperRef, err)
	}
	return nil
}

// Load returns the shopper's preferred method, if one was saved. The stored
// method carries no detail descriptors; preselection only ever applies to
// methods without outstanding details.
func (b *BoundStore) Load(ctx stdcontext.Context) (wire.PaymentMethod, bool, error) {
	var method wire.PaymentMethod
	row := b.store.db.QueryRowContext(ctx, selectQuery, b.shopperRef)
	if err := row.Scan(&method.Type, &method.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wire.PaymentMethod{}, false, nil
		}
		return wire.PaymentMethod{}, false, fmt.Errorf("sqlstore: loading preferred method for %s: %w", b.shopperRef, err)
	}
	return method, true, nil
}

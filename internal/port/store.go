package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

// Store is the persistence collaborator for the inventory engine. Any
// backend satisfying it is sufficient; the engine assumes nothing else.
//
// RemoveStock carries the atomicity contract: the sufficiency check and the
// decrement must happen as one operation, so two concurrent removals of the
// same product can never both pass against a stale quantity.
type Store interface {
	// GetQuantity returns the on-hand quantity; ok is false when the
	// product has never been added.
	GetQuantity(ctx context.Context, product string) (qty int, ok bool, err error)

	// AddStock increments the quantity, creating the entry at zero first
	// when needed, and returns the new quantity.
	AddStock(ctx context.Context, product string, qty int) (int, error)

	// RemoveStock decrements only when the on-hand quantity >= qty. On
	// insufficient stock (including unknown products) it returns the
	// current quantity together with domain.ErrInsufficientStock and
	// leaves the entry untouched.
	RemoveStock(ctx context.Context, product string, qty int) (int, error)

	// SetPricing records cost and selling price for a product, creating
	// the entry at quantity zero when needed.
	SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error

	// AppendSale adds to the append-only sales ledger.
	AppendSale(ctx context.Context, sale domain.SaleRecord) error

	// AppendLog adds to the append-only command audit log.
	AppendLog(ctx context.Context, entry domain.CommandLogEntry) error

	// Entries lists every tracked product, including those at quantity zero.
	Entries(ctx context.Context) ([]domain.InventoryEntry, error)

	// Sales lists the sales ledger in append order.
	Sales(ctx context.Context) ([]domain.SaleRecord, error)

	// Logs lists the command log in append order.
	Logs(ctx context.Context) ([]domain.CommandLogEntry, error)
}

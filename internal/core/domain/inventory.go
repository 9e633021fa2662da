package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientStock is returned when a SELL or DELETE asks for more than
// is on hand. The decrement is all-or-nothing; stock is never clamped.
var ErrInsufficientStock = errors.New("insufficient stock")

// InventoryEntry tracks the on-hand quantity for one product. Quantity zero
// is a valid state: the product stays known, just out of stock.
type InventoryEntry struct {
	Product      string
	Quantity     int
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaleRecord is an immutable ledger entry created by a successful SELL.
type SaleRecord struct {
	ID        string
	Product   string
	Quantity  int
	CreatedAt time.Time
}

type LogStatus string

const (
	LogStatusApplied  LogStatus = "applied"
	LogStatusRejected LogStatus = "rejected"
)

// CommandLogEntry records every processed command attempt, success or
// failure. Exactly one is appended per engine invocation.
type CommandLogEntry struct {
	ID         string
	Transcript string
	Intent     Intent // empty when the transcript never parsed
	Product    string
	Status     LogStatus
	Reason     string // failure reason for rejected attempts
	Delta      int    // signed quantity change actually applied
	CreatedAt  time.Time
}

// Stats is derived on demand from the inventory and sales sets, never cached.
type Stats struct {
	TotalProducts      int
	TotalUnits         int
	TotalSalesCount    int
	TotalSalesQuantity int
	InventoryValue     decimal.Decimal
	PotentialProfit    decimal.Decimal
	LowStockCount      int
	LowStockItems      []InventoryEntry
}

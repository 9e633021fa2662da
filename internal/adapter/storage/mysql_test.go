package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

func getMySQLStore(t *testing.T) (*MySQLStore, *sql.DB) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/inventory?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	store := NewMySQLStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store, db
}

func TestMySQLStore_AddAndRemove(t *testing.T) {
	store, db := getMySQLStore(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM inventory WHERE product = 'test-milk'`)

	newQty, err := store.AddStock(ctx, "test-milk", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newQty != 10 {
		t.Errorf("expected 10, got %d", newQty)
	}

	newQty, err = store.AddStock(ctx, "test-milk", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newQty != 15 {
		t.Errorf("expected 15, got %d", newQty)
	}

	newQty, err = store.RemoveStock(ctx, "test-milk", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newQty != 9 {
		t.Errorf("expected 9, got %d", newQty)
	}
}

func TestMySQLStore_RemoveInsufficient(t *testing.T) {
	store, db := getMySQLStore(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM inventory WHERE product = 'test-milk'`)
	store.AddStock(ctx, "test-milk", 5)

	current, err := store.RemoveStock(ctx, "test-milk", 10)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if current != 5 {
		t.Errorf("expected current 5, got %d", current)
	}

	qty, found, _ := store.GetQuantity(ctx, "test-milk")
	if !found || qty != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", qty)
	}
}

func TestMySQLStore_PricingAndEntries(t *testing.T) {
	store, db := getMySQLStore(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM inventory WHERE product = 'test-soap'`)
	store.AddStock(ctx, "test-soap", 3)

	cost := decimal.RequireFromString("8.50")
	selling := decimal.RequireFromString("10.00")
	if err := store.SetPricing(ctx, "test-soap", cost, selling); err != nil {
		t.Fatalf("set pricing: %v", err)
	}

	entries, err := store.Entries(ctx)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	for _, e := range entries {
		if e.Product != "test-soap" {
			continue
		}
		if e.Quantity != 3 {
			t.Errorf("expected quantity 3, got %d", e.Quantity)
		}
		if !e.CostPrice.Equal(cost) || !e.SellingPrice.Equal(selling) {
			t.Errorf("pricing not stored: %+v", e)
		}
		return
	}
	t.Error("test-soap not found in entries")
}

func TestMySQLStore_Ledgers(t *testing.T) {
	store, db := getMySQLStore(t)
	defer db.Close()

	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM sales WHERE product = 'test-ledger'`)
	db.ExecContext(ctx, `DELETE FROM command_log WHERE product = 'test-ledger'`)

	sale := domain.SaleRecord{
		ID:        uuid.NewString(),
		Product:   "test-ledger",
		Quantity:  2,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.AppendSale(ctx, sale); err != nil {
		t.Fatalf("append sale: %v", err)
	}

	entry := domain.CommandLogEntry{
		ID:         uuid.NewString(),
		Transcript: "sold 2 test ledgers",
		Intent:     domain.IntentSell,
		Product:    "test-ledger",
		Status:     domain.LogStatusApplied,
		Delta:      -2,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := store.AppendLog(ctx, entry); err != nil {
		t.Fatalf("append log: %v", err)
	}

	sales, err := store.Sales(ctx)
	if err != nil {
		t.Fatalf("sales: %v", err)
	}
	foundSale := false
	for _, s := range sales {
		if s.ID == sale.ID {
			foundSale = true
		}
	}
	if !foundSale {
		t.Error("appended sale not listed")
	}

	logs, err := store.Logs(ctx)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	foundLog := false
	for _, e := range logs {
		if e.ID == entry.ID {
			foundLog = true
			if e.Status != domain.LogStatusApplied || e.Delta != -2 {
				t.Errorf("log entry round-trip mismatch: %+v", e)
			}
		}
	}
	if !foundLog {
		t.Error("appended log entry not listed")
	}
}

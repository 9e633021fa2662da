package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karandev/voice-inventory/internal/core/domain"
	"github.com/karandev/voice-inventory/internal/core/parser"
)

// Mock Store
type mockStore struct {
	mu      sync.Mutex
	stock   map[string]int
	pricing map[string][2]decimal.Decimal
	sales   []domain.SaleRecord
	logs    []domain.CommandLogEntry
	saleErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		stock:   make(map[string]int),
		pricing: make(map[string][2]decimal.Decimal),
	}
}

func (m *mockStore) GetQuantity(ctx context.Context, product string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.stock[product]
	return qty, ok, nil
}

func (m *mockStore) AddStock(ctx context.Context, product string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[product] += qty
	return m.stock[product], nil
}

func (m *mockStore) RemoveStock(ctx context.Context, product string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.stock[product]
	if current < qty {
		return current, domain.ErrInsufficientStock
	}
	m.stock[product] = current - qty
	return m.stock[product], nil
}

func (m *mockStore) SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pricing[product] = [2]decimal.Decimal{cost, selling}
	return nil
}

func (m *mockStore) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saleErr != nil {
		return m.saleErr
	}
	m.sales = append(m.sales, sale)
	return nil
}

func (m *mockStore) AppendLog(ctx context.Context, entry domain.CommandLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *mockStore) Entries(ctx context.Context) ([]domain.InventoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InventoryEntry
	for product, qty := range m.stock {
		e := domain.InventoryEntry{Product: product, Quantity: qty,
			CostPrice: decimal.Zero, SellingPrice: decimal.Zero}
		if p, ok := m.pricing[product]; ok {
			e.CostPrice, e.SellingPrice = p[0], p[1]
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockStore) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SaleRecord, len(m.sales))
	copy(out, m.sales)
	return out, nil
}

func (m *mockStore) Logs(ctx context.Context) ([]domain.CommandLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CommandLogEntry, len(m.logs))
	copy(out, m.logs)
	return out, nil
}

func (m *mockStore) logCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func newTestService(store *mockStore) *InventoryService {
	return NewInventoryService(store, zap.NewNop(), 5)
}

func TestProcessCommand_Add(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	outcome, err := svc.ProcessCommand(context.Background(), "add 10 packets of milk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Action != domain.IntentAdd {
		t.Errorf("expected add action, got %s", outcome.Action)
	}
	if outcome.NewQuantity != 10 {
		t.Errorf("expected new quantity 10, got %d", outcome.NewQuantity)
	}
	if outcome.SaleRecorded {
		t.Error("add must not record a sale")
	}
	if store.stock["milk"] != 10 {
		t.Errorf("expected stock 10, got %d", store.stock["milk"])
	}
}

func TestProcessCommand_AddIsAdditiveNotIdempotent(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	cmd := domain.Command{Intent: domain.IntentAdd, Quantity: 10, Product: "milk"}
	if _, err := svc.Apply(ctx, cmd, "add 10 milk"); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	if _, err := svc.Apply(ctx, cmd, "add 10 milk"); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	if store.stock["milk"] != 20 {
		t.Errorf("expected stock 20 after applying the same ADD twice, got %d", store.stock["milk"])
	}
}

func TestProcessCommand_SellRecordsSale(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ProcessCommand(ctx, "add 10 milks"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	outcome, err := svc.ProcessCommand(ctx, "sold 10 milks")
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if outcome.NewQuantity != 0 {
		t.Errorf("expected quantity 0, got %d", outcome.NewQuantity)
	}
	if !outcome.SaleRecorded {
		t.Error("expected a sale record")
	}
	if len(store.sales) != 1 {
		t.Fatalf("expected 1 sale record, got %d", len(store.sales))
	}
	if store.sales[0].Product != "milk" || store.sales[0].Quantity != 10 {
		t.Errorf("unexpected sale record %+v", store.sales[0])
	}
	if store.sales[0].ID == "" {
		t.Error("expected non-empty sale ID")
	}

	// Selling from zero now fails.
	_, err = svc.ProcessCommand(ctx, "sold 1 milk")
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestProcessCommand_InsufficientStock(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ProcessCommand(ctx, "add 10 milks"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	_, err := svc.ProcessCommand(ctx, "sold 15 milks")
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.OnHand != 10 || stockErr.Requested != 15 {
		t.Errorf("unexpected error detail %+v", stockErr)
	}

	// All-or-nothing: no partial decrement.
	if store.stock["milk"] != 10 {
		t.Errorf("expected stock unchanged at 10, got %d", store.stock["milk"])
	}
	if len(store.sales) != 0 {
		t.Errorf("expected no sale records, got %d", len(store.sales))
	}
}

func TestProcessCommand_DeleteSkipsSaleLedger(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ProcessCommand(ctx, "add 5 bottles of oil"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	outcome, err := svc.ProcessCommand(ctx, "delete 2 bottles of oil")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if outcome.SaleRecorded {
		t.Error("delete must not record a sale")
	}
	if outcome.NewQuantity != 3 {
		t.Errorf("expected quantity 3, got %d", outcome.NewQuantity)
	}
	if len(store.sales) != 0 {
		t.Errorf("expected no sale records, got %d", len(store.sales))
	}
}

func TestProcessCommand_OneLogEntryPerInvocation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	transcripts := []string{
		"add 10 packets of milk", // applied
		"sold 3 milks",           // applied
		"sold 100 milks",         // rejected: insufficient
		"please do something",    // rejected: unknown intent
		"add milk",               // rejected: missing quantity
		"delete 1 milk",          // applied
	}
	for i, transcript := range transcripts {
		before := store.logCount()
		svc.ProcessCommand(ctx, transcript)
		if got := store.logCount(); got != before+1 {
			t.Fatalf("command %d (%q): log grew by %d, want 1", i, transcript, got-before)
		}
	}

	logs, _ := store.Logs(ctx)
	applied, rejected := 0, 0
	for _, e := range logs {
		switch e.Status {
		case domain.LogStatusApplied:
			applied++
		case domain.LogStatusRejected:
			rejected++
		}
		if e.ID == "" || e.Transcript == "" || e.CreatedAt.IsZero() {
			t.Errorf("incomplete log entry %+v", e)
		}
	}
	if applied != 3 || rejected != 3 {
		t.Errorf("expected 3 applied / 3 rejected, got %d / %d", applied, rejected)
	}
}

func TestProcessCommand_ParseFailureLogged(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.ProcessCommand(context.Background(), "add milk")
	if !errors.Is(err, parser.ErrMissingQuantity) {
		t.Fatalf("expected ErrMissingQuantity, got %v", err)
	}

	logs, _ := store.Logs(context.Background())
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Status != domain.LogStatusRejected {
		t.Errorf("expected rejected status, got %s", entry.Status)
	}
	if entry.Transcript != "add milk" {
		t.Errorf("expected original transcript, got %q", entry.Transcript)
	}
	if entry.Reason != "missing quantity" {
		t.Errorf("expected reason \"missing quantity\", got %q", entry.Reason)
	}
}

func TestStats_MatchesRecomputation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	commands := []string{
		"add 10 packets of milk",
		"add 20 soaps",
		"sold 5 soaps",
		"add 2 bottles of oil",
		"sold 3 milks",
		"delete 1 bottle of oil",
	}
	for _, c := range commands {
		if _, err := svc.ProcessCommand(ctx, c); err != nil {
			t.Fatalf("command %q failed: %v", c, err)
		}
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	// Recompute from the raw sets and compare.
	entries, _ := store.Entries(ctx)
	sales, _ := store.Sales(ctx)
	wantUnits := 0
	for _, e := range entries {
		wantUnits += e.Quantity
	}
	wantSalesQty := 0
	for _, s := range sales {
		wantSalesQty += s.Quantity
	}

	if stats.TotalProducts != len(entries) {
		t.Errorf("total products %d, want %d", stats.TotalProducts, len(entries))
	}
	if stats.TotalUnits != wantUnits {
		t.Errorf("total units %d, want %d", stats.TotalUnits, wantUnits)
	}
	if stats.TotalSalesCount != len(sales) {
		t.Errorf("sales count %d, want %d", stats.TotalSalesCount, len(sales))
	}
	if stats.TotalSalesQuantity != wantSalesQty {
		t.Errorf("sales quantity %d, want %d", stats.TotalSalesQuantity, wantSalesQty)
	}

	// milk=7, soap=15, oil=1 -> oil under the threshold of 5.
	if stats.LowStockCount != 1 || stats.LowStockItems[0].Product != "oil" {
		t.Errorf("unexpected low stock report: count=%d items=%+v", stats.LowStockCount, stats.LowStockItems)
	}
}

func TestStats_Valuation(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ProcessCommand(ctx, "add 10 soaps"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	cost := decimal.RequireFromString("8.50")
	selling := decimal.RequireFromString("10.00")
	if err := store.SetPricing(ctx, "soap", cost, selling); err != nil {
		t.Fatalf("set pricing failed: %v", err)
	}
	// Unpriced product contributes nothing to valuation.
	if _, err := svc.ProcessCommand(ctx, "add 99 bottles of water"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if want := decimal.RequireFromString("100"); !stats.InventoryValue.Equal(want) {
		t.Errorf("inventory value %s, want %s", stats.InventoryValue, want)
	}
	if want := decimal.RequireFromString("15"); !stats.PotentialProfit.Equal(want) {
		t.Errorf("potential profit %s, want %s", stats.PotentialProfit, want)
	}
}

func TestProcessCommand_ConcurrentSells(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	store := newMockStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.ProcessCommand(ctx, "add 20 soaps"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ProcessCommand(ctx, "sold 1 soap"); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if store.stock["soap"] != 0 {
		t.Errorf("expected stock 0, got %d", store.stock["soap"])
	}
	if len(store.sales) != initialStock {
		t.Errorf("expected %d sale records, got %d", initialStock, len(store.sales))
	}
	// add + 50 sell attempts, each logged exactly once.
	if got := store.logCount(); got != totalRequests+1 {
		t.Errorf("expected %d log entries, got %d", totalRequests+1, got)
	}
}

func TestApply_SaleAppendFailureSurfaces(t *testing.T) {
	store := newMockStore()
	store.saleErr = errors.New("ledger unavailable")
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, domain.Command{Intent: domain.IntentAdd, Quantity: 5, Product: "milk"}, "add 5 milk"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	_, err := svc.Apply(ctx, domain.Command{Intent: domain.IntentSell, Quantity: 2, Product: "milk"}, "sold 2 milk")
	if err == nil {
		t.Fatal("expected error when the sale ledger fails")
	}
	// Stock already moved; the log still gained exactly one entry.
	if store.stock["milk"] != 3 {
		t.Errorf("expected stock 3, got %d", store.stock["milk"])
	}
	if store.logCount() != 2 {
		t.Errorf("expected 2 log entries, got %d", store.logCount())
	}
}

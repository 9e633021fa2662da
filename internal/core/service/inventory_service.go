package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/karandev/voice-inventory/internal/core/domain"
	"github.com/karandev/voice-inventory/internal/core/parser"
	"github.com/karandev/voice-inventory/internal/port"
)

// InsufficientStockError reports a rejected SELL or DELETE together with the
// on-hand quantity, so the user can retry with a corrected number.
type InsufficientStockError struct {
	Product   string
	Requested int
	OnHand    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, %d on hand", e.Product, e.Requested, e.OnHand)
}

func (e *InsufficientStockError) Unwrap() error { return domain.ErrInsufficientStock }

// Outcome describes a successfully applied command.
type Outcome struct {
	Action       domain.Intent
	Product      string
	Unit         string
	Quantity     int
	NewQuantity  int
	SaleRecorded bool
}

type InventoryService struct {
	store             port.Store
	logger            *zap.Logger
	tracer            trace.Tracer
	lowStockThreshold int
}

func NewInventoryService(store port.Store, logger *zap.Logger, lowStockThreshold int) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &InventoryService{
		store:             store,
		logger:            logger,
		tracer:            otel.Tracer("voice-inventory/service"),
		lowStockThreshold: lowStockThreshold,
	}
}

// ProcessCommand interprets a transcript and applies the resulting command.
// Every invocation, parseable or not, appends exactly one log entry.
func (s *InventoryService) ProcessCommand(ctx context.Context, transcript string) (*Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.process_command",
		trace.WithAttributes(attribute.String("command.transcript", transcript)))
	defer span.End()

	cmd, err := parser.Parse(transcript)
	if err != nil {
		s.appendLog(ctx, domain.CommandLogEntry{
			Transcript: transcript,
			Status:     domain.LogStatusRejected,
			Reason:     parseReason(err),
		})
		s.logger.Warn("command not parsed",
			zap.String("transcript", transcript),
			zap.String("reason", parseReason(err)))
		return nil, err
	}

	return s.Apply(ctx, cmd, transcript)
}

// Apply executes a parsed command against the store. A valid ADD always
// succeeds; SELL and DELETE are all-or-nothing conditional decrements.
// Exactly one log entry is appended per call, whatever the outcome.
func (s *InventoryService) Apply(ctx context.Context, cmd domain.Command, transcript string) (*Outcome, error) {
	switch cmd.Intent {
	case domain.IntentAdd:
		return s.applyAdd(ctx, cmd, transcript)
	case domain.IntentSell:
		return s.applyRemove(ctx, cmd, transcript, true)
	case domain.IntentDelete:
		return s.applyRemove(ctx, cmd, transcript, false)
	default:
		s.appendLog(ctx, domain.CommandLogEntry{
			Transcript: transcript,
			Intent:     cmd.Intent,
			Product:    cmd.Product,
			Status:     domain.LogStatusRejected,
			Reason:     "unknown intent",
		})
		return nil, fmt.Errorf("unknown intent %q", cmd.Intent)
	}
}

func (s *InventoryService) applyAdd(ctx context.Context, cmd domain.Command, transcript string) (*Outcome, error) {
	newQty, err := s.store.AddStock(ctx, cmd.Product, cmd.Quantity)
	if err != nil {
		s.appendLog(ctx, rejectedEntry(cmd, transcript, err.Error()))
		return nil, fmt.Errorf("add stock: %w", err)
	}

	s.appendLog(ctx, appliedEntry(cmd, transcript, cmd.Quantity))
	s.logger.Info("stock added",
		zap.String("product", cmd.Product),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("new_quantity", newQty))

	return &Outcome{
		Action:      cmd.Intent,
		Product:     cmd.Product,
		Unit:        cmd.Unit,
		Quantity:    cmd.Quantity,
		NewQuantity: newQty,
	}, nil
}

func (s *InventoryService) applyRemove(ctx context.Context, cmd domain.Command, transcript string, recordSale bool) (*Outcome, error) {
	newQty, err := s.store.RemoveStock(ctx, cmd.Product, cmd.Quantity)
	if errors.Is(err, domain.ErrInsufficientStock) {
		s.appendLog(ctx, rejectedEntry(cmd, transcript, "insufficient stock"))
		s.logger.Warn("insufficient stock",
			zap.String("product", cmd.Product),
			zap.Int("requested", cmd.Quantity),
			zap.Int("on_hand", newQty))
		return nil, &InsufficientStockError{Product: cmd.Product, Requested: cmd.Quantity, OnHand: newQty}
	}
	if err != nil {
		s.appendLog(ctx, rejectedEntry(cmd, transcript, err.Error()))
		return nil, fmt.Errorf("remove stock: %w", err)
	}

	saleRecorded := false
	if recordSale {
		sale := domain.SaleRecord{
			ID:        uuid.NewString(),
			Product:   cmd.Product,
			Quantity:  cmd.Quantity,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.AppendSale(ctx, sale); err != nil {
			// Stock has already moved; surface the failure without
			// pretending the decrement did not happen.
			s.appendLog(ctx, appliedEntry(cmd, transcript, -cmd.Quantity))
			s.logger.Error("sale record append failed",
				zap.String("product", cmd.Product), zap.Error(err))
			return nil, fmt.Errorf("append sale: %w", err)
		}
		saleRecorded = true
	}

	s.appendLog(ctx, appliedEntry(cmd, transcript, -cmd.Quantity))
	s.logger.Info("stock removed",
		zap.String("action", string(cmd.Intent)),
		zap.String("product", cmd.Product),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("new_quantity", newQty))

	return &Outcome{
		Action:       cmd.Intent,
		Product:      cmd.Product,
		Unit:         cmd.Unit,
		Quantity:     cmd.Quantity,
		NewQuantity:  newQty,
		SaleRecorded: saleRecorded,
	}, nil
}

// OnHand reports the current quantity for a product.
func (s *InventoryService) OnHand(ctx context.Context, product string) (int, bool, error) {
	return s.store.GetQuantity(ctx, product)
}

// Inventory lists every tracked product, including those out of stock.
func (s *InventoryService) Inventory(ctx context.Context) ([]domain.InventoryEntry, error) {
	return s.store.Entries(ctx)
}

// Log returns the command audit trail in append order.
func (s *InventoryService) Log(ctx context.Context) ([]domain.CommandLogEntry, error) {
	return s.store.Logs(ctx)
}

// Stats recomputes aggregates from scratch over the current inventory and
// sales sets. Nothing is cached, so it can never drift from stored state.
func (s *InventoryService) Stats(ctx context.Context) (*domain.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.stats")
	defer span.End()

	entries, err := s.store.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	sales, err := s.store.Sales(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	stats := &domain.Stats{
		TotalProducts:   len(entries),
		InventoryValue:  decimal.Zero,
		PotentialProfit: decimal.Zero,
		LowStockItems:   []domain.InventoryEntry{},
	}
	for _, e := range entries {
		stats.TotalUnits += e.Quantity
		if e.SellingPrice.IsPositive() {
			qty := decimal.NewFromInt(int64(e.Quantity))
			stats.InventoryValue = stats.InventoryValue.Add(e.SellingPrice.Mul(qty))
			stats.PotentialProfit = stats.PotentialProfit.Add(e.SellingPrice.Sub(e.CostPrice).Mul(qty))
		}
		if e.Quantity < s.lowStockThreshold {
			stats.LowStockItems = append(stats.LowStockItems, e)
		}
	}
	stats.LowStockCount = len(stats.LowStockItems)

	for _, sale := range sales {
		stats.TotalSalesCount++
		stats.TotalSalesQuantity += sale.Quantity
	}
	return stats, nil
}

// RunLowStockMonitor periodically scans the inventory and warns about items
// below the threshold. Blocks until ctx is cancelled.
func (s *InventoryService) RunLowStockMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := s.store.Entries(ctx)
			if err != nil {
				s.logger.Error("low stock scan failed", zap.Error(err))
				continue
			}
			for _, e := range entries {
				if e.Quantity < s.lowStockThreshold {
					s.logger.Warn("low stock",
						zap.String("product", e.Product),
						zap.Int("quantity", e.Quantity),
						zap.Int("threshold", s.lowStockThreshold))
				}
			}
		}
	}
}

func (s *InventoryService) appendLog(ctx context.Context, entry domain.CommandLogEntry) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	if err := s.store.AppendLog(ctx, entry); err != nil {
		// The audit write must never mask the business outcome.
		s.logger.Error("command log append failed",
			zap.String("transcript", entry.Transcript), zap.Error(err))
	}
}

func appliedEntry(cmd domain.Command, transcript string, delta int) domain.CommandLogEntry {
	return domain.CommandLogEntry{
		Transcript: transcript,
		Intent:     cmd.Intent,
		Product:    cmd.Product,
		Status:     domain.LogStatusApplied,
		Delta:      delta,
	}
}

func rejectedEntry(cmd domain.Command, transcript, reason string) domain.CommandLogEntry {
	return domain.CommandLogEntry{
		Transcript: transcript,
		Intent:     cmd.Intent,
		Product:    cmd.Product,
		Status:     domain.LogStatusRejected,
		Reason:     reason,
	}
}

func parseReason(err error) string {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		return pe.Reason()
	}
	return err.Error()
}

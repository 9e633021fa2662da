package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/karandev/voice-inventory/internal/adapter/csvimport"
	"github.com/karandev/voice-inventory/internal/core/domain"
	"github.com/karandev/voice-inventory/internal/core/parser"
	"github.com/karandev/voice-inventory/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
	importer  *csvimport.Importer
	logger    *zap.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, importer *csvimport.Importer, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{inventory: inventory, importer: importer, logger: logger}
}

// Register wires every route onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/inventory/command", h.Command)
	mux.HandleFunc("/api/inventory", h.Inventory)
	mux.HandleFunc("/api/inventory/stats", h.Stats)
	mux.HandleFunc("/api/inventory/examples", h.Examples)
	mux.HandleFunc("/api/inventory/log", h.CommandLog)
	mux.HandleFunc("/api/inventory/delete", h.Delete)
	mux.HandleFunc("/api/inventory/import", h.Import)
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	Action          string   `json:"action,omitempty"`
	Product         string   `json:"product,omitempty"`
	Quantity        int      `json:"quantity,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	NewQuantity     *int     `json:"new_quantity,omitempty"`
	SaleRecorded    bool     `json:"sale_recorded,omitempty"`
	OnHand          *int     `json:"on_hand,omitempty"`
	CommandExamples []string `json:"command_examples,omitempty"`
}

func (h *HTTPHandler) Command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, commandResponse{
			Success: false,
			Message: "no text provided",
		})
		return
	}

	outcome, err := h.inventory.ProcessCommand(r.Context(), req.Text)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Success:      true,
		Message:      fmt.Sprintf("%s %d %s", outcome.Action, outcome.Quantity, outcome.Product),
		Action:       string(outcome.Action),
		Product:      outcome.Product,
		Quantity:     outcome.Quantity,
		Unit:         outcome.Unit,
		NewQuantity:  &outcome.NewQuantity,
		SaleRecorded: outcome.SaleRecorded,
	})
}

func (h *HTTPHandler) writeCommandError(w http.ResponseWriter, err error) {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		writeJSON(w, http.StatusBadRequest, commandResponse{
			Success:         false,
			Message:         fmt.Sprintf("could not understand %s in: %q", parseErr.Reason(), parseErr.Transcript),
			CommandExamples: parser.Examples(),
		})
		return
	}

	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, commandResponse{
			Success: false,
			Message: stockErr.Error(),
			Product: stockErr.Product,
			OnHand:  &stockErr.OnHand,
		})
		return
	}

	h.logger.Error("command processing failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, commandResponse{
		Success: false,
		Message: "internal error",
	})
}

type productJSON struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.inventory.Inventory(r.Context())
	if err != nil {
		h.writeInternalError(w, "listing inventory", err)
		return
	}

	products := make([]productJSON, 0, len(entries))
	for _, e := range entries {
		products = append(products, productJSON{
			Name:         e.Product,
			Quantity:     e.Quantity,
			CostPrice:    e.CostPrice,
			SellingPrice: e.SellingPrice,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"products": products,
	})
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.inventory.Stats(r.Context())
	if err != nil {
		h.writeInternalError(w, "computing stats", err)
		return
	}

	lowStock := make([]productJSON, 0, len(stats.LowStockItems))
	for _, e := range stats.LowStockItems {
		lowStock = append(lowStock, productJSON{
			Name:         e.Product,
			Quantity:     e.Quantity,
			CostPrice:    e.CostPrice,
			SellingPrice: e.SellingPrice,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats": map[string]interface{}{
			"total_products":       stats.TotalProducts,
			"total_units":          stats.TotalUnits,
			"total_sales_count":    stats.TotalSalesCount,
			"total_sales_quantity": stats.TotalSalesQuantity,
			"inventory_value":      stats.InventoryValue,
			"potential_profit":     stats.PotentialProfit,
			"low_stock_count":      stats.LowStockCount,
			"low_stock_items":      lowStock,
		},
	})
}

func (h *HTTPHandler) Examples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"examples": parser.Examples(),
	})
}

type logEntryJSON struct {
	ID         string    `json:"id"`
	Transcript string    `json:"transcript"`
	Intent     string    `json:"intent,omitempty"`
	Product    string    `json:"product,omitempty"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Delta      int       `json:"delta"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *HTTPHandler) CommandLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.inventory.Log(r.Context())
	if err != nil {
		h.writeInternalError(w, "listing command log", err)
		return
	}

	out := make([]logEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, logEntryJSON{
			ID:         e.ID,
			Transcript: e.Transcript,
			Intent:     string(e.Intent),
			Product:    e.Product,
			Status:     string(e.Status),
			Reason:     e.Reason,
			Delta:      e.Delta,
			CreatedAt:  e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": out,
	})
}

type deleteRequest struct {
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
}

// Delete removes stock directly, without going through the parser. Omitting
// the quantity removes everything on hand.
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Success: false, Message: "invalid request body"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.Name))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, commandResponse{Success: false, Message: "product name is required"})
		return
	}

	qty := 0
	if req.Quantity != nil {
		qty = *req.Quantity
		if qty <= 0 {
			writeJSON(w, http.StatusBadRequest, commandResponse{Success: false, Message: "quantity must be greater than 0"})
			return
		}
	} else {
		onHand, found, err := h.inventory.OnHand(r.Context(), name)
		if err != nil {
			h.writeInternalError(w, "looking up product", err)
			return
		}
		if !found {
			writeJSON(w, http.StatusNotFound, commandResponse{
				Success: false,
				Message: fmt.Sprintf("product %q not found", name),
			})
			return
		}
		if onHand == 0 {
			writeJSON(w, http.StatusConflict, commandResponse{
				Success: false,
				Message: fmt.Sprintf("product %q is already out of stock", name),
				OnHand:  &onHand,
			})
			return
		}
		qty = onHand
	}

	cmd := domain.Command{Intent: domain.IntentDelete, Quantity: qty, Product: name}
	outcome, err := h.inventory.Apply(r.Context(), cmd, fmt.Sprintf("delete %d %s", qty, name))
	if err != nil {
		h.writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Success:     true,
		Message:     fmt.Sprintf("deleted %d units of %s", qty, name),
		Action:      string(outcome.Action),
		Product:     outcome.Product,
		Quantity:    outcome.Quantity,
		NewQuantity: &outcome.NewQuantity,
	})
}

func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Success: false, Message: "no CSV file provided"})
		return
	}
	defer file.Close()

	result, err := h.importer.Import(r.Context(), file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, commandResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"imported": result.Imported,
		"updated":  result.Updated,
		"errors":   result.Errors,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeInternalError(w http.ResponseWriter, during string, err error) {
	h.logger.Error("request failed", zap.String("during", during), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, commandResponse{
		Success: false,
		Message: "internal error",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

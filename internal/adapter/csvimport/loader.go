// Package csvimport loads bulk inventory data from CSV files with the
// columns name, quantity, cost_price, selling_price.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/port"
)

var requiredColumns = []string{"name", "quantity", "cost_price", "selling_price"}

// Result summarizes an import run. Row errors do not abort the run; they are
// collected so the caller can report partial success.
type Result struct {
	Imported int      // products not previously tracked
	Updated  int      // products that already existed
	Errors   []string // per-row validation failures
}

type Importer struct {
	store port.Store
}

func NewImporter(store port.Store) *Importer {
	return &Importer{store: store}
}

// Import reads CSV rows and upserts stock and pricing. Quantities add to
// existing stock, matching what a spoken ADD does.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	result := &Result{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if err := im.importRow(ctx, cols, record, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", line, err))
		}
	}
	return result, nil
}

func (im *Importer) importRow(ctx context.Context, cols map[string]int, record []string, result *Result) error {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := strings.ToLower(field("name"))
	if name == "" {
		return fmt.Errorf("empty product name")
	}

	qty, err := strconv.Atoi(field("quantity"))
	if err != nil || qty <= 0 {
		return fmt.Errorf("invalid quantity %q", field("quantity"))
	}

	cost, err := decimal.NewFromString(field("cost_price"))
	if err != nil {
		return fmt.Errorf("invalid cost price %q", field("cost_price"))
	}
	selling, err := decimal.NewFromString(field("selling_price"))
	if err != nil {
		return fmt.Errorf("invalid selling price %q", field("selling_price"))
	}
	if cost.IsNegative() || selling.IsNegative() {
		return fmt.Errorf("prices cannot be negative")
	}
	if selling.LessThanOrEqual(cost) {
		return fmt.Errorf("selling price must exceed cost price")
	}

	_, existed, err := im.store.GetQuantity(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup %q: %w", name, err)
	}

	if _, err := im.store.AddStock(ctx, name, qty); err != nil {
		return fmt.Errorf("add stock for %q: %w", name, err)
	}
	if err := im.store.SetPricing(ctx, name, cost, selling); err != nil {
		return fmt.Errorf("set pricing for %q: %w", name, err)
	}

	if existed {
		result.Updated++
	} else {
		result.Imported++
	}
	return nil
}

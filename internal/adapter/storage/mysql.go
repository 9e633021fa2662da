package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS inventory (
	product       VARCHAR(191) NOT NULL PRIMARY KEY,
	quantity      INT NOT NULL DEFAULT 0,
	cost_price    DECIMAL(12,2) NOT NULL DEFAULT 0,
	selling_price DECIMAL(12,2) NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS sales (
	id         CHAR(36) NOT NULL PRIMARY KEY,
	product    VARCHAR(191) NOT NULL,
	quantity   INT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS command_log (
	id         CHAR(36) NOT NULL PRIMARY KEY,
	transcript TEXT NOT NULL,
	intent     VARCHAR(16) NOT NULL DEFAULT '',
	product    VARCHAR(191) NOT NULL DEFAULT '',
	status     VARCHAR(16) NOT NULL,
	reason     VARCHAR(191) NOT NULL DEFAULT '',
	delta      INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (m *MySQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(mysqlSchema) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLStore) GetQuantity(ctx context.Context, product string) (int, bool, error) {
	var qty int
	err := m.db.QueryRowContext(ctx,
		`SELECT quantity FROM inventory WHERE product = ?`, product).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query quantity: %w", err)
	}
	return qty, true, nil
}

func (m *MySQLStore) AddStock(ctx context.Context, product string, qty int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (product, quantity) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		product, qty)
	if err != nil {
		return 0, fmt.Errorf("upsert inventory: %w", err)
	}

	var newQty int
	if err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM inventory WHERE product = ?`, product).Scan(&newQty); err != nil {
		return 0, fmt.Errorf("read back quantity: %w", err)
	}

	return newQty, tx.Commit()
}

func (m *MySQLStore) RemoveStock(ctx context.Context, product string, qty int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The sufficiency check and the decrement are one statement; zero rows
	// affected means insufficient stock, never a partial apply.
	result, err := tx.ExecContext(ctx, `
		UPDATE inventory
		SET quantity = quantity - ?
		WHERE product = ? AND quantity >= ?`,
		qty, product, qty)
	if err != nil {
		return 0, fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var current int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM inventory WHERE product = ?`, product).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("query quantity: %w", err)
		}
		return current, domain.ErrInsufficientStock
	}

	var newQty int
	if err := tx.QueryRowContext(ctx,
		`SELECT quantity FROM inventory WHERE product = ?`, product).Scan(&newQty); err != nil {
		return 0, fmt.Errorf("read back quantity: %w", err)
	}

	return newQty, tx.Commit()
}

func (m *MySQLStore) SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (product, quantity, cost_price, selling_price)
		VALUES (?, 0, ?, ?)
		ON DUPLICATE KEY UPDATE cost_price = VALUES(cost_price), selling_price = VALUES(selling_price)`,
		product, cost.String(), selling.String())
	if err != nil {
		return fmt.Errorf("set pricing: %w", err)
	}
	return nil
}

func (m *MySQLStore) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sales (id, product, quantity, created_at) VALUES (?, ?, ?, ?)`,
		sale.ID, sale.Product, sale.Quantity, sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MySQLStore) AppendLog(ctx context.Context, entry domain.CommandLogEntry) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO command_log (id, transcript, intent, product, status, reason, delta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Transcript, string(entry.Intent), entry.Product,
		string(entry.Status), entry.Reason, entry.Delta, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (m *MySQLStore) Entries(ctx context.Context) ([]domain.InventoryEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT product, quantity, cost_price, selling_price, created_at, updated_at
		FROM inventory ORDER BY product`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var out []domain.InventoryEntry
	for rows.Next() {
		var e domain.InventoryEntry
		var cost, selling string
		if err := rows.Scan(&e.Product, &e.Quantity, &cost, &selling, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		if e.CostPrice, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parse cost price: %w", err)
		}
		if e.SellingPrice, err = decimal.NewFromString(selling); err != nil {
			return nil, fmt.Errorf("parse selling price: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (m *MySQLStore) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product, quantity, created_at FROM sales ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleRecord
	for rows.Next() {
		var s domain.SaleRecord
		if err := rows.Scan(&s.ID, &s.Product, &s.Quantity, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *MySQLStore) Logs(ctx context.Context) ([]domain.CommandLogEntry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, transcript, intent, product, status, reason, delta, created_at
		FROM command_log ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query command log: %w", err)
	}
	defer rows.Close()

	var out []domain.CommandLogEntry
	for rows.Next() {
		var e domain.CommandLogEntry
		var intent, status string
		if err := rows.Scan(&e.ID, &e.Transcript, &intent, &e.Product, &status, &e.Reason, &e.Delta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		e.Intent = domain.Intent(intent)
		e.Status = domain.LogStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func splitStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

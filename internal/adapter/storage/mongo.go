package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/karandev/voice-inventory/internal/core/domain"
)

type MongoStore struct {
	products *mongo.Collection
	sales    *mongo.Collection
	logs     *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		products: db.Collection("products"),
		sales:    db.Collection("sales"),
		logs:     db.Collection("command_log"),
	}
}

// EnsureIndexes creates the unique product-name index.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create product index: %w", err)
	}
	return nil
}

type productDoc struct {
	Name         string    `bson:"name"`
	Quantity     int       `bson:"quantity"`
	CostPrice    string    `bson:"cost_price,omitempty"`
	SellingPrice string    `bson:"selling_price,omitempty"`
	CreatedAt    time.Time `bson:"created_at,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at,omitempty"`
}

type saleDoc struct {
	ID        string    `bson:"sale_id"`
	Product   string    `bson:"product"`
	Quantity  int       `bson:"quantity"`
	CreatedAt time.Time `bson:"created_at"`
}

type logDoc struct {
	ID         string    `bson:"entry_id"`
	Transcript string    `bson:"transcript"`
	Intent     string    `bson:"intent,omitempty"`
	Product    string    `bson:"product,omitempty"`
	Status     string    `bson:"status"`
	Reason     string    `bson:"reason,omitempty"`
	Delta      int       `bson:"delta"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (m *MongoStore) GetQuantity(ctx context.Context, product string) (int, bool, error) {
	var doc productDoc
	err := m.products.FindOne(ctx, bson.M{"name": product}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find product: %w", err)
	}
	return doc.Quantity, true, nil
}

func (m *MongoStore) AddStock(ctx context.Context, product string, qty int) (int, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc productDoc
	err := m.products.FindOneAndUpdate(ctx,
		bson.M{"name": product},
		bson.M{
			"$inc":         bson.M{"quantity": qty},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("add stock: %w", err)
	}
	return doc.Quantity, nil
}

func (m *MongoStore) RemoveStock(ctx context.Context, product string, qty int) (int, error) {
	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	// The quantity filter makes the check-and-decrement one server-side
	// operation; no match means insufficient stock.
	var doc productDoc
	err := m.products.FindOneAndUpdate(ctx,
		bson.M{"name": product, "quantity": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"quantity": -qty},
			"$set": bson.M{"updated_at": now},
		},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, _, qerr := m.GetQuantity(ctx, product)
		if qerr != nil {
			return 0, qerr
		}
		return current, domain.ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("remove stock: %w", err)
	}
	return doc.Quantity, nil
}

func (m *MongoStore) SetPricing(ctx context.Context, product string, cost, selling decimal.Decimal) error {
	now := time.Now().UTC()
	_, err := m.products.UpdateOne(ctx,
		bson.M{"name": product},
		bson.M{
			"$set": bson.M{
				"cost_price":    cost.String(),
				"selling_price": selling.String(),
				"updated_at":    now,
			},
			"$setOnInsert": bson.M{"quantity": 0, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set pricing: %w", err)
	}
	return nil
}

func (m *MongoStore) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := m.sales.InsertOne(ctx, saleDoc{
		ID:        sale.ID,
		Product:   sale.Product,
		Quantity:  sale.Quantity,
		CreatedAt: sale.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MongoStore) AppendLog(ctx context.Context, entry domain.CommandLogEntry) error {
	_, err := m.logs.InsertOne(ctx, logDoc{
		ID:         entry.ID,
		Transcript: entry.Transcript,
		Intent:     string(entry.Intent),
		Product:    entry.Product,
		Status:     string(entry.Status),
		Reason:     entry.Reason,
		Delta:      entry.Delta,
		CreatedAt:  entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

func (m *MongoStore) Entries(ctx context.Context) ([]domain.InventoryEntry, error) {
	cursor, err := m.products.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	out := make([]domain.InventoryEntry, 0, len(docs))
	for _, d := range docs {
		e := domain.InventoryEntry{
			Product:      d.Name,
			Quantity:     d.Quantity,
			CostPrice:    decimal.Zero,
			SellingPrice: decimal.Zero,
			CreatedAt:    d.CreatedAt,
			UpdatedAt:    d.UpdatedAt,
		}
		if v, err := decimal.NewFromString(d.CostPrice); err == nil {
			e.CostPrice = v
		}
		if v, err := decimal.NewFromString(d.SellingPrice); err == nil {
			e.SellingPrice = v
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MongoStore) Sales(ctx context.Context) ([]domain.SaleRecord, error) {
	cursor, err := m.sales.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sales: %w", err)
	}

	var docs []saleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}

	out := make([]domain.SaleRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.SaleRecord{
			ID:        d.ID,
			Product:   d.Product,
			Quantity:  d.Quantity,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (m *MongoStore) Logs(ctx context.Context) ([]domain.CommandLogEntry, error) {
	cursor, err := m.logs.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find command log: %w", err)
	}

	var docs []logDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode command log: %w", err)
	}

	out := make([]domain.CommandLogEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.CommandLogEntry{
			ID:         d.ID,
			Transcript: d.Transcript,
			Intent:     domain.Intent(d.Intent),
			Product:    d.Product,
			Status:     domain.LogStatus(d.Status),
			Reason:     d.Reason,
			Delta:      d.Delta,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out, nil
}

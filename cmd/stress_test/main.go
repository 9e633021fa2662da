// Concurrency smoke test: fires concurrent SELL commands through the engine
// against the Redis store and verifies the sufficiency check never oversells.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/karandev/voice-inventory/internal/adapter/storage"
	"github.com/karandev/voice-inventory/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	product       = "stress test soap"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous test data
	rdb.Del(ctx, "inventory:product:"+product)
	rdb.SRem(ctx, "inventory:products", product)
	rdb.Del(ctx, "inventory:sales", "inventory:command_log")

	store := storage.NewRedisStore(rdb)
	if _, err := store.AddStock(ctx, product, initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	inventory := service.NewInventoryService(store, zap.NewNop(), 5)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := inventory.ProcessCommand(ctx, "sold 1 stress test soap")
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d sales succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	finalQty, _, err := store.GetQuantity(ctx, product)
	if err != nil {
		log.Fatalf("failed to read final quantity: %v", err)
	}
	fmt.Printf("Final Stock: %d\n", finalQty)

	if finalQty == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalQty)
	}

	sales, err := store.Sales(ctx)
	if err != nil {
		log.Fatalf("failed to list sales: %v", err)
	}
	if len(sales) == int(initialStock) {
		fmt.Printf("PASS: %d sale records appended\n", len(sales))
	} else {
		fmt.Printf("FAIL: Expected %d sale records, got %d\n", initialStock, len(sales))
	}
}

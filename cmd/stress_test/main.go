package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/locofly/internal/core/domain"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	initialQuantity = 100
	totalRequests   = 200
	requestTimeout  = 10 * time.Second
)

type client struct {
	base string
	http *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func main() {
	ctx := context.Background()

	base := os.Getenv("LOCOFLY_URL")
	if base == "" {
		base = defaultBaseURL
	}
	c := &client{base: base, http: &http.Client{Timeout: requestTimeout}}

	// Fresh location and item per run
	var loc domain.Location
	if status, err := c.do(ctx, http.MethodPost, "/locations",
		map[string]any{"name": "stress-" + uuid.NewString()[:8]}, nil, &loc); err != nil || status != http.StatusOK {
		log.Fatalf("failed to create location: status=%d err=%v", status, err)
	}

	var item domain.Item
	if status, err := c.do(ctx, http.MethodPost, "/items", map[string]any{
		"item_name":   "stress-item",
		"quantity":    initialQuantity,
		"location_id": loc.ID,
	}, nil, &item); err != nil || status != http.StatusOK {
		log.Fatalf("failed to create item: status=%d err=%v", status, err)
	}

	// Alternate +2 and -1 so the expected total is easy to compute
	var (
		successCount  atomic.Int32
		failCount     atomic.Int32
		conflictCount atomic.Int32
		expected      atomic.Int64
		keys          = make([]string, totalRequests)
	)
	expected.Store(initialQuantity)

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		keys[i] = uuid.NewString()
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			delta := int64(2)
			if n%2 == 1 {
				delta = -1
			}
			status, err := c.do(ctx, http.MethodPost, "/inventory/adjust", map[string]any{
				"location_id": loc.ID,
				"items":       []map[string]any{{"id": item.ID, "delta": delta}},
			}, map[string]string{"Idempotency-Key": keys[n]}, nil)
			if err == nil && status == http.StatusOK {
				successCount.Add(1)
				expected.Add(delta)
			} else {
				failCount.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// Replay the same keys; with Redis configured every replay is a 409
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			status, err := c.do(ctx, http.MethodPost, "/inventory/adjust", map[string]any{
				"location_id": loc.ID,
				"items":       []map[string]any{{"id": item.ID, "delta": 1}},
			}, map[string]string{"Idempotency-Key": keys[n]}, nil)
			if err != nil {
				return
			}
			if status == http.StatusConflict {
				conflictCount.Add(1)
			} else if status == http.StatusOK {
				expected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	var items []domain.Item
	if status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/inventory?location_id=%d", loc.ID), nil, nil, &items); err != nil || status != http.StatusOK {
		log.Fatalf("failed to read inventory: status=%d err=%v", status, err)
	}
	if len(items) != 1 {
		log.Fatalf("expected 1 item in location %d, got %d", loc.ID, len(items))
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Quantity: %d\n", initialQuantity)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Replay Conflicts: %d\n", conflictCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	final := items[0].Quantity
	if final == expected.Load() {
		fmt.Printf("PASS: Final quantity %d matches applied adjustments\n", final)
	} else {
		fmt.Printf("FAIL: Expected quantity %d, got %d\n", expected.Load(), final)
		os.Exit(1)
	}
}

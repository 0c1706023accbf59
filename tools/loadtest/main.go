// Command loadtest hammers a chatrooms server with concurrent posters:
// each simulated pair of users creates a room and posts messages into
// it through the REST API, reporting latency percentiles at the end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	base := flag.String("url", "http://localhost:8000", "Server base URL")
	prefix := flag.String("prefix", "chat/v1", "Route prefix")
	secret := flag.String("secret", "", "API secret (required, used as auth token)")
	rooms := flag.Int("rooms", 10, "Number of concurrent rooms")
	messages := flag.Int("messages", 10, "Messages per room")
	flag.Parse()

	if *secret == "" {
		log.Fatal("-secret is required")
	}

	log.Printf("Load test: %d rooms, %d messages each", *rooms, *messages)

	var (
		created   int64
		sent      int64
		errors    int64
		latencies []time.Duration
		latencyMu sync.Mutex
		wg        sync.WaitGroup
	)

	client := &http.Client{Timeout: 10 * time.Second}
	authBase := fmt.Sprintf("%s/%s/auth/%s", *base, *prefix, url.PathEscape(*secret))
	start := time.Now()

	for i := 0; i < *rooms; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			users := []string{fmt.Sprintf("user_%d_a", id), fmt.Sprintf("user_%d_b", id)}
			roomBody, _ := json.Marshal(map[string]any{"type": "loadtest/v1", "users": users})
			resp, err := client.Post(authBase+"/rooms", "application/json", bytes.NewReader(roomBody))
			if err != nil {
				atomic.AddInt64(&errors, 1)
				log.Printf("room %d: create error: %v", id, err)
				return
			}
			var roomInfo struct {
				ID string `json:"id"`
			}
			json.NewDecoder(resp.Body).Decode(&roomInfo)
			resp.Body.Close()
			if roomInfo.ID == "" {
				atomic.AddInt64(&errors, 1)
				log.Printf("room %d: create returned no id", id)
				return
			}
			atomic.AddInt64(&created, 1)

			msgURL := fmt.Sprintf("%s/rooms/%s/messages", authBase, url.PathEscape(roomInfo.ID))
			for j := 0; j < *messages; j++ {
				msgBody, _ := json.Marshal(map[string]any{
					"timestamp": time.Now().UnixMilli(),
					"type":      "text",
					"message":   fmt.Sprintf("msg %d in room %d", j, id),
				})
				sendTime := time.Now()
				resp, err := client.Post(msgURL, "application/json", bytes.NewReader(msgBody))
				if err != nil {
					atomic.AddInt64(&errors, 1)
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&errors, 1)
					continue
				}
				atomic.AddInt64(&sent, 1)
				lat := time.Since(sendTime)
				latencyMu.Lock()
				latencies = append(latencies, lat)
				latencyMu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Calculate percentiles.
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:    %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Rooms:       %d created\n", created)
	fmt.Printf("Sent:        %d messages\n", sent)
	fmt.Printf("Errors:      %d\n", errors)
	if len(latencies) > 0 {
		fmt.Printf("Latency p50: %s\n", percentile(latencies, 50))
		fmt.Printf("Latency p95: %s\n", percentile(latencies, 95))
		fmt.Printf("Latency p99: %s\n", percentile(latencies, 99))
	}
	fmt.Printf("Throughput:  %.0f msgs/sec\n", float64(sent)/elapsed.Seconds())
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

// 重复提交压测：同一个会话并发打下单接口，验证提交守卫在
// 竞态触发下只放行一笔（其余应得到 409）。
func main() {
	baseURL := flag.String("base", "http://localhost:8080", "gateway base url")
	token := flag.String("token", "", "session token (login first, required)")
	packageID := flag.Int("package", 1, "price package id")
	gameID := flag.String("game-id", "10001", "game id for the order")
	serverID := flag.String("server-id", "2001", "server id for the order")
	concurrency := flag.Int("c", 20, "concurrent duplicate submissions")
	flag.Parse()

	if *token == "" {
		panic("missing -token: login through /api/auth/login first")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	fmt.Printf("start duplicate-submit test: package=%d concurrency=%d\n", *packageID, *concurrency)
	results := runSubmit(client, *baseURL, *token, *packageID, *gameID, *serverID, *concurrency)
	printSummary("duplicate-submit", results)

	accepted := 0
	rejected := 0
	for _, r := range results {
		switch r.Status {
		case http.StatusOK:
			accepted++
		case http.StatusConflict, http.StatusTooManyRequests:
			rejected++
		}
	}
	fmt.Printf("accepted=%d rejected=%d\n", accepted, rejected)
	if accepted > 1 {
		fmt.Println("FAIL: more than one submission got through the guard")
		return
	}
	fmt.Println("OK: at most one submission accepted")
}

// runSubmit 并发发起 n 次完全相同的下单请求。
func runSubmit(client *http.Client, baseURL, token string, packageID int, gameID, serverID string, n int) []Result {
	body := map[string]any{
		"package_id":     packageID,
		"game_id":        gameID,
		"server_id":      serverID,
		"payment_method": "wave",
		"payment_number": "099813454",
		"payment_name":   "Load Test",
	}
	raw, _ := json.Marshal(body)

	results := make([]Result, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			req, err := http.NewRequest(http.MethodPost, baseURL+"/api/orders", bytes.NewReader(raw))
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := client.Do(req)
			if err != nil {
				results[idx] = Result{Err: err}
				return
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			results[idx] = Result{Status: resp.StatusCode, Body: string(b)}
		}(i)
	}
	// 同时放闸，尽量制造真正的并发竞争
	close(start)
	wg.Wait()
	return results
}

// printSummary 聚合打印压测结果。
func printSummary(name string, results []Result) {
	counts := map[int]int{}
	errs := 0
	for _, r := range results {
		if r.Err != nil {
			errs++
			continue
		}
		counts[r.Status]++
	}
	fmt.Printf("[%s] total=%d errors=%d\n", name, len(results), errs)
	for status, n := range counts {
		fmt.Printf("  status %d: %d\n", status, n)
	}
}

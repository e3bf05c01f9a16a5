package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/envsense/sensor-data-ingestion/internal/common"
)

const outcomeSuccess = "success"

var defaultWorkloads = []int{1, 2, 5, 10, 20, 30, 40, 50, 75, 100, 150, 200, 250, 300, 350, 400, 500, 650, 700}

// LoadConfig holds load test configuration.
type LoadConfig struct {
	TargetURL       string
	Workloads       []int
	ReadingsPerCall int
	WarmupCalls     int
	RequestTimeout  time.Duration
}

// LevelResults collects outcomes of one concurrency level.
type LevelResults struct {
	Successes    int
	Failures     map[string]int
	TotalLatency time.Duration
	MinLatency   time.Duration
	MaxLatency   time.Duration
	mu           sync.Mutex
}

// Add records a single request outcome thread-safely.
func (r *LevelResults) Add(outcome string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if outcome == outcomeSuccess {
		r.Successes++
	} else {
		r.Failures[outcome]++
	}

	r.TotalLatency += latency
	if r.MinLatency == 0 || latency < r.MinLatency {
		r.MinLatency = latency
	}
	if latency > r.MaxLatency {
		r.MaxLatency = latency
	}
}

// FailedCount returns the total number of failed requests.
func (r *LevelResults) FailedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := 0
	for _, count := range r.Failures {
		failed += count
	}
	return failed
}

// LevelSummary is one row of the final summary table.
type LevelSummary struct {
	Concurrency int
	Duration    time.Duration
	Successes   int
	Failed      int
	Throughput  float64
}

func main() {
	config := LoadConfig{
		TargetURL:       getEnv("TARGET_URL", "http://localhost:8080"),
		Workloads:       getEnvInts("WORKLOADS", defaultWorkloads),
		ReadingsPerCall: getEnvInt("READINGS_PER_CALL", 20),
		WarmupCalls:     getEnvInt("WARMUP_CALLS", 15),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 120*time.Second),
	}

	fmt.Println("=== Ingestion Load Test ===")
	fmt.Printf("Target URL: %s\n", config.TargetURL)
	fmt.Printf("Workloads: %v\n", config.Workloads)
	fmt.Printf("Readings per call: %d\n", config.ReadingsPerCall)
	fmt.Printf("Warmup calls: %d\n", config.WarmupCalls)
	fmt.Printf("Request timeout: %v\n", config.RequestTimeout)

	client := &http.Client{
		Timeout: config.RequestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        1000,
			MaxIdleConnsPerHost: 1000,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if !waitForService(client, config.TargetURL) {
		fmt.Println("Service did not become ready, aborting")
		os.Exit(1)
	}

	generateURL := fmt.Sprintf("%s/generate?count=%d", config.TargetURL, config.ReadingsPerCall)

	fmt.Printf("\nWarming up with %d calls...\n", config.WarmupCalls)
	for i := 0; i < config.WarmupCalls; i++ {
		sendGenerate(client, generateURL)
	}

	summaries := make([]LevelSummary, 0, len(config.Workloads))
	for _, concurrency := range config.Workloads {
		fmt.Printf("\n=== Concurrency %d ===\n", concurrency)
		results, duration := runLevel(client, generateURL, concurrency)

		failed := results.FailedCount()
		total := results.Successes + failed
		throughput := float64(results.Successes*config.ReadingsPerCall) / duration.Seconds()

		fmt.Printf("Duration: %.2fs\n", duration.Seconds())
		fmt.Printf("Succeeded: %d/%d\n", results.Successes, total)
		if failed > 0 {
			fmt.Printf("Failed: %d\n", failed)
			for _, reason := range sortedKeys(results.Failures) {
				fmt.Printf("  %s: %d\n", reason, results.Failures[reason])
			}
		}
		if total > 0 {
			avg := results.TotalLatency / time.Duration(total)
			fmt.Printf("Latency min/avg/max: %v / %v / %v\n",
				results.MinLatency.Round(time.Millisecond),
				avg.Round(time.Millisecond),
				results.MaxLatency.Round(time.Millisecond))
		}
		fmt.Printf("Throughput: %.2f readings/sec\n", throughput)

		summaries = append(summaries, LevelSummary{
			Concurrency: concurrency,
			Duration:    duration,
			Successes:   results.Successes,
			Failed:      failed,
			Throughput:  throughput,
		})

		time.Sleep(1 * time.Second)
	}

	fmt.Println("\n=== Final Results ===")
	fmt.Printf("%-12s %-12s %-10s %-10s %s\n", "concurrency", "duration", "ok", "failed", "readings/sec")
	for _, s := range summaries {
		fmt.Printf("%-12d %-12.2f %-10d %-10d %.2f\n",
			s.Concurrency, s.Duration.Seconds(), s.Successes, s.Failed, s.Throughput)
	}
}

// waitForService polls the health endpoint until the service responds.
func waitForService(client *http.Client, targetURL string) bool {
	fmt.Println("\nWaiting for service to be ready...")
	for i := 0; i < 30; i++ {
		resp, err := client.Get(targetURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				fmt.Println("Service is ready")
				return true
			}
		}
		time.Sleep(2 * time.Second)
	}
	return false
}

// runLevel fires concurrency simultaneous generate calls, one per goroutine,
// and waits for all of them to finish.
func runLevel(client *http.Client, url string, concurrency int) (*LevelResults, time.Duration) {
	results := &LevelResults{Failures: make(map[string]int)}

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, latency := sendGenerate(client, url)
			results.Add(outcome, latency)
		}()
	}
	wg.Wait()

	return results, time.Since(start)
}

// sendGenerate performs a single generate request and classifies the outcome.
func sendGenerate(client *http.Client, url string) (string, time.Duration) {
	start := time.Now()
	resp, err := client.Get(url)
	latency := time.Since(start)

	if err != nil {
		if common.HasAny(err.Error(), "Client.Timeout", "context deadline exceeded") {
			return "timeout", latency
		}
		return "error", latency
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("http_%d", resp.StatusCode), latency
	}
	return outcomeSuccess, latency
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInts(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed := make([]int, 0)
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return defaultValue
		}
		parsed = append(parsed, n)
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

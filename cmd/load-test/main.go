// Package main generates synthetic passenger and delivery requests against
// the dispatch engine's database at a target concurrency, the way an
// upstream booking/logistics system would feed it in production. There is
// no HTTP API to call (the engine's ops surface only serves /healthz,
// /readyz and /metrics), so load here means insert pressure on
// passenger_requests/delivery_requests, not request-response latency.
// Adapted from the teacher's HTTP load tester: same concurrent-user
// ramp-up and result/metrics shape, a database insert in place of the
// HTTP call.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/logging"

	"github.com/google/uuid"
)

// TestResult holds the outcome of one load-generation run.
type TestResult struct {
	Mode              string        `json:"mode"`
	ConcurrentUsers   int           `json:"concurrent_users"`
	Duration          time.Duration `json:"duration"`
	TotalRequests     int64         `json:"total_requests"`
	SuccessfulReqs    int64         `json:"successful_requests"`
	FailedReqs        int64         `json:"failed_requests"`
	AvgInsertTime     time.Duration `json:"avg_insert_time"`
	MinInsertTime     time.Duration `json:"min_insert_time"`
	MaxInsertTime     time.Duration `json:"max_insert_time"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	ErrorRate         float64       `json:"error_rate"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
}

// LoadTester drives concurrent "users", each inserting pending requests
// into the database until the test's duration elapses.
type LoadTester struct {
	db              *database.PostgresDB
	mode            string
	concurrentUsers int
	duration        time.Duration
	rampUp          time.Duration

	results      *TestResult
	mu           sync.Mutex
	insertTimes  []time.Duration
}

// NewLoadTester builds a LoadTester against an already-connected database.
func NewLoadTester(db *database.PostgresDB, mode string, users int, duration, rampUp time.Duration) *LoadTester {
	return &LoadTester{
		db:              db,
		mode:            mode,
		concurrentUsers: users,
		duration:        duration,
		rampUp:          rampUp,
		results: &TestResult{
			Mode:            mode,
			ConcurrentUsers: users,
			Duration:        duration,
			MinInsertTime:   time.Hour,
		},
	}
}

// Run ramps up concurrentUsers goroutines, each inserting requests until
// ctx's duration elapses, then returns the aggregated result.
func (lt *LoadTester) Run(ctx context.Context) (*TestResult, error) {
	log.Printf("starting load generation: mode=%s, users=%d, duration=%v", lt.mode, lt.concurrentUsers, lt.duration)

	lt.results.StartTime = time.Now()

	testCtx, cancel := context.WithTimeout(ctx, lt.duration)
	defer cancel()

	var totalRequests, successfulReqs, failedReqs int64
	var wg sync.WaitGroup

	rampUpInterval := lt.rampUp / time.Duration(lt.concurrentUsers)
	for i := 0; i < lt.concurrentUsers; i++ {
		select {
		case <-testCtx.Done():
		default:
			wg.Add(1)
			go lt.runUser(testCtx, &wg, &totalRequests, &successfulReqs, &failedReqs)
			time.Sleep(rampUpInterval)
		}
	}

	wg.Wait()
	lt.results.EndTime = time.Now()

	lt.results.TotalRequests = atomic.LoadInt64(&totalRequests)
	lt.results.SuccessfulReqs = atomic.LoadInt64(&successfulReqs)
	lt.results.FailedReqs = atomic.LoadInt64(&failedReqs)
	lt.calculateFinalMetrics()

	return lt.results, nil
}

func (lt *LoadTester) runUser(ctx context.Context, wg *sync.WaitGroup, totalReqs, successReqs, failReqs *int64) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
			lt.insertOne(ctx, totalReqs, successReqs, failReqs)
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// insertOne inserts one synthetic passenger or delivery request depending
// on mode, clustered loosely around central Jakarta so the dispatcher's
// DBSCAN pass actually finds density in the generated data.
func (lt *LoadTester) insertOne(ctx context.Context, totalReqs, successReqs, failReqs *int64) {
	atomic.AddInt64(totalReqs, 1)

	jitter := func(base float64) float64 { return base + (rand.Float64()-0.5)*0.05 }
	from := fmt.Sprintf("%.6f,%.6f", jitter(-6.2088), jitter(106.8456))
	to := fmt.Sprintf("%.6f,%.6f", jitter(-6.1944), jitter(106.8229))

	start := time.Now()
	var err error
	switch lt.mode {
	case "delivery":
		_, err = lt.db.ExecContext(ctx,
			`INSERT INTO delivery_requests (id, sender_ref, from_location, to_location, item_description, weight, receiver_name, receiver_phone, status, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,'PENDING',$9)`,
			uuid.New().String(), fmt.Sprintf("loadtest-sender-%d", rand.Intn(1000)), from, to,
			"load-test parcel", rand.Float64()*10, "load-test receiver", "000-000-0000", time.Now())
	default:
		_, err = lt.db.ExecContext(ctx,
			`INSERT INTO passenger_requests (id, requester_ref, from_location, to_location, departure_time, passenger_count, status, created_at)
			 VALUES ($1,$2,$3,$4,$5,$6,'PENDING',$7)`,
			uuid.New().String(), fmt.Sprintf("loadtest-rider-%d", rand.Intn(1000)), from, to,
			time.Now().Add(15*time.Minute), 1+rand.Intn(3), time.Now())
	}
	insertTime := time.Since(start)

	lt.mu.Lock()
	lt.insertTimes = append(lt.insertTimes, insertTime)
	if insertTime < lt.results.MinInsertTime {
		lt.results.MinInsertTime = insertTime
	}
	if insertTime > lt.results.MaxInsertTime {
		lt.results.MaxInsertTime = insertTime
	}
	lt.mu.Unlock()

	if err != nil {
		atomic.AddInt64(failReqs, 1)
		return
	}
	atomic.AddInt64(successReqs, 1)
}

func (lt *LoadTester) calculateFinalMetrics() {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.insertTimes) == 0 {
		return
	}

	var total time.Duration
	for _, d := range lt.insertTimes {
		total += d
	}
	lt.results.AvgInsertTime = total / time.Duration(len(lt.insertTimes))

	actualDuration := lt.results.EndTime.Sub(lt.results.StartTime)
	lt.results.RequestsPerSecond = float64(lt.results.TotalRequests) / actualDuration.Seconds()

	if lt.results.TotalRequests > 0 {
		lt.results.ErrorRate = float64(lt.results.FailedReqs) / float64(lt.results.TotalRequests) * 100
	}
}

// PrintResults prints a human-readable summary.
func (lt *LoadTester) PrintResults() {
	fmt.Printf("\n=== Load Generation Results ===\n")
	fmt.Printf("Mode: %s\n", lt.results.Mode)
	fmt.Printf("Concurrent Users: %d\n", lt.results.ConcurrentUsers)
	fmt.Printf("Test Duration: %v\n", lt.results.Duration)
	fmt.Printf("Total Requests: %d\n", lt.results.TotalRequests)
	fmt.Printf("Successful Requests: %d\n", lt.results.SuccessfulReqs)
	fmt.Printf("Failed Requests: %d\n", lt.results.FailedReqs)
	fmt.Printf("Requests/Second: %.2f\n", lt.results.RequestsPerSecond)
	fmt.Printf("Average Insert Time: %v\n", lt.results.AvgInsertTime)
	fmt.Printf("Min Insert Time: %v\n", lt.results.MinInsertTime)
	fmt.Printf("Max Insert Time: %v\n", lt.results.MaxInsertTime)
	fmt.Printf("Error Rate: %.2f%%\n", lt.results.ErrorRate)
	fmt.Printf("================================\n\n")
}

// SaveResults writes the result struct as JSON to filename.
func (lt *LoadTester) SaveResults(filename string) error {
	data, err := json.MarshalIndent(lt.results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

func main() {
	var (
		mode     = flag.String("mode", "passenger", "Request mode: passenger or delivery")
		users    = flag.Int("users", 10, "Number of concurrent generators")
		duration = flag.Duration("duration", 1*time.Minute, "Test duration")
		rampUp   = flag.Duration("rampup", 10*time.Second, "Ramp-up duration")
		output   = flag.String("output", "", "Output file for results (JSON)")
	)
	flag.Parse()

	if *mode != "passenger" && *mode != "delivery" {
		log.Fatal("mode must be either 'passenger' or 'delivery'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	db, err := database.NewPostgresConnection(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tester := NewLoadTester(db, *mode, *users, *duration, *rampUp)

	ctx := context.Background()
	if _, err := tester.Run(ctx); err != nil {
		log.Fatalf("load generation failed: %v", err)
	}

	tester.PrintResults()

	if *output != "" {
		if err := tester.SaveResults(*output); err != nil {
			log.Printf("failed to save results: %v", err)
		} else {
			log.Printf("results saved to: %s", *output)
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("load-test-results/load_test_%s_%s.json", *mode, timestamp)
	_ = os.MkdirAll("load-test-results", 0755)
	if err := tester.SaveResults(filename); err != nil {
		log.Printf("failed to auto-save results: %v", err)
	} else {
		log.Printf("results auto-saved to: %s", filename)
	}

	log.Println("load generation completed")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/jwt"
	"github.com/MrEthical07/goVerify/kvstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type seeded struct {
	identifier string
	code       string
}

func main() {
	var (
		identifiers = flag.Int("identifiers", 20000, "number of codes to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gvload", "key prefix")
	)
	flag.Parse()

	if *identifiers <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identifiers, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := kvstore.NewRedis(client, *prefix)

	codesCfg := codes.DefaultConfig()
	codesCfg.SynchronousDelivery = true
	manager, err := codes.NewManager(codesCfg, codes.Deps{Store: store, Sender: codes.DiscardSender{}})
	if err != nil {
		fmt.Fprintf(os.Stderr, "code manager: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	issuer, err := jwt.NewIssuer(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("loadtest-signing-key-0123456789ab"),
		Issuer:        "goverify-loadtest",
		Audience:      "user",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "issuer: %v\n", err)
		os.Exit(1)
	}
	blacklist := jwt.NewBlacklist(store, time.Now)

	seeds := make([]seeded, *identifiers)
	fmt.Printf("seeding %d codes...\n", *identifiers)
	startSeed := time.Now()
	for i := range seeds {
		ident := fmt.Sprintf("load-%d@example.com", i)
		res, err := manager.Send(ctx, codes.PurposeRegister, ident)
		if err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			os.Exit(1)
		}
		seeds[i] = seeded{identifier: ident, code: res.Code}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resendStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		s := seeds[r.Intn(len(seeds))]
		res, err := manager.Send(ctx, codes.PurposeRegister, s.identifier)
		if err == nil && !res.Reused {
			return fmt.Errorf("expected reuse for %s", s.identifier)
		}
		return err
	})

	checkStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		s := seeds[r.Intn(len(seeds))]
		ok, err := manager.Check(ctx, codes.PurposeRegister, s.identifier, s.code)
		if err == nil && !ok {
			return fmt.Errorf("code rejected for %s", s.identifier)
		}
		return err
	})

	tokens := make([]string, 1024)
	for i := range tokens {
		tok, err := issuer.Issue("Authorized login", map[string]any{"user_id": fmt.Sprintf("u-%d", i)}, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = tok.Raw
	}

	issueStats := runPhase(*ops, *concurrency, 4099, func(_ *rand.Rand, i int) error {
		_, err := issuer.Issue("Authorized login", map[string]any{"user_id": i}, 0)
		return err
	})

	validateStats := runPhase(*ops, *concurrency, 3571, func(r *rand.Rand, _ int) error {
		claims, err := issuer.Parse(tokens[r.Intn(len(tokens))])
		if err != nil {
			return err
		}
		_, err = blacklist.IsRevoked(ctx, claims.TokenID())
		return err
	})

	revokeStats := runPhase(*ops, *concurrency, 2729, func(_ *rand.Rand, i int) error {
		tok, err := issuer.Issue("Authorized login", map[string]any{"user_id": i}, 0)
		if err != nil {
			return err
		}
		_, err = blacklist.Revoke(ctx, &tok.Claims)
		return err
	})

	fmt.Println("---- results ----")
	printStats("resend", resendStats)
	printStats("check", checkStats)
	printStats("issue", issueStats)
	printStats("validate", validateStats)
	printStats("revoke", revokeStats)
}

// runPhase spreads ops calls of fn over concurrency workers and records
// each call's latency.
func runPhase(ops, concurrency int, seed int64, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-8s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

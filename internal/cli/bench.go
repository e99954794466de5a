package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	mrand "math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	goToken "github.com/MrEthical07/goToken"
	"github.com/MrEthical07/goToken/hooks/redisheaders"
)

type benchOptions struct {
	identities   int
	concurrency  int
	ops          int
	redisHeaders bool
	redisAddr    string
	prefix       string
}

func newBenchCmd(env *environment) *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure issue and decode throughput",
		Long: `Run an issue phase and a decode phase against the configured engine and
report throughput and latency percentiles.

With --redis-headers every issuance loads per-identity headers from Redis.
When --redis-addr and REDIS_ADDR are empty an in-process miniredis is used.
An HMAC engine without a configured secret gets a random one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, env, o)
		},
	}

	cmd.Flags().IntVar(&o.identities, "identities", 1000, "number of distinct identities")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 64, "number of concurrent workers")
	cmd.Flags().IntVar(&o.ops, "ops", 100000, "operations per phase (issue + decode)")
	cmd.Flags().BoolVar(&o.redisHeaders, "redis-headers", false, "load headers from Redis on every issuance")
	cmd.Flags().StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&o.prefix, "redis-prefix", "gth", "redis header key prefix")

	return cmd
}

func runBench(cmd *cobra.Command, env *environment, o *benchOptions) error {
	if o.identities <= 0 || o.concurrency <= 0 || o.ops <= 0 {
		return fmt.Errorf("identities, concurrency, and ops must be > 0")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, err := env.engineConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.JWT.IsHMAC() && len(cfg.JWT.SecretKey) == 0 {
		cfg.JWT.SecretKey = make([]byte, 32)
		if _, err := rand.Read(cfg.JWT.SecretKey); err != nil {
			return fmt.Errorf("generate bench secret: %w", err)
		}
	}

	identities := make([]string, o.identities)
	for i := range identities {
		identities[i] = fmt.Sprintf("user-%d", i)
	}

	var configure []func(*goToken.Builder)
	if o.redisHeaders {
		client, cleanup, err := benchRedis(out, o.redisAddr)
		if err != nil {
			return err
		}
		defer cleanup()

		store := redisheaders.NewStore(client, o.prefix)
		start := time.Now()
		for i, id := range identities {
			if err := store.Set(ctx, id, map[string]any{"tenant": i % 16}, time.Hour); err != nil {
				return fmt.Errorf("seed headers: %w", err)
			}
		}
		fmt.Fprintf(out, "seeded %d header sets in %s\n", len(identities), time.Since(start).Round(time.Millisecond))
		configure = append(configure, func(b *goToken.Builder) { b.WithHeadersLoader(store.Loader()) })
	}

	engine, err := buildEngine(cmd, cfg, configure...)
	if err != nil {
		return err
	}
	defer engine.Close()

	issueStats := runPhase(o.ops, o.concurrency, 7919, func(r *mrand.Rand) error {
		_, err := engine.CreateAccessToken(ctx, identities[r.Intn(len(identities))])
		return err
	})

	tokens := make([]string, len(identities))
	for i, id := range identities {
		if tokens[i], err = engine.CreateAccessToken(ctx, id); err != nil {
			return fmt.Errorf("issue: %w", err)
		}
	}

	decodeStats := runPhase(o.ops, o.concurrency, 6151, func(r *mrand.Rand) error {
		_, err := engine.Decode(ctx, tokens[r.Intn(len(tokens))])
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "issue", issueStats)
	printStats(out, "decode", decodeStats)
	return nil
}

func benchRedis(out io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase runs ops calls of fn spread over concurrency workers. Each worker
// gets its own rand source seeded from salt.
func runPhase(ops, concurrency int, salt int64, fn func(r *mrand.Rand) error) phaseStats {
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
			r := mrand.New(mrand.NewSource(time.Now().UnixNano() + int64(worker)*salt))
			for {
				if int(atomic.AddInt64(&cursor, 1))-1 >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r)
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
		return phaseStats{total: total, failures: failures}
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

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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

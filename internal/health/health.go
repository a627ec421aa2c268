package health

import (
	"context"
	"sync"
	"time"
)

type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function into a named Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// ProbeRunner runs readiness checks concurrently, each bounded by timeout.
// Results are reused for cacheTTL to keep polling cheap on the backend.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
	ready    bool
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{
		checkers: checkers,
		timeout:  timeout,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	r.mu.Lock()
	if r.cached != nil && r.cacheTTL > 0 && r.now().Sub(r.cachedAt) < r.cacheTTL {
		ready, results := r.ready, append([]CheckResult(nil), r.cached...)
		r.mu.Unlock()
		return ready, results
	}
	r.mu.Unlock()

	results := make([]CheckResult, len(r.checkers))
	var wg sync.WaitGroup
	for i, c := range r.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			res := CheckResult{Name: c.Name(), Healthy: true}
			if err := c.Check(cctx); err != nil {
				res.Healthy = false
				res.Error = err.Error()
			}
			results[i] = res
		}(i, c)
	}
	wg.Wait()

	ready := true
	for _, res := range results {
		if !res.Healthy {
			ready = false
			break
		}
	}

	r.mu.Lock()
	r.cached = results
	r.cachedAt = r.now()
	r.ready = ready
	r.mu.Unlock()
	return ready, append([]CheckResult(nil), results...)
}

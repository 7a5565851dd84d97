package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/realtime"
	"github.com/pmonetwork/pmo-network/internal/storage"
)

// Component and overall health states.
const (
	statusUp            = "up"
	statusDown          = "down"
	statusDegraded      = "degraded"
	statusNotConfigured = "not_configured"

	overallHealthy   = "healthy"
	overallDegraded  = "degraded"
	overallUnhealthy = "unhealthy"
)

const healthVersion = "1.0.0"

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string                    `json:"status"`
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the state of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// dependency is one checked backend. A nil ping means the dependency is not
// configured for this deployment.
type dependency struct {
	name     string
	critical bool
	slow     time.Duration
	timeout  time.Duration
	ping     func(ctx context.Context) error
	describe func() string
}

// HealthChecker reports on the database, Redis, blob storage and the event
// hub. Unconfigured dependencies do not count against readiness.
type HealthChecker struct {
	deps      []dependency
	startTime time.Time
}

// NewHealthChecker creates a checker. Any dependency may be nil.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client, blobs storage.Pinger, hub *realtime.Hub) *HealthChecker {
	database := dependency{name: "database", critical: true, slow: time.Second, timeout: 3 * time.Second}
	if db != nil {
		database.ping = db.PingContext
	}
	cache := dependency{name: "redis", slow: 500 * time.Millisecond, timeout: 2 * time.Second}
	if redisClient != nil {
		cache.ping = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	files := dependency{name: "storage", slow: 2 * time.Second, timeout: 3 * time.Second}
	if blobs != nil {
		files.ping = blobs.Ping
		files.describe = blobs.Describe
	}
	events := dependency{name: "realtime"}
	if hub != nil {
		events.ping = func(context.Context) error { return nil }
		events.describe = func() string { return fmt.Sprintf("%d connected clients", hub.Clients()) }
	}

	return &HealthChecker{
		deps:      []dependency{database, cache, files, events},
		startTime: time.Now(),
	}
}

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks, overall := hc.run(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  overall,
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness answers 200 while the process is up.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness answers 503 while a configured critical dependency is
// down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks, overall := hc.run(r.Context())
	ready := overall != overallUnhealthy
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	httputil.JSON(w, code, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

// run executes every check concurrently and folds the results.
func (hc *HealthChecker) run(ctx context.Context) (map[string]ComponentCheck, string) {
	checks := make(map[string]ComponentCheck, len(hc.deps))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range hc.deps {
		wg.Add(1)
		go func(p dependency) {
			defer wg.Done()
			c := p.check(ctx)
			mu.Lock()
			checks[p.name] = c
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	overall := overallHealthy
	for _, p := range hc.deps {
		switch checks[p.name].Status {
		case statusDown:
			if p.critical {
				return checks, overallUnhealthy
			}
			overall = overallDegraded
		case statusDegraded:
			overall = overallDegraded
		}
	}
	return checks, overall
}

func (p dependency) check(ctx context.Context) ComponentCheck {
	if p.ping == nil {
		return ComponentCheck{Status: statusNotConfigured}
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	err := p.ping(ctx)
	latency := time.Since(start)

	c := ComponentCheck{Status: statusUp, Latency: latency.String()}
	if p.describe != nil {
		c.Message = p.describe()
	}
	switch {
	case err != nil:
		c.Status = statusDown
		c.Message = fmt.Sprintf("ping failed: %v", err)
	case p.slow > 0 && latency > p.slow:
		c.Status = statusDegraded
		c.Message = fmt.Sprintf("slow response (%s)", latency.Round(time.Millisecond))
	}
	return c
}

// formatUptime renders d like "3d 4h 12m 5s", dropping leading zero units.
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

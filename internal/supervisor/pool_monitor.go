package supervisor

import (
	"context"
	"time"

	"github.com/justestif/movie-recommender/internal/logging"
	"github.com/justestif/movie-recommender/internal/metrics"
)

// Pool is what the monitor samples. *db.DB satisfies it.
type Pool interface {
	Ping(ctx context.Context) error
	Stats() (acquired, idle, total int32)
}

// PoolMonitor periodically pings the database and publishes pool gauges.
type PoolMonitor struct {
	pool     Pool
	interval time.Duration
	timeout  time.Duration
}

// NewPoolMonitor samples pool every interval. A non-positive interval means 30s.
func NewPoolMonitor(pool Pool, interval time.Duration) *PoolMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := 5 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &PoolMonitor{pool: pool, interval: interval, timeout: timeout}
}

// Serve implements suture.Service.
func (m *PoolMonitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *PoolMonitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.pool.Ping(pingCtx); err != nil && ctx.Err() == nil {
		metrics.DBPoolPingFailures.Inc()
		logging.Warn().Err(err).Msg("database ping failed")
	}

	acquired, idle, total := m.pool.Stats()
	metrics.RecordPoolStats(acquired, idle, total)
}

func (m *PoolMonitor) String() string {
	return "db-pool-monitor"
}

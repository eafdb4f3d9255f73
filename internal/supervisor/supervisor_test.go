package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/thejerf/suture/v4"

	"github.com/justestif/movie-recommender/internal/metrics"
)

type mockHTTPServer struct {
	listenErr     error
	started       chan struct{}
	stop          chan struct{}
	shutdownCalls atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.started <- struct{}{}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stop
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdownCalls.Add(1)
	close(m.stop)
	return nil
}

func TestHTTPService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPService)(nil)
	var _ suture.Service = (*PoolMonitor)(nil)
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPService(server, ":0", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-server.started:
	case <-time.After(time.Second):
		t.Fatal("ListenAndServe was not called")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if got := server.shutdownCalls.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPService_ListenFailure(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("address already in use")
	svc := NewHTTPService(server, ":5001", time.Second)

	err := svc.Serve(context.Background())

	if err == nil || !errors.Is(err, server.listenErr) {
		t.Fatalf("Serve() = %v, want wrapped listen error", err)
	}
}

func TestNewHTTPService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		if svc := NewHTTPService(newMockHTTPServer(), "", d); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("NewHTTPService(%v) timeout = %v, want 10s", d, svc.shutdownTimeout)
		}
	}
}

type fakePool struct {
	pingErr error
	pings   atomic.Int32
}

func (f *fakePool) Ping(context.Context) error {
	f.pings.Add(1)
	return f.pingErr
}

func (f *fakePool) Stats() (acquired, idle, total int32) {
	return 2, 3, 5
}

func TestPoolMonitor_SamplesUntilCanceled(t *testing.T) {
	pool := &fakePool{pingErr: errors.New("connection refused")}
	before := testutil.ToFloat64(metrics.DBPoolPingFailures)
	mon := NewPoolMonitor(pool, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	err := mon.Serve(ctx)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	pings := pool.pings.Load()
	if pings < 2 {
		t.Errorf("pinged %d times, want at least 2", pings)
	}
	if got := testutil.ToFloat64(metrics.DBPoolPingFailures) - before; got < 1 {
		t.Errorf("ping failures recorded = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(metrics.DBPoolConns.WithLabelValues("total")); got != 5 {
		t.Errorf("total connections gauge = %v, want 5", got)
	}
}

func TestNewPoolMonitor_Defaults(t *testing.T) {
	mon := NewPoolMonitor(&fakePool{}, 0)
	if mon.interval != 30*time.Second || mon.timeout != 5*time.Second {
		t.Errorf("defaults = %v/%v, want 30s/5s", mon.interval, mon.timeout)
	}
	mon = NewPoolMonitor(&fakePool{}, time.Second)
	if mon.timeout != time.Second {
		t.Errorf("timeout = %v, want capped at interval", mon.timeout)
	}
}

type countingService struct {
	runs atomic.Int32
}

func (c *countingService) Serve(ctx context.Context) error {
	c.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestTree_RunsServicesUntilCanceled(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second})
	data, api := &countingService{}, &countingService{}
	tree.AddDataService(data)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)

	deadline := time.Now().Add(time.Second)
	for (data.runs.Load() == 0 || api.runs.Load() == 0) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if data.runs.Load() != 1 || api.runs.Load() != 1 {
		t.Fatalf("runs = data:%d api:%d, want 1 each", data.runs.Load(), api.runs.Load())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestNewTree_Defaults(t *testing.T) {
	if tree := NewTree(TreeConfig{}); tree.root == nil || tree.data == nil || tree.api == nil {
		t.Fatal("NewTree left a supervisor nil")
	}
}

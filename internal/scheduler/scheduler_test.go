package scheduler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/scheduler"
)

type tickCounter struct {
	mu      sync.Mutex
	results []string
}

func (c *tickCounter) RecordSchedulerTick(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

func (c *tickCounter) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.results...)
}

func newScheduler(t *testing.T, url string, interval time.Duration) (*scheduler.Scheduler, *tickCounter) {
	t.Helper()

	rec := &tickCounter{}
	caller := downstream.NewClient(downstream.Config{Token: "app-token", Timeout: time.Second}, nil, infralogger.NewNop())
	s, err := scheduler.New(scheduler.Config{
		GatewayURL: url,
		Interval:   interval,
		Content:    "Scheduled task running",
		UserID:     "scheduler",
	}, caller, rec, infralogger.NewNop())
	require.NoError(t, err)
	return s, rec
}

func TestTick_SendsAuthenticatedProcessRequest(t *testing.T) {
	t.Parallel()

	type seen struct {
		auth string
		body map[string]string
		path string
	}
	captured := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		captured <- seen{auth: r.Header.Get("Authorization"), body: body, path: r.URL.Path}
		_, _ = w.Write([]byte(`{"message":"Data processed successfully","storage_status":{"metadata":{"version":3}}}`))
	}))
	t.Cleanup(srv.Close)

	s, rec := newScheduler(t, srv.URL+"/", time.Second)
	require.NoError(t, s.Tick(t.Context()))

	got := <-captured
	assert.Equal(t, "Bearer app-token", got.auth)
	assert.Equal(t, "/process", got.path)
	assert.Equal(t, map[string]string{"content": "Scheduled task running", "user_id": "scheduler"}, got.body)
	assert.Equal(t, []string{scheduler.ResultOK}, rec.snapshot())
}

func TestTick_Results(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{name: "pipeline error", status: http.StatusOK, body: `{"error":"Database read failed: boom"}`, want: scheduler.ResultFailed, wantErr: "Database read failed"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"Invalid token"}`, want: scheduler.ResultRejected, wantErr: "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			s, rec := newScheduler(t, srv.URL, time.Second)
			err := s.Tick(t.Context())
			require.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, []string{tt.want}, rec.snapshot())
		})
	}
}

func TestTick_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, rec := newScheduler(t, url, time.Second)
	require.Error(t, s.Tick(t.Context()))
	assert.Equal(t, []string{scheduler.ResultUnreachable}, rec.snapshot())
}

func TestScheduler_StartRunsTicks(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	s, _ := newScheduler(t, srv.URL, time.Second)
	require.NoError(t, s.Start(t.Context()))
	require.Error(t, s.Start(t.Context()))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()

	after := calls.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestNew_RejectsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	_, err := scheduler.New(scheduler.Config{GatewayURL: "http://x"}, nil, nil, infralogger.NewNop())
	require.Error(t, err)
}

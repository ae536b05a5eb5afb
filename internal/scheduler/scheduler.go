// Package scheduler periodically drives the gateway's POST /process, the
// way an external client would.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidwall/gjson"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
)

// DependencyGateway labels the gateway in downstream metrics.
const DependencyGateway = "client_service"

// Tick results.
const (
	ResultOK          = "ok"
	ResultFailed      = "failed"
	ResultRejected    = "rejected"
	ResultUnreachable = "unreachable"
)

// Caller performs one downstream call.
type Caller interface {
	Call(ctx context.Context, req downstream.Request) downstream.Outcome
}

// TickRecorder records tick results.
type TickRecorder interface {
	RecordSchedulerTick(result string)
}

// Config configures a Scheduler.
type Config struct {
	GatewayURL string
	Interval   time.Duration
	Content    string
	UserID     string
}

// Scheduler fires one POST /process per interval. Ticks never overlap: a
// tick that is still running when the next one is due causes that one to
// be skipped.
type Scheduler struct {
	cfg      Config
	caller   Caller
	recorder TickRecorder
	logger   infralogger.Logger

	cron *cron.Cron

	mu      sync.Mutex
	started bool
}

// New creates a Scheduler. The interval must be positive.
func New(cfg Config, caller Caller, recorder TickRecorder, log infralogger.Logger) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", cfg.Interval)
	}
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")

	cl := cronLogger{logger: log}
	return &Scheduler{
		cfg:      cfg,
		caller:   caller,
		recorder: recorder,
		logger:   log,
		cron:     cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
	}, nil
}

// Start registers the job and starts the cron loop. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}

	schedule := "@every " + s.cfg.Interval.String()
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.started = true

	s.logger.Info("Scheduler started",
		infralogger.String("target", s.cfg.GatewayURL+"/process"),
		infralogger.Duration("interval", s.cfg.Interval),
	)
	return nil
}

// Stop stops scheduling and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	<-s.cron.Stop().Done()
	s.started = false
	s.logger.Info("Scheduler stopped")
}

type processRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

// Tick performs one attempt. Failures are logged and returned, never fatal.
func (s *Scheduler) Tick(ctx context.Context) error {
	outcome := s.caller.Call(ctx, downstream.Request{
		Dependency: DependencyGateway,
		Method:     http.MethodPost,
		URL:        s.cfg.GatewayURL + "/process",
		Body:       processRequest{Content: s.cfg.Content, UserID: s.cfg.UserID},
	})

	result, err := evaluate(outcome)
	s.recorder.RecordSchedulerTick(result)

	if err != nil {
		s.logger.Warn("Scheduled call failed",
			infralogger.String("result", result),
			infralogger.Int("status_code", outcome.StatusCode),
			infralogger.Error(err),
		)
		return err
	}

	s.logger.Info("Scheduled call completed",
		infralogger.Int("status_code", outcome.StatusCode),
		infralogger.Int64("version", gjson.GetBytes(outcome.Body, "storage_status.metadata.version").Int()),
	)
	return nil
}

// evaluate maps a gateway response to a tick result. The gateway reports
// pipeline failures as 200 {"error": ...}.
func evaluate(outcome downstream.Outcome) (string, error) {
	switch outcome.Kind {
	case downstream.KindUnreachable:
		return ResultUnreachable, fmt.Errorf("gateway unreachable: %s", outcome.Detail)
	case downstream.KindRejected:
		return ResultRejected, fmt.Errorf("gateway returned %d: %s", outcome.StatusCode, outcome.Body)
	}

	if msg := gjson.GetBytes(outcome.Body, "error"); msg.Exists() {
		return ResultFailed, fmt.Errorf("pipeline failed: %s", msg.String())
	}
	return ResultOK, nil
}

// cronLogger adapts the service logger to cron's logger.
type cronLogger struct {
	logger infralogger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, infralogger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, infralogger.Error(err), infralogger.Any("details", keysAndValues))
}

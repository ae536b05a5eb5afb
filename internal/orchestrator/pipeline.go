// Package orchestrator drives the read, transform, write saga behind the
// gateway's POST /process.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
)

// SuccessMessage is returned with every completed run.
const SuccessMessage = "Data processed successfully"

// Dependency labels used in logs and metrics.
const (
	DependencyStorage   = "database_service"
	DependencyTransform = "business_service"
)

// Caller performs one downstream call.
type Caller interface {
	Call(ctx context.Context, req downstream.Request) downstream.Outcome
}

// Telemetry records run results and step spans.
type Telemetry interface {
	RecordRun(result, step string)
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Endpoints are the base URLs of the two collaborators.
type Endpoints struct {
	StorageURL   string
	TransformURL string
}

// Input is one inbound request.
type Input struct {
	Content string
	UserID  string
}

// Result is the aggregated response of a completed run. ProcessedResult and
// StorageStatus are passed through from the collaborators untouched.
type Result struct {
	Message         string          `json:"message"`
	UserID          string          `json:"user_id"`
	OriginalContent string          `json:"original_content"`
	ProcessedResult json.RawMessage `json:"processed_result"`
	StorageStatus   json.RawMessage `json:"storage_status"`
}

// Pipeline runs the saga. It holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	caller    Caller
	endpoints Endpoints
	telemetry Telemetry
	logger    infralogger.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(caller Caller, endpoints Endpoints, tel Telemetry, log infralogger.Logger) *Pipeline {
	return &Pipeline{
		caller: caller,
		endpoints: Endpoints{
			StorageURL:   strings.TrimRight(endpoints.StorageURL, "/"),
			TransformURL: strings.TrimRight(endpoints.TransformURL, "/"),
		},
		telemetry: tel,
		logger:    log,
	}
}

var emptyObject = json.RawMessage(`{}`)

// Run executes READ, TRANSFORM and WRITE in order. A failing step ends the
// run: later steps are never called and the returned error is a
// *downstream.StepError naming the step.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	r := &run{pipeline: p, input: in, state: StateInit}

	result, err := r.execute(ctx)
	if err != nil {
		var stepErr *downstream.StepError
		step := "unknown"
		if errors.As(err, &stepErr) {
			step = string(stepErr.Step)
		}
		p.telemetry.RecordRun("failed", step)
		p.logger.Warn("Pipeline run failed",
			infralogger.String("user_id", in.UserID),
			infralogger.String("step", step),
			infralogger.Error(err),
		)
		return nil, err
	}

	p.telemetry.RecordRun("done", string(downstream.StepWrite))
	p.logger.Info("Pipeline run completed", infralogger.String("user_id", in.UserID))
	return result, nil
}

// run is the state of a single execution.
type run struct {
	pipeline *Pipeline
	input    Input
	state    State
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	r.advance(StateRead)
	existing, err := r.read(ctx)
	if err != nil {
		r.advance(StateFailed)
		return nil, err
	}

	r.advance(StateTransform)
	processed, err := r.transform(ctx, existing)
	if err != nil {
		r.advance(StateFailed)
		return nil, err
	}

	r.advance(StateWrite)
	storageStatus, err := r.write(ctx, processed)
	if err != nil {
		r.advance(StateFailed)
		return nil, err
	}

	r.advance(StateDone)
	return &Result{
		Message:         SuccessMessage,
		UserID:          r.input.UserID,
		OriginalContent: r.input.Content,
		ProcessedResult: processed,
		StorageStatus:   storageStatus,
	}, nil
}

func (r *run) advance(next State) {
	if !r.state.CanTransition(next) {
		// Unreachable through execute; guards future edits.
		panic(fmt.Sprintf("orchestrator: invalid transition %s -> %s", r.state, next))
	}
	r.state = next
}

func (r *run) read(ctx context.Context) (json.RawMessage, error) {
	body, err := r.step(ctx, downstream.StepRead, downstream.Request{
		Dependency: DependencyStorage,
		Method:     http.MethodGet,
		URL:        r.pipeline.endpoints.StorageURL + "/read",
		Query:      url.Values{"user_id": {r.input.UserID}},
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if unmarshalErr := json.Unmarshal(body, &envelope); unmarshalErr != nil {
		return nil, decodeFailure(downstream.StepRead, unmarshalErr)
	}

	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return emptyObject, nil
	}
	return envelope.Data, nil
}

type transformRequest struct {
	Content      string          `json:"content"`
	ExistingData json.RawMessage `json:"existing_data"`
}

func (r *run) transform(ctx context.Context, existing json.RawMessage) (json.RawMessage, error) {
	return r.step(ctx, downstream.StepTransform, downstream.Request{
		Dependency: DependencyTransform,
		Method:     http.MethodPost,
		URL:        r.pipeline.endpoints.TransformURL + "/process",
		Body:       transformRequest{Content: r.input.Content, ExistingData: existing},
	})
}

type writeRequest struct {
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

func (r *run) write(ctx context.Context, processed json.RawMessage) (json.RawMessage, error) {
	return r.step(ctx, downstream.StepWrite, downstream.Request{
		Dependency: DependencyStorage,
		Method:     http.MethodPost,
		URL:        r.pipeline.endpoints.StorageURL + "/write",
		Body:       writeRequest{UserID: r.input.UserID, Data: processed},
	})
}

// step performs one call inside a span and returns the JSON body of an OK
// outcome. A 2xx body that is not JSON counts as unreachable.
func (r *run) step(ctx context.Context, step downstream.Step, req downstream.Request) (json.RawMessage, error) {
	ctx, span := r.pipeline.telemetry.StartSpan(ctx, "pipeline."+string(step),
		attribute.String("saga.step", string(step)),
		attribute.String("saga.dependency", req.Dependency),
		attribute.String("saga.user_id", r.input.UserID),
	)
	defer span.End()

	outcome := r.pipeline.caller.Call(ctx, req)
	span.SetAttributes(
		attribute.String("saga.outcome", outcome.Kind.String()),
		attribute.Int("http.status_code", outcome.StatusCode),
	)

	if err := outcome.Err(step); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if !json.Valid(outcome.Body) {
		err := decodeFailure(step, errors.New("response body is not valid JSON"))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return outcome.Body, nil
}

func decodeFailure(step downstream.Step, err error) error {
	return downstream.Unreachable(fmt.Sprintf("decode %s response: %v", step, err)).Err(step)
}

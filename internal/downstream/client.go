// Package downstream performs the gateway's single-attempt calls to its
// collaborator services and classifies each result as an Outcome.
package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	infraerrors "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/errors"
	infrahttp "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/saga-gateway/infrastructure/logger"
)

const (
	// DefaultTimeout bounds a call when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 10 << 20
)

// Recorder receives one observation per call.
type Recorder interface {
	RecordDownstream(dependency, outcome string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	// Token is sent as a bearer credential on every call. Empty sends none.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the pooled client, mainly for tests.
	HTTPClient *http.Client
}

// Request describes one outbound call.
type Request struct {
	// Dependency labels the peer in logs and metrics.
	Dependency string
	Method     string
	URL        string
	Query      url.Values
	// Body is JSON-encoded when non-nil.
	Body any
}

// Client calls collaborator services. It never retries.
type Client struct {
	http     *http.Client
	token    string
	timeout  time.Duration
	recorder Recorder
	logger   infralogger.Logger
}

// NewClient creates a Client. recorder may be nil.
func NewClient(cfg Config, recorder Recorder, log infralogger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = infrahttp.NewClient(&infrahttp.ClientConfig{Timeout: timeout})
	}

	return &Client{
		http:     httpClient,
		token:    cfg.Token,
		timeout:  timeout,
		recorder: recorder,
		logger:   log,
	}
}

// Call performs exactly one attempt. The call runs under its own timeout and
// is not cancelled when ctx is; a caller disconnecting mid-saga does not abort
// an in-flight step.
func (c *Client) Call(ctx context.Context, req Request) Outcome {
	start := time.Now()
	outcome := c.do(ctx, req)
	elapsed := time.Since(start)

	if c.recorder != nil {
		c.recorder.RecordDownstream(req.Dependency, outcome.Kind.String(), elapsed)
	}

	c.log(ctx, req, outcome, elapsed)
	return outcome
}

func (c *Client) do(ctx context.Context, req Request) Outcome {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(callCtx, req)
	if err != nil {
		return Unreachable(err.Error())
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Unreachable(err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Unreachable(fmt.Sprintf("read response body: %v", err))
	}

	return classify(resp.StatusCode, body)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", req.URL, err)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader = http.NoBody
	if req.Body != nil {
		encoded, marshalErr := json.Marshal(req.Body)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode request body: %w", marshalErr)
		}
		body = bytes.NewReader(encoded)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	infrahttp.SetRequestID(httpReq)

	return httpReq, nil
}

func (c *Client) log(ctx context.Context, req Request, outcome Outcome, elapsed time.Duration) {
	log := c.logger
	if log == nil {
		log = infralogger.FromContext(ctx)
	}

	fields := []infralogger.Field{
		infralogger.String("dependency", req.Dependency),
		infralogger.String("method", req.Method),
		infralogger.String("url", req.URL),
		infralogger.String("outcome", outcome.Kind.String()),
		infralogger.Duration("duration", elapsed),
	}

	switch outcome.Kind {
	case KindOK:
		log.Debug("Downstream call succeeded", append(fields, infralogger.Int("status", outcome.StatusCode))...)
	case KindRejected:
		if herr := infraerrors.FromResponse(outcome.StatusCode, outcome.Body); herr != nil {
			fields = append(fields, infralogger.String("message", herr.Message))
		}
		log.Warn("Downstream call rejected", append(fields, infralogger.Int("status", outcome.StatusCode))...)
	case KindUnreachable:
		log.Warn("Downstream call failed", append(fields, infralogger.String("detail", outcome.Detail))...)
	}
}

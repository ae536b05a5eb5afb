// Package health aggregates the health of the gateway's dependencies.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/saga-gateway/internal/downstream"
)

// Dependency status values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Caller performs one downstream call.
type Caller interface {
	Call(ctx context.Context, req downstream.Request) downstream.Outcome
}

// Dependency is a named peer whose GET /health is probed.
type Dependency struct {
	Name    string
	BaseURL string
}

// Report is the aggregated health payload.
//
// Status is always "ok": it states that the aggregator ran, not that the
// dependencies are healthy.
type Report struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// Aggregator probes every dependency concurrently. The Caller should not
// carry a credential and should bound each call with its own timeout.
type Aggregator struct {
	caller       Caller
	dependencies []Dependency
}

// NewAggregator creates an Aggregator.
func NewAggregator(caller Caller, dependencies ...Dependency) *Aggregator {
	return &Aggregator{caller: caller, dependencies: dependencies}
}

// Check probes all dependencies. A dependency whose probe could not start
// because ctx was already done is reported as "unknown".
func (a *Aggregator) Check(ctx context.Context) Report {
	statuses := make([]string, len(a.dependencies))

	var wg sync.WaitGroup
	for i, dep := range a.dependencies {
		statuses[i] = StatusUnknown
		if ctx.Err() != nil {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = a.probe(ctx, dep)
		}()
	}
	wg.Wait()

	report := Report{
		Status:       StatusOK,
		Dependencies: make(map[string]string, len(a.dependencies)),
	}
	for i, dep := range a.dependencies {
		report.Dependencies[dep.Name] = statuses[i]
	}

	return report
}

func (a *Aggregator) probe(ctx context.Context, dep Dependency) string {
	outcome := a.caller.Call(ctx, downstream.Request{
		Dependency: dep.Name,
		Method:     http.MethodGet,
		URL:        strings.TrimRight(dep.BaseURL, "/") + "/health",
	})
	if !outcome.IsOK() {
		return StatusError
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(outcome.Body, &body); err != nil || body.Status != StatusOK {
		return StatusError
	}

	return StatusOK
}

// Handler serves the report. It always answers 200.
func (a *Aggregator) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, a.Check(c.Request.Context()))
	}
}

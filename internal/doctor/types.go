// Package doctor provides progressive health diagnostics for an AWS CLI
// environment. It defines a Check contract, a stage-indexed Registry, and
// a Service that executes checks stage by stage with bounded concurrency
// and summarizes the outcome.
package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the outcome of a diagnostic check.
type Status int

const (
	// StatusPass means the check found no problem.
	StatusPass Status = iota
	// StatusWarn means the check found a non-critical issue.
	StatusWarn
	// StatusFail means the check found a critical problem.
	StatusFail
)

// String returns the wire representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its string form.
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "pass":
		*s = StatusPass
	case "warn":
		*s = StatusWarn
	case "fail":
		*s = StatusFail
	default:
		return fmt.Errorf("unknown check status %q", str)
	}
	return nil
}

// Stage is one of the four ordered diagnostic phases. The order encodes a
// dependency assumption: later stages assume earlier stages' preconditions
// hold.
type Stage int

const (
	// StageEnvironment covers the local runtime: aws binary, home
	// directory, environment variables.
	StageEnvironment Stage = iota
	// StageConfiguration covers the shared config file and profiles.
	StageConfiguration
	// StageAuthentication covers credential resolution and validity.
	StageAuthentication
	// StageConnectivity covers network reachability of AWS endpoints.
	StageConnectivity
)

// Stages returns all stages in execution order.
func Stages() []Stage {
	return []Stage{StageEnvironment, StageConfiguration, StageAuthentication, StageConnectivity}
}

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageEnvironment:
		return "environment"
	case StageConfiguration:
		return "configuration"
	case StageAuthentication:
		return "authentication"
	case StageConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Context carries the per-invocation options shared by all checks and
// repairs. It is constructed once per command invocation and never
// mutated afterwards.
type Context struct {
	// Profile is the requested profile name; empty means "default".
	Profile string
	// Detailed enables extra diagnostic detail in results.
	Detailed bool
	// Interactive marks the run as attached to a terminal.
	Interactive bool
	// AutoFix marks the run as repair-enabled.
	AutoFix bool
}

// ProfileName returns the effective profile for this invocation.
func (c *Context) ProfileName() string {
	if c.Profile == "" {
		return "default"
	}
	return c.Profile
}

// Detail is one ordered key/value pair of diagnostic payload.
type Detail struct {
	Key   string
	Value any
}

// Result holds the outcome of a single check execution. Duration is
// assigned only by the orchestrator after Execute returns — never by the
// check itself.
type Result struct {
	// Status is the outcome: pass, warn, or fail.
	Status Status
	// Message is a human-readable summary of the result.
	Message string
	// Details holds extra diagnostic payload in insertion order.
	Details []Detail
	// Remediation is a suggestion shown when the check does not pass.
	Remediation string
	// Duration is the orchestrator-measured execution time.
	Duration time.Duration
}

// Detail appends a key/value pair to the result and returns it, so check
// implementations can chain detail construction.
func (r *Result) Detail(key string, value any) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// MarshalJSON encodes the result with details as an ordered JSON object
// and duration in milliseconds.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"status":`)
	status, err := json.Marshal(r.Status)
	if err != nil {
		return nil, err
	}
	buf.Write(status)
	buf.WriteString(`,"message":`)
	msg, err := json.Marshal(r.Message)
	if err != nil {
		return nil, err
	}
	buf.Write(msg)
	if len(r.Details) > 0 {
		buf.WriteString(`,"details":{`)
		for i, d := range r.Details {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(d.Key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(d.Value)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	if r.Remediation != "" {
		buf.WriteString(`,"remediation":`)
		rem, err := json.Marshal(r.Remediation)
		if err != nil {
			return nil, err
		}
		buf.Write(rem)
	}
	fmt.Fprintf(&buf, `,"duration":%d}`, r.Duration.Milliseconds())
	return buf.Bytes(), nil
}

// Check is a single diagnostic probe belonging to exactly one stage.
// Implementations are registered with a Registry at startup and are
// immutable for the process lifetime.
type Check interface {
	// ID returns a globally unique, stable identifier (e.g. "aws-cli").
	ID() string
	// Name returns a short human-readable name.
	Name() string
	// Description explains what the check verifies.
	Description() string
	// Stage returns the stage this check belongs to.
	Stage() Stage
	// Execute runs the check. A returned error (or panic) is converted by
	// the orchestrator into a fail result — it never aborts the stage.
	Execute(ctx context.Context, dctx *Context) (*Result, error)
}

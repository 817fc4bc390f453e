package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/enri3l/aws-ts-sub005/internal/doctor"
	"github.com/enri3l/aws-ts-sub005/internal/repair"
)

var (
	colorHeader  = color.New(color.FgGreen)
	colorSuccess = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed)
	colorWarning = color.New(color.FgYellow)
	colorDim     = color.New(color.Faint)
)

// statusSymbol returns the icon for a status.
func statusSymbol(s doctor.Status) string {
	switch s {
	case doctor.StatusPass:
		return "✓"
	case doctor.StatusWarn:
		return "⚠"
	case doctor.StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// statusColor returns the colour for a status.
func statusColor(s doctor.Status) *color.Color {
	switch s {
	case doctor.StatusPass:
		return colorSuccess
	case doctor.StatusWarn:
		return colorWarning
	case doctor.StatusFail:
		return colorError
	default:
		return colorDim
	}
}

// printReport renders the human-readable report: checks grouped per
// stage in registration order, then repairs, then a summary line.
func printReport(w io.Writer, registry *doctor.Registry, summary *doctor.Summary, batch *repair.Batch, detailed bool) {
	_, _ = colorHeader.Fprintln(w, "awsts doctor")
	_, _ = fmt.Fprintln(w)

	for _, stage := range doctor.Stages() {
		checks := registry.ChecksForStage(stage)
		printed := false
		for _, c := range checks {
			res, ok := summary.Results[c.ID()]
			if !ok {
				continue // stage never ran (environment fail-fast)
			}
			if !printed {
				_, _ = fmt.Fprintf(w, "%s\n", stage)
				printed = true
			}
			printResult(w, c.Name(), res, detailed)
		}
		if printed {
			_, _ = fmt.Fprintln(w)
		}
	}

	if batch != nil {
		printRepairs(w, batch)
	}
	printSummaryLine(w, summary)
}

// printResult prints one check line plus optional remediation and
// details.
func printResult(w io.Writer, name string, res *doctor.Result, detailed bool) {
	sc := statusColor(res.Status)
	_, _ = fmt.Fprint(w, "  ")
	_, _ = sc.Fprint(w, statusSymbol(res.Status))
	_, _ = fmt.Fprintf(w, " %s - ", name)
	_, _ = colorDim.Fprintln(w, res.Message)

	if res.Remediation != "" && res.Status != doctor.StatusPass {
		_, _ = colorDim.Fprintf(w, "    Fix: %s\n", res.Remediation)
	}
	if detailed {
		for _, d := range res.Details {
			_, _ = colorDim.Fprintf(w, "    %s: %v\n", d.Key, d.Value)
		}
	}
}

// printRepairs prints the repair batch outcome.
func printRepairs(w io.Writer, batch *repair.Batch) {
	if batch.TotalRepairs == 0 {
		return
	}
	_, _ = colorHeader.Fprintln(w, "repairs")
	for _, r := range batch.Results {
		status := doctor.StatusFail
		if r.Success {
			status = doctor.StatusPass
		}
		sc := statusColor(status)
		_, _ = fmt.Fprint(w, "  ")
		_, _ = sc.Fprint(w, statusSymbol(status))
		_, _ = fmt.Fprintf(w, " %s - ", r.CheckID)
		_, _ = colorDim.Fprintln(w, r.Message)
		for _, op := range r.Operations {
			_, _ = colorDim.Fprintf(w, "    %s\n", op)
		}
		if r.BackupPath != "" {
			_, _ = colorDim.Fprintf(w, "    backup: %s\n", r.BackupPath)
		}
	}
	_, _ = fmt.Fprintln(w)
}

// printSummaryLine prints the closing one-line verdict.
func printSummaryLine(w io.Writer, summary *doctor.Summary) {
	sc := statusColor(summary.OverallStatus)
	_, _ = sc.Fprintf(w, "%s", summary.OverallStatus)
	_, _ = fmt.Fprintf(w, ": %d checks, %d passed, %d warnings, %d failed (%dms)\n",
		summary.TotalChecks, summary.PassedChecks, summary.WarningChecks,
		summary.FailedChecks, summary.ExecutionTime.Milliseconds())
}

// jsonReport is the machine-readable report document.
type jsonReport struct {
	Summary *doctor.Summary           `json:"summary"`
	Results map[string]*doctor.Result `json:"results"`
	Repairs *repair.Batch             `json:"repairs,omitempty"`
}

// writeJSONReport emits the report as a single JSON document.
func writeJSONReport(w io.Writer, summary *doctor.Summary, batch *repair.Batch) error {
	doc := jsonReport{Summary: summary, Results: summary.Results, Repairs: batch}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// stageProgress prints live per-stage progress to stderr. Observational
// only; it never alters result semantics.
type stageProgress struct {
	mu sync.Mutex
	w  io.Writer
}

func newStageProgress(w io.Writer) *stageProgress {
	return &stageProgress{w: w}
}

func (p *stageProgress) StageStarted(stage doctor.Stage, checks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "%s: running %d checks...\n", stage, checks)
}

func (p *stageProgress) CheckCompleted(id string, status doctor.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, "  %s %s\n", statusSymbol(status), id)
}

func (p *stageProgress) StageCompleted(doctor.Stage) {}

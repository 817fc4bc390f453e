// Package telemetry — recorder.go
// Recording helpers for awsts telemetry events. Each function emits an
// OTel log event and increments a metric counter. All helpers are safe to
// call when telemetry is inactive — the global no-op providers absorb them.
package telemetry

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterRecorderName = "github.com/enri3l/aws-ts-sub005"
	loggerName        = "awsts"
)

// recorderInstruments holds all lazy-initialized OTel metric instruments.
type recorderInstruments struct {
	checkTotal  metric.Int64Counter
	stageTotal  metric.Int64Counter
	repairTotal metric.Int64Counter
	awsTotal    metric.Int64Counter

	checkDurationHist metric.Float64Histogram
	awsDurationHist   metric.Float64Histogram
}

var (
	instOnce sync.Once
	inst     recorderInstruments
)

// initInstruments registers all recorder metric instruments against the
// current global MeterProvider. Must be called after telemetry.Init so the
// real provider is set. Also called lazily on first use as a safety net.
func initInstruments() {
	instOnce.Do(func() {
		m := otel.GetMeterProvider().Meter(meterRecorderName)

		inst.checkTotal, _ = m.Int64Counter("awsts.doctor.checks.total",
			metric.WithDescription("Total diagnostic check executions"),
		)
		inst.stageTotal, _ = m.Int64Counter("awsts.doctor.stages.total",
			metric.WithDescription("Total diagnostic stage executions"),
		)
		inst.repairTotal, _ = m.Int64Counter("awsts.repair.operations.total",
			metric.WithDescription("Total auto-repair operations"),
		)
		inst.awsTotal, _ = m.Int64Counter("awsts.aws.calls.total",
			metric.WithDescription("Total aws CLI subprocess invocations"),
		)

		inst.checkDurationHist, _ = m.Float64Histogram("awsts.doctor.check.duration_ms",
			metric.WithDescription("Diagnostic check wall-clock duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		inst.awsDurationHist, _ = m.Float64Histogram("awsts.aws.duration_ms",
			metric.WithDescription("aws CLI call round-trip latency in milliseconds"),
			metric.WithUnit("ms"),
		)
	})
}

// statusStr returns "ok" or "error" depending on whether err is nil.
func statusStr(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// emit sends an OTel log event with the given body and key-value attributes.
func emit(ctx context.Context, body string, sev otellog.Severity, attrs ...otellog.KeyValue) {
	logger := global.GetLoggerProvider().Logger(loggerName)
	var r otellog.Record
	r.SetBody(otellog.StringValue(body))
	r.SetSeverity(sev)
	r.AddAttributes(attrs...)
	logger.Emit(ctx, r)
}

// errKV returns a log KeyValue with the error message, or empty string if nil.
func errKV(err error) otellog.KeyValue {
	if err != nil {
		return otellog.String("error", err.Error())
	}
	return otellog.String("error", "")
}

// severity returns SeverityInfo on success, SeverityError on failure.
func severity(err error) otellog.Severity {
	if err != nil {
		return otellog.SeverityError
	}
	return otellog.SeverityInfo
}

const (
	// maxStderrLog is the maximum number of bytes of subprocess stderr
	// captured in log events.
	maxStderrLog = 1024
)

// truncateOutput trims s to max bytes and appends "…" when truncated.
// Avoids splitting multi-byte UTF-8 characters at the boundary.
func truncateOutput(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	truncated := s[:limit]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "…"
}

// RecordCheck records one diagnostic check execution (metrics + log event).
// status is the check's final status string; durationMs is orchestrator
// wall-clock time.
func RecordCheck(ctx context.Context, checkID, stage, status string, durationMs float64) {
	initInstruments()
	attrs := metric.WithAttributes(
		attribute.String("check", checkID),
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	inst.checkTotal.Add(ctx, 1, attrs)
	inst.checkDurationHist.Record(ctx, durationMs, attrs)
	sev := otellog.SeverityInfo
	if status == "fail" {
		sev = otellog.SeverityWarn
	}
	emit(ctx, "doctor.check", sev,
		otellog.String("check", checkID),
		otellog.String("stage", stage),
		otellog.String("status", status),
		otellog.Float64("duration_ms", durationMs),
	)
}

// RecordStage records one stage execution with result counts (metrics + log event).
func RecordStage(ctx context.Context, stage string, passed, warned, failed int) {
	initInstruments()
	inst.stageTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.Int("failed", failed),
		),
	)
	emit(ctx, "doctor.stage", otellog.SeverityInfo,
		otellog.String("stage", stage),
		otellog.Int("passed", passed),
		otellog.Int("warned", warned),
		otellog.Int("failed", failed),
	)
}

// RecordRepair records one auto-repair operation (metrics + log event).
// mode is "safe" or "interactive".
func RecordRepair(ctx context.Context, checkID, mode string, err error) {
	initInstruments()
	status := statusStr(err)
	inst.repairTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("check", checkID),
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
	emit(ctx, "repair.operation", severity(err),
		otellog.String("check", checkID),
		otellog.String("mode", mode),
		otellog.String("status", status),
		errKV(err),
	)
}

// RecordAwsCall records an aws CLI subprocess invocation with duration
// (metrics + log event). args is the full argument list; the first two
// entries form the subcommand label ("sts get-caller-identity"). stderr is
// truncated before logging; stdout is never logged — it may carry
// credentials.
func RecordAwsCall(ctx context.Context, args []string, durationMs float64, err error, stderr string) {
	initInstruments()
	subcommand := strings.Join(firstN(args, 2), " ")
	status := statusStr(err)
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("subcommand", subcommand),
	)
	inst.awsTotal.Add(ctx, 1, attrs)
	inst.awsDurationHist.Record(ctx, durationMs, attrs)
	emit(ctx, "aws.call", severity(err),
		otellog.String("subcommand", subcommand),
		otellog.Float64("duration_ms", durationMs),
		otellog.String("status", status),
		otellog.String("stderr", truncateOutput(stderr, maxStderrLog)),
		errKV(err),
	)
}

// firstN returns at most the first n elements of s, skipping flag arguments.
func firstN(s []string, n int) []string {
	var out []string
	for _, a := range s {
		if strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
		if len(out) == n {
			break
		}
	}
	return out
}

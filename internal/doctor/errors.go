package doctor

import "fmt"

// RegistryError reports a structural problem with check registration:
// duplicate IDs or lookups of unknown checks. Registry errors are fatal —
// they indicate a programming error in the check wiring, not a diagnostic
// finding.
type RegistryError struct {
	CheckID string
	Reason  string
}

// Error implements the error interface.
func (e *RegistryError) Error() string {
	return fmt.Sprintf("check registry: %s: %s", e.CheckID, e.Reason)
}

// Guidance returns resolution guidance for the CLI layer.
func (e *RegistryError) Guidance() string {
	return "This is a bug in the check wiring. Report it with the full command output."
}

// ExecutionError wraps an error returned by a check's Execute. The
// orchestrator converts it into a fail result; it never escapes a stage.
type ExecutionError struct {
	CheckID string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("check %s: execution failed: %v", e.CheckID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// Guidance returns resolution guidance for the CLI layer.
func (e *ExecutionError) Guidance() string {
	return "Re-run with --detailed for more context. If the error persists, the underlying tool may be broken."
}

// DiagnosticError reports a structural problem with a diagnostic run as a
// whole (e.g. no checks registered). Fatal to the run.
type DiagnosticError struct {
	Reason string
}

// Error implements the error interface.
func (e *DiagnosticError) Error() string {
	return "diagnostics: " + e.Reason
}

// Guidance returns resolution guidance for the CLI layer.
func (e *DiagnosticError) Guidance() string {
	return "Verify the installation is intact, then re-run."
}

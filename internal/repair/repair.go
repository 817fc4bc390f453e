// Package repair turns diagnosed problems into corrective, auditable
// filesystem operations. Every file mutation is preceded by a timestamped
// backup under <storageDir>/backups, and a whole repair batch is
// serialized behind a file lock so two awsts processes can never collide
// on the same config file.
package repair

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/enri3l/aws-ts-sub005/internal/doctor"
	"github.com/enri3l/aws-ts-sub005/internal/events"
	"github.com/enri3l/aws-ts-sub005/internal/fsys"
	"github.com/enri3l/aws-ts-sub005/internal/telemetry"
)

// backupStamp is the timestamp layout for backup file names.
const backupStamp = "20060102-150405"

// Result records the outcome of one repair attempt. Immutable once
// produced.
type Result struct {
	CheckID    string   `json:"checkId"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Operations []string `json:"operations,omitempty"`
	BackupPath string   `json:"backupPath,omitempty"`
}

// Batch aggregates the results of one repair run for the output layer.
type Batch struct {
	TotalRepairs      int      `json:"totalRepairs"`
	SuccessfulRepairs int      `json:"successfulRepairs"`
	FailedRepairs     int      `json:"failedRepairs"`
	Results           []Result `json:"results"`
}

// NewBatch derives a Batch from a result list.
func NewBatch(results []Result) *Batch {
	b := &Batch{TotalRepairs: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			b.SuccessfulRepairs++
		} else {
			b.FailedRepairs++
		}
	}
	return b
}

// Error reports a failed repair operation. It is recorded in a failed
// Result and never aborts the remaining batch.
type Error struct {
	CheckID string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("repair %s: %v", e.CheckID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Fixer describes one corrective action bound to a check ID. Apply
// returns the list of operations it performed, in order.
type Fixer struct {
	// CheckID is the diagnostic this fixer corrects.
	CheckID string
	// Safe marks the fix as non-destructive and deterministic, eligible
	// for unattended application. Ambiguous or destructive fixes are
	// interactive-only.
	Safe bool
	// Description is shown in prompts and dry-run previews.
	Description string
	// File is the file the fix mutates; backed up before Apply runs.
	// Empty for fixes that only create new paths.
	File string
	// Apply performs the fix.
	Apply func(ctx context.Context, dctx *doctor.Context) ([]string, error)
}

// Prompter asks the user to confirm an interactive repair.
type Prompter interface {
	Confirm(message string) (bool, error)
}

// ConfirmFunc adapts a function to the Prompter interface.
type ConfirmFunc func(message string) (bool, error)

// Confirm calls the function.
func (f ConfirmFunc) Confirm(message string) (bool, error) { return f(message) }

// DenyAll refuses every prompt. Used under automated conditions where no
// terminal is attached.
var DenyAll Prompter = ConfirmFunc(func(string) (bool, error) { return false, nil })

// Service applies fixers against diagnostic results. Repairs within a
// batch run strictly one at a time.
type Service struct {
	fs         fsys.FS
	storageDir string
	fixers     []Fixer
	prompter   Prompter
	recorder   events.Recorder
	dryRun     bool
	now        func() time.Time
	lock       *flock.Flock
}

// Option configures a Service.
type Option func(*Service)

// WithPrompter installs the confirmation prompter for interactive
// repairs.
func WithPrompter(p Prompter) Option {
	return func(s *Service) {
		if p != nil {
			s.prompter = p
		}
	}
}

// WithRecorder installs the audit event recorder.
func WithRecorder(r events.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithDryRun previews repairs without mutating anything.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// NewService creates a repair Service. storageDir holds backups and the
// repair lock file.
func NewService(fs fsys.FS, storageDir string, fixers []Fixer, opts ...Option) *Service {
	s := &Service{
		fs:         fs,
		storageDir: storageDir,
		fixers:     fixers,
		prompter:   DenyAll,
		recorder:   events.Discard,
		now:        time.Now,
		lock:       flock.New(filepath.Join(storageDir, "repair.lock")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SafeRepairs applies every safe fixer whose check did not pass. Each
// repair is fully independent: a failure is recorded and the batch
// continues.
func (s *Service) SafeRepairs(ctx context.Context, dctx *doctor.Context, results map[string]*doctor.Result) ([]Result, error) {
	return s.run(ctx, dctx, results, false)
}

// InteractiveRepairs applies every fixer (safe or not) whose check did
// not pass, prompting for confirmation before each mutation. Under
// dry-run the prompt is skipped and the fix is previewed instead.
func (s *Service) InteractiveRepairs(ctx context.Context, dctx *doctor.Context, results map[string]*doctor.Result) ([]Result, error) {
	return s.run(ctx, dctx, results, true)
}

func (s *Service) run(ctx context.Context, dctx *doctor.Context, results map[string]*doctor.Result, interactive bool) ([]Result, error) {
	if !s.dryRun {
		if err := s.fs.MkdirAll(s.storageDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
		if err := s.lock.Lock(); err != nil {
			return nil, fmt.Errorf("acquiring repair lock: %w", err)
		}
		defer s.lock.Unlock()
	}

	var out []Result
	for _, f := range s.fixers {
		res, ok := results[f.CheckID]
		if !ok || res.Status == doctor.StatusPass {
			continue
		}
		if !interactive && !f.Safe {
			continue
		}

		if s.dryRun {
			out = append(out, Result{
				CheckID: f.CheckID,
				Success: true,
				Message: "dry run: " + f.Description,
			})
			continue
		}
		if interactive {
			ok, err := s.prompter.Confirm(fmt.Sprintf("Apply fix for %s: %s?", f.CheckID, f.Description))
			if err != nil {
				return out, fmt.Errorf("prompting for %s: %w", f.CheckID, err)
			}
			if !ok {
				out = append(out, Result{
					CheckID: f.CheckID,
					Success: false,
					Message: "skipped: not confirmed",
				})
				continue
			}
		}
		out = append(out, s.apply(ctx, dctx, f))
	}
	return out, nil
}

// apply runs one fixer with backup-before-write discipline, converting
// errors and panics into a failed Result.
func (s *Service) apply(ctx context.Context, dctx *doctor.Context, f Fixer) (res Result) {
	res = Result{CheckID: f.CheckID}
	defer func() {
		if p := recover(); p != nil {
			res.Success = false
			res.Message = fmt.Sprintf("repair panicked: %v", p)
			s.record(events.RepairFailed, f.CheckID, res.Message)
			telemetry.RecordRepair(ctx, f.CheckID, mode(f), fmt.Errorf("%v", p))
		}
	}()

	if f.File != "" {
		backupPath, err := s.backup(f.File)
		if err != nil {
			res.Message = (&Error{CheckID: f.CheckID, Cause: err}).Error()
			s.record(events.RepairFailed, f.CheckID, res.Message)
			telemetry.RecordRepair(ctx, f.CheckID, mode(f), err)
			return res
		}
		res.BackupPath = backupPath
	}

	ops, err := f.Apply(ctx, dctx)
	res.Operations = ops
	if err != nil {
		res.Message = (&Error{CheckID: f.CheckID, Cause: err}).Error()
		s.record(events.RepairFailed, f.CheckID, res.Message)
		telemetry.RecordRepair(ctx, f.CheckID, mode(f), err)
		return res
	}
	res.Success = true
	res.Message = f.Description
	s.record(events.RepairApplied, f.CheckID, f.Description)
	telemetry.RecordRepair(ctx, f.CheckID, mode(f), nil)
	return res
}

// backup copies the file's current bytes to
// <storageDir>/backups/<timestamp>-<name> before any mutation. A file
// that does not exist yet needs no backup.
func (s *Service) backup(file string) (string, error) {
	data, err := s.fs.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s for backup: %w", file, err)
	}

	dir := filepath.Join(s.storageDir, "backups")
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}
	path := filepath.Join(dir, s.now().Format(backupStamp)+"-"+filepath.Base(file))
	if err := s.fs.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing backup %s: %w", path, err)
	}
	s.record(events.BackupWritten, file, path)
	return path, nil
}

func (s *Service) record(typ, subject, message string) {
	s.recorder.Record(events.Event{
		Type:    typ,
		Actor:   "repair",
		Subject: subject,
		Message: message,
	})
}

func mode(f Fixer) string {
	if f.Safe {
		return "safe"
	}
	return "interactive"
}

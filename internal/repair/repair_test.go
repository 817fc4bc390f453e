package repair

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/doctor"
	"github.com/enri3l/aws-ts-sub005/internal/events"
	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

func warnResults(ids ...string) map[string]*doctor.Result {
	m := make(map[string]*doctor.Result)
	for _, id := range ids {
		m[id] = &doctor.Result{Status: doctor.StatusWarn, Message: "needs fixing"}
	}
	return m
}

func TestSafeRepairsSkipsPassAndUnsafe(t *testing.T) {
	var applied []string
	fixers := []Fixer{
		{CheckID: "a", Safe: true, Description: "fix a", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			applied = append(applied, "a")
			return []string{"set a"}, nil
		}},
		{CheckID: "b", Safe: false, Description: "fix b", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			applied = append(applied, "b")
			return nil, nil
		}},
		{CheckID: "c", Safe: true, Description: "fix c", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			applied = append(applied, "c")
			return nil, nil
		}},
	}

	results := warnResults("a", "b")
	results["c"] = &doctor.Result{Status: doctor.StatusPass}

	s := NewService(fsys.NewFake(), t.TempDir(), fixers)
	out, err := s.SafeRepairs(context.Background(), &doctor.Context{}, results)
	if err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}

	// Only "a" qualifies: "b" is unsafe, "c" passed.
	if len(applied) != 1 || applied[0] != "a" {
		t.Errorf("applied = %v, want [a]", applied)
	}
	if len(out) != 1 || !out[0].Success {
		t.Fatalf("results = %+v, want one success", out)
	}
	if len(out[0].Operations) != 1 || out[0].Operations[0] != "set a" {
		t.Errorf("operations = %v, want [set a]", out[0].Operations)
	}
}

func TestRepairBatchPartialFailure(t *testing.T) {
	fixers := []Fixer{
		{CheckID: "first", Safe: true, Description: "first fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return []string{"op1"}, nil
		}},
		{CheckID: "second", Safe: true, Description: "second fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return nil, errors.New("disk full")
		}},
		{CheckID: "third", Safe: true, Description: "third fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			panic("unexpected state")
		}},
		{CheckID: "fourth", Safe: true, Description: "fourth fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return []string{"op4"}, nil
		}},
	}

	s := NewService(fsys.NewFake(), t.TempDir(), fixers)
	out, err := s.SafeRepairs(context.Background(), &doctor.Context{},
		warnResults("first", "second", "third", "fourth"))
	if err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}

	// A failing repair never aborts the batch: all four produce results.
	if len(out) != 4 {
		t.Fatalf("len(results) = %d, want 4", len(out))
	}
	wantSuccess := []bool{true, false, false, true}
	for i, want := range wantSuccess {
		if out[i].Success != want {
			t.Errorf("results[%d].Success = %v, want %v", i, out[i].Success, want)
		}
	}
	if !strings.Contains(out[1].Message, "disk full") {
		t.Errorf("results[1].Message = %q, want cause included", out[1].Message)
	}
	if !strings.Contains(out[2].Message, "unexpected state") {
		t.Errorf("results[2].Message = %q, want panic value", out[2].Message)
	}
}

func TestBackupBeforeWrite(t *testing.T) {
	const configFile = "/home/u/.aws/config"
	original := []byte("[default]\nregion = us-east-1\n")

	fake := fsys.NewFake()
	fake.Files[configFile] = append([]byte(nil), original...)

	storageDir := t.TempDir()
	fixers := []Fixer{{
		CheckID:     "config-defaults",
		Safe:        true,
		Description: "set output default",
		File:        configFile,
		Apply: func(context.Context, *doctor.Context) ([]string, error) {
			fake.Files[configFile] = []byte("[default]\nregion = us-east-1\noutput = json\n")
			return []string{"set output = json"}, nil
		},
	}}

	s := NewService(fake, storageDir, fixers)
	s.now = func() time.Time { return time.Date(2026, 2, 3, 9, 30, 0, 0, time.UTC) }

	out, err := s.SafeRepairs(context.Background(), &doctor.Context{}, warnResults("config-defaults"))
	if err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}
	if len(out) != 1 || !out[0].Success {
		t.Fatalf("results = %+v, want one success", out)
	}

	wantBackup := storageDir + "/backups/20260203-093000-config"
	if out[0].BackupPath != wantBackup {
		t.Errorf("BackupPath = %q, want %q", out[0].BackupPath, wantBackup)
	}
	// The backup must restore the pre-repair bytes exactly.
	if !bytes.Equal(fake.Files[wantBackup], original) {
		t.Errorf("backup bytes = %q, want %q", fake.Files[wantBackup], original)
	}
	if bytes.Equal(fake.Files[configFile], original) {
		t.Error("config file unchanged, want mutated")
	}
}

func TestBackupSkippedForNewFile(t *testing.T) {
	fixers := []Fixer{{
		CheckID:     "aws-home",
		Safe:        true,
		Description: "create .aws directory",
		File:        "/home/u/.aws/config",
		Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return []string{"mkdir /home/u/.aws"}, nil
		},
	}}

	s := NewService(fsys.NewFake(), t.TempDir(), fixers)
	out, err := s.SafeRepairs(context.Background(), &doctor.Context{}, warnResults("aws-home"))
	if err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}
	if !out[0].Success {
		t.Fatalf("result = %+v, want success", out[0])
	}
	if out[0].BackupPath != "" {
		t.Errorf("BackupPath = %q, want empty for new file", out[0].BackupPath)
	}
}

func TestBackupFailureFailsRepairWithoutMutating(t *testing.T) {
	const configFile = "/home/u/.aws/config"
	fake := fsys.NewFake()
	fake.Files[configFile] = []byte("data")
	fake.Errors[configFile] = errors.New("permission denied")

	var applied bool
	fixers := []Fixer{{
		CheckID:     "config-defaults",
		Safe:        true,
		Description: "set defaults",
		File:        configFile,
		Apply: func(context.Context, *doctor.Context) ([]string, error) {
			applied = true
			return nil, nil
		},
	}}

	s := NewService(fake, t.TempDir(), fixers)
	out, err := s.SafeRepairs(context.Background(), &doctor.Context{}, warnResults("config-defaults"))
	if err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}
	if out[0].Success {
		t.Error("repair succeeded despite backup failure")
	}
	if applied {
		t.Error("Apply ran despite backup failure")
	}
}

func TestInteractiveRepairsPrompt(t *testing.T) {
	var prompts []string
	answers := map[string]bool{"safe-fix": true, "risky-fix": false}

	fixers := []Fixer{
		{CheckID: "safe-fix", Safe: true, Description: "safe fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return nil, nil
		}},
		{CheckID: "risky-fix", Safe: false, Description: "risky fix", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			t.Error("declined fix was applied")
			return nil, nil
		}},
	}

	prompter := ConfirmFunc(func(msg string) (bool, error) {
		prompts = append(prompts, msg)
		for id, answer := range answers {
			if strings.Contains(msg, id) {
				return answer, nil
			}
		}
		return false, nil
	})

	s := NewService(fsys.NewFake(), t.TempDir(), fixers, WithPrompter(prompter))
	out, err := s.InteractiveRepairs(context.Background(), &doctor.Context{Interactive: true},
		warnResults("safe-fix", "risky-fix"))
	if err != nil {
		t.Fatalf("InteractiveRepairs: %v", err)
	}

	if len(prompts) != 2 {
		t.Errorf("prompts = %d, want 2", len(prompts))
	}
	if len(out) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(out))
	}
	if !out[0].Success {
		t.Errorf("confirmed fix = %+v, want success", out[0])
	}
	if out[1].Success || !strings.Contains(out[1].Message, "not confirmed") {
		t.Errorf("declined fix = %+v, want skipped", out[1])
	}
}

func TestDryRunPreviewsWithoutMutating(t *testing.T) {
	var applied bool
	fixers := []Fixer{{
		CheckID:     "config-defaults",
		Safe:        true,
		Description: "set region default",
		Apply: func(context.Context, *doctor.Context) ([]string, error) {
			applied = true
			return nil, nil
		},
	}}

	fake := fsys.NewFake()
	s := NewService(fake, "/store", fixers, WithDryRun(true))
	out, err := s.InteractiveRepairs(context.Background(), &doctor.Context{}, warnResults("config-defaults"))
	if err != nil {
		t.Fatalf("InteractiveRepairs: %v", err)
	}
	if applied {
		t.Error("Apply ran under dry-run")
	}
	if len(fake.Calls) != 0 {
		t.Errorf("filesystem calls = %v, want none under dry-run", fake.Calls)
	}
	if len(out) != 1 || !strings.HasPrefix(out[0].Message, "dry run: ") {
		t.Errorf("results = %+v, want dry-run preview", out)
	}
}

func TestRepairEventsRecorded(t *testing.T) {
	const configFile = "/home/u/.aws/config"
	fake := fsys.NewFake()
	fake.Files[configFile] = []byte("data")

	fixers := []Fixer{
		{CheckID: "ok", Safe: true, Description: "works", File: configFile, Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return nil, nil
		}},
		{CheckID: "bad", Safe: true, Description: "breaks", Apply: func(context.Context, *doctor.Context) ([]string, error) {
			return nil, errors.New("nope")
		}},
	}

	rec := &memRecorder{}
	s := NewService(fake, t.TempDir(), fixers, WithRecorder(rec))
	if _, err := s.SafeRepairs(context.Background(), &doctor.Context{}, warnResults("ok", "bad")); err != nil {
		t.Fatalf("SafeRepairs: %v", err)
	}

	types := make([]string, len(rec.events))
	for i, e := range rec.events {
		types[i] = e.Type
	}
	want := []string{events.BackupWritten, events.RepairApplied, events.RepairFailed}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestNewBatchCounts(t *testing.T) {
	b := NewBatch([]Result{
		{CheckID: "a", Success: true},
		{CheckID: "b", Success: false},
		{CheckID: "c", Success: true},
	})
	if b.TotalRepairs != 3 || b.SuccessfulRepairs != 2 || b.FailedRepairs != 1 {
		t.Errorf("batch = %d/%d/%d, want 3/2/1",
			b.TotalRepairs, b.SuccessfulRepairs, b.FailedRepairs)
	}
}

type memRecorder struct {
	events []events.Event
}

func (r *memRecorder) Record(e events.Event) {
	r.events = append(r.events, e)
}
